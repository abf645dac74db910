// Package registry maps a configured --parser/--processor name to a
// factory function. The original source loaded collaborator classes by
// fully qualified name at process start (spec.md §9 "dynamic class
// loading"); this is the systems-port replacement the design note calls
// for — a small static map instead of reflection.
package registry

import (
	"fmt"

	"github.com/rohmanhakim/pdfcrawler/internal/parser"
	"github.com/rohmanhakim/pdfcrawler/internal/processor"
	"github.com/rohmanhakim/pdfcrawler/internal/telemetry"
)

const defaultName = "default"

// ParserFactory builds a fresh Parser instance. Parsers are stateful per
// page (spec.md §4.G), so the Orchestrator calls this once per Dispatcher
// rather than sharing one instance across workers.
type ParserFactory func(sink telemetry.MetadataSink) parser.Parser

// ProcessorFactory builds a fresh Processor instance.
type ProcessorFactory func(keywords []string) processor.Processor

var parsers = map[string]ParserFactory{
	defaultName: func(sink telemetry.MetadataSink) parser.Parser {
		return parser.NewDefaultParser(sink)
	},
}

var processors = map[string]ProcessorFactory{
	defaultName: func(keywords []string) processor.Processor {
		return processor.NewDefaultProcessor(keywords)
	},
}

// RegistryError reports an unknown collaborator name.
type RegistryError struct {
	Kind string
	Name string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry: no %s registered under name %q", e.Kind, e.Name)
}

// Parser resolves name (the empty string means "default") to a
// ParserFactory.
func Parser(name string) (ParserFactory, error) {
	if name == "" {
		name = defaultName
	}
	factory, ok := parsers[name]
	if !ok {
		return nil, &RegistryError{Kind: "parser", Name: name}
	}
	return factory, nil
}

// Processor resolves name (the empty string means "default") to a
// ProcessorFactory.
func Processor(name string) (ProcessorFactory, error) {
	if name == "" {
		name = defaultName
	}
	factory, ok := processors[name]
	if !ok {
		return nil, &RegistryError{Kind: "processor", Name: name}
	}
	return factory, nil
}
