package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rohmanhakim/pdfcrawler/internal/config"
	"github.com/rohmanhakim/pdfcrawler/internal/orchestrator"
	"github.com/spf13/cobra"
)

var (
	cfgFile        string
	reset          bool
	preserveQueue  bool
	parserName     string
	processorName  string
	allDomains     bool
	threads        int
	retries        int
	keywords       []string
	downloadFolder string
	rejectedFolder string
	depth          int
	minRelevancy   float64
	verbose        bool
)

// parseSeedURL parses the single positional seed URL argument.
func parseSeedURL(arg string) (url.URL, error) {
	if arg == "" {
		return url.URL{}, fmt.Errorf("seed URL cannot be empty")
	}
	parsed, err := url.Parse(arg)
	if err != nil {
		return url.URL{}, fmt.Errorf("error parsing seed URL %s: %w", arg, err)
	}
	return *parsed, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pdfcrawler [seed-url]",
	Short: "A multi-worker PDF-harvesting web crawler.",
	Long: `pdfcrawler traverses the hyperlink graph rooted at one seed URL,
harvests PDF documents, scores them against a keyword list, and persists
accepted documents to disk.

The frontier, retry bookkeeping, and worker lifecycle are backed by a
persistent queue, so a crawl can be resumed with --preserve-queue instead
of reseeded with --reset.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Error: a seed URL is required, also when --preserve-queue is set.\n")
			cmd.Usage()
			os.Exit(1)
		}

		seed, err := parseSeedURL(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		cfg := InitConfig(seed)

		fmt.Printf("Configuration initialized successfully\n")
		seedURL := cfg.SeedURL()
		fmt.Printf("Seed URL: %s\n", seedURL.String())
		fmt.Printf("All Domains: %t\n", cfg.AllDomains())
		fmt.Printf("Max Depth: %d\n", cfg.MaxDepth())
		fmt.Printf("Threads: %d\n", cfg.Threads())
		fmt.Printf("Retries: %d\n", cfg.Retries())
		fmt.Printf("Keywords: %s\n", strings.Join(cfg.Keywords(), ", "))
		fmt.Printf("Download Folder: %s\n", cfg.DownloadFolder())
		fmt.Printf("Rejected Folder: %s\n", cfg.RejectedFolder())
		fmt.Printf("Min Relevancy: %v\n", cfg.MinRelevancy())
		fmt.Printf("Verbose: %t\n", cfg.Verbose())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := orchestrator.Run(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		fmt.Printf("Crawl finished: fetched=%d added=%d documents=%d errors=%d duration=%s\n",
			summary.Stats.TotalFetched, summary.Stats.TotalAdded, summary.Stats.TotalDocuments,
			summary.Stats.TotalErrors, summary.Stats.Duration)
		if summary.Stats.TotalErrors > 0 {
			os.Exit(1)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().BoolVar(&reset, "reset", false, "wipe the persisted frontier and start from the seed")
	rootCmd.PersistentFlags().BoolVar(&preserveQueue, "preserve-queue", false, "keep a previously persisted frontier instead of reseeding")
	rootCmd.PersistentFlags().StringVar(&parserName, "parser", "", "registered Parser implementation to use")
	rootCmd.PersistentFlags().StringVar(&processorName, "processor", "", "registered Processor implementation to use")
	rootCmd.PersistentFlags().BoolVar(&allDomains, "all-domains", false, "allow enqueuing discovered URLs from any authority, not just the seed's")
	rootCmd.PersistentFlags().IntVar(&threads, "threads", 10, "number of concurrent Dispatcher workers")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 3, "fetch retry cap before a PendingItem is discarded")
	rootCmd.PersistentFlags().StringSliceVar(&keywords, "keywords", []string{}, "comma-separated keyword list used to score PDF relevancy")
	rootCmd.PersistentFlags().StringVar(&downloadFolder, "download-folder", "files", "directory accepted documents are written to")
	rootCmd.PersistentFlags().StringVar(&rejectedFolder, "rejected-folder", "", "directory rejected documents are written to (unset: not written)")
	rootCmd.PersistentFlags().IntVar(&depth, "depth", 5, "maximum link depth from the seed URL")
	rootCmd.PersistentFlags().Float64Var(&minRelevancy, "min-relevancy", 1, "minimum relevancy score for a PDF to be accepted")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose structured logging")
}

// InitConfig reads in config file and ENV variables if set.
// seed is the parsed positional seed URL argument.
func InitConfig(seed url.URL) config.Config {
	cfg, err := InitConfigWithError(seed)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError reads in config file and ENV variables if set, returning any errors.
// This makes it easier to test error cases.
func InitConfigWithError(seed url.URL) (config.Config, error) {
	if cfgFile != "" {
		fmt.Printf("Initializing config from file: %s\n", cfgFile)
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	fmt.Println("No config file specified. Using default flag values or environment variables")

	configBuilder := config.WithDefault(seed)

	configBuilder = configBuilder.
		WithAllDomains(allDomains).
		WithReset(reset).
		WithPreserveQueue(preserveQueue).
		WithVerbose(verbose)

	if depth > 0 {
		configBuilder = configBuilder.WithMaxDepth(depth)
	}
	if threads > 0 {
		configBuilder = configBuilder.WithThreads(threads)
	}
	if retries > 0 {
		configBuilder = configBuilder.WithRetries(retries)
	}
	if len(keywords) > 0 {
		configBuilder = configBuilder.WithKeywords(keywords)
	}
	if downloadFolder != "" {
		configBuilder = configBuilder.WithDownloadFolder(downloadFolder)
	}
	if rejectedFolder != "" {
		configBuilder = configBuilder.WithRejectedFolder(rejectedFolder)
	}
	if minRelevancy != 0 {
		configBuilder = configBuilder.WithMinRelevancy(minRelevancy)
	}
	if parserName != "" {
		configBuilder = configBuilder.WithParserName(parserName)
	}
	if processorName != "" {
		configBuilder = configBuilder.WithProcessorName(processorName)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ResetFlags() {
	cfgFile = ""
	reset = false
	preserveQueue = false
	parserName = ""
	processorName = ""
	allDomains = false
	threads = 0
	retries = 0
	keywords = []string{}
	downloadFolder = ""
	rejectedFolder = ""
	depth = 0
	minRelevancy = 0
	verbose = false
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetResetForTest(v bool) {
	reset = v
}

func SetPreserveQueueForTest(v bool) {
	preserveQueue = v
}

func SetParserNameForTest(name string) {
	parserName = name
}

func SetProcessorNameForTest(name string) {
	processorName = name
}

func SetAllDomainsForTest(v bool) {
	allDomains = v
}

func SetThreadsForTest(n int) {
	threads = n
}

func SetRetriesForTest(n int) {
	retries = n
}

func SetKeywordsForTest(k []string) {
	keywords = k
}

func SetDownloadFolderForTest(dir string) {
	downloadFolder = dir
}

func SetRejectedFolderForTest(dir string) {
	rejectedFolder = dir
}

func SetDepthForTest(d int) {
	depth = d
}

func SetMinRelevancyForTest(v float64) {
	minRelevancy = v
}

func SetVerboseForTest(v bool) {
	verbose = v
}
