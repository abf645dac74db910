package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"
)

type Config struct {
	//===============
	//  Crawl scope
	//===============
	// Seed URL the crawl starts from. Required.
	seedURL url.URL
	// When false, a discovered URL is only enqueued if its authority
	// matches the seed URL's authority.
	allDomains bool
	// Maximum number of hyperlink hops from the seed URL.
	maxDepth int

	//===============
	// Frontier / retry
	//===============
	// Whether to wipe the persisted frontier and start from the seed.
	reset bool
	// When true, a previously persisted frontier is kept across runs
	// instead of being re-seeded.
	preserveQueue bool
	// Total number of fetch attempts, the first included, a PendingItem
	// gets before it is discarded permanently.
	retries int
	// Base delay, jitter and seed for the exponential backoff applied
	// between fetch retries.
	baseDelay              time.Duration
	jitter                 time.Duration
	randomSeed             int64
	backoffInitialDuration time.Duration
	backoffMultiplier      float64
	backoffMaxDuration     time.Duration

	//===============
	// Politeness / fetch
	//===============
	// Number of concurrent Dispatcher workers.
	threads int
	// Maximum time of a single fetch request.
	timeout time.Duration
	// User agent sent with every request, including robots.txt fetches.
	userAgent string

	//===============
	// Output
	//===============
	downloadFolder string
	rejectedFolder string

	//===============
	// Scoring
	//===============
	// Keywords the default Processor scores PDF metadata against.
	keywords []string
	// Minimum relevancy score for a fetched PDF to be accepted.
	minRelevancy float64

	//===============
	// Collaborators / diagnostics
	//===============
	parserName    string
	processorName string
	verbose       bool
}

type configDTO struct {
	SeedURL                string        `json:"seedUrl"`
	AllDomains             bool          `json:"allDomains,omitempty"`
	MaxDepth               int           `json:"maxDepth,omitempty"`
	Reset                  bool          `json:"reset,omitempty"`
	PreserveQueue          bool          `json:"preserveQueue,omitempty"`
	Retries                int           `json:"retries,omitempty"`
	BaseDelay              time.Duration `json:"baseDelay,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty"`
	Threads                int           `json:"threads,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty"`
	UserAgent              string        `json:"userAgent,omitempty"`
	DownloadFolder         string        `json:"downloadFolder,omitempty"`
	RejectedFolder         string        `json:"rejectedFolder,omitempty"`
	Keywords               []string      `json:"keywords,omitempty"`
	MinRelevancy           float64       `json:"minRelevancy,omitempty"`
	ParserName             string        `json:"parser,omitempty"`
	ProcessorName          string        `json:"processor,omitempty"`
	Verbose                bool          `json:"verbose,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	var seed url.URL
	if dto.SeedURL != "" {
		parsed, err := url.Parse(dto.SeedURL)
		if err != nil {
			return Config{}, fmt.Errorf("%w: seedUrl: %s", ErrInvalidConfig, err.Error())
		}
		seed = *parsed
	}

	cfg, err := WithDefault(seed).Build()
	if err != nil {
		return Config{}, err
	}

	cfg.allDomains = dto.AllDomains
	if dto.MaxDepth != 0 {
		cfg.maxDepth = dto.MaxDepth
	}
	cfg.reset = dto.Reset
	cfg.preserveQueue = dto.PreserveQueue
	if dto.Retries != 0 {
		cfg.retries = dto.Retries
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	if dto.Threads != 0 {
		cfg.threads = dto.Threads
	}
	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.DownloadFolder != "" {
		cfg.downloadFolder = dto.DownloadFolder
	}
	cfg.rejectedFolder = dto.RejectedFolder
	if len(dto.Keywords) > 0 {
		cfg.keywords = dto.Keywords
	}
	if dto.MinRelevancy != 0 {
		cfg.minRelevancy = dto.MinRelevancy
	}
	if dto.ParserName != "" {
		cfg.parserName = dto.ParserName
	}
	if dto.ProcessorName != "" {
		cfg.processorName = dto.ProcessorName
	}
	cfg.verbose = dto.Verbose

	return cfg, nil
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config for the given seed URL with default
// values for all other fields. seedURL is mandatory and must have a scheme
// and host; Build returns ErrInvalidConfig otherwise.
func WithDefault(seedURL url.URL) *Config {
	defaultConfig := Config{
		seedURL:                seedURL,
		allDomains:             false,
		maxDepth:               5,
		retries:                3,
		baseDelay:              time.Second,
		jitter:                 time.Millisecond * 500,
		randomSeed:             time.Now().UnixNano(),
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		threads:                10,
		timeout:                time.Second * 10,
		userAgent:              "pdfcrawler/1.0",
		downloadFolder:         "files",
		rejectedFolder:         "",
		minRelevancy:           1,
		parserName:             "default",
		processorName:          "default",
	}
	return &defaultConfig
}

func (c *Config) WithSeedURL(u url.URL) *Config {
	c.seedURL = u
	return c
}

func (c *Config) WithAllDomains(allDomains bool) *Config {
	c.allDomains = allDomains
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithReset(reset bool) *Config {
	c.reset = reset
	return c
}

func (c *Config) WithPreserveQueue(preserve bool) *Config {
	c.preserveQueue = preserve
	return c
}

func (c *Config) WithRetries(retries int) *Config {
	c.retries = retries
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithThreads(threads int) *Config {
	c.threads = threads
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithDownloadFolder(folder string) *Config {
	c.downloadFolder = folder
	return c
}

func (c *Config) WithRejectedFolder(folder string) *Config {
	c.rejectedFolder = folder
	return c
}

func (c *Config) WithKeywords(keywords []string) *Config {
	c.keywords = keywords
	return c
}

func (c *Config) WithMinRelevancy(min float64) *Config {
	c.minRelevancy = min
	return c
}

func (c *Config) WithParserName(name string) *Config {
	c.parserName = name
	return c
}

func (c *Config) WithProcessorName(name string) *Config {
	c.processorName = name
	return c
}

func (c *Config) WithVerbose(verbose bool) *Config {
	c.verbose = verbose
	return c
}

func (c *Config) Build() (Config, error) {
	if c.seedURL.Scheme == "" || c.seedURL.Host == "" {
		return Config{}, fmt.Errorf("%w: seedUrl must be an absolute URL with a scheme and a host", ErrInvalidConfig)
	}
	if c.threads < 1 {
		return Config{}, fmt.Errorf("%w: threads must be >= 1", ErrInvalidConfig)
	}
	if c.retries < 0 {
		return Config{}, fmt.Errorf("%w: retries must be >= 0", ErrInvalidConfig)
	}

	return *c, nil
}

func (c Config) SeedURL() url.URL { return c.seedURL }

func (c Config) AllDomains() bool { return c.allDomains }

func (c Config) MaxDepth() int { return c.maxDepth }

func (c Config) Reset() bool { return c.reset }

func (c Config) PreserveQueue() bool { return c.preserveQueue }

func (c Config) Retries() int { return c.retries }

func (c Config) BaseDelay() time.Duration { return c.baseDelay }

func (c Config) Jitter() time.Duration { return c.jitter }

func (c Config) RandomSeed() int64 { return c.randomSeed }

func (c Config) BackoffInitialDuration() time.Duration { return c.backoffInitialDuration }

func (c Config) BackoffMultiplier() float64 { return c.backoffMultiplier }

func (c Config) BackoffMaxDuration() time.Duration { return c.backoffMaxDuration }

func (c Config) Threads() int { return c.threads }

func (c Config) Timeout() time.Duration { return c.timeout }

func (c Config) UserAgent() string { return c.userAgent }

func (c Config) DownloadFolder() string { return c.downloadFolder }

func (c Config) RejectedFolder() string { return c.rejectedFolder }

func (c Config) Keywords() []string {
	keywords := make([]string, len(c.keywords))
	copy(keywords, c.keywords)
	return keywords
}

func (c Config) MinRelevancy() float64 { return c.minRelevancy }

func (c Config) ParserName() string { return c.parserName }

func (c Config) ProcessorName() string { return c.processorName }

func (c Config) Verbose() bool { return c.verbose }
