package sentropy

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the configuration instance the rest of sentropy should access
// for global configuration values. See SentropyConfig for available config
// members.
var Config SentropyConfig

// ConfigName is the path (can be relative or absolute) to the config file
// that should be read.
var ConfigName = "sentropy.yaml"

func init() {
	SetDefaultConfig()
	if err := readConfig(); err != nil {
		if strings.Contains(err.Error(), "no such file or directory") {
			// No config file is fine; defaults apply.
		} else {
			panic(err.Error())
		}
	}
}

// SentropyConfig defines the available global configuration parameters for
// sentropy. It reads values straight from the config file (sentropy.yaml by
// default).
type SentropyConfig struct {
	Database struct {
		DSN              string `yaml:"dsn"`
		MaxConns         int32  `yaml:"max_conns"`
		ConnectTimeout   string `yaml:"connect_timeout"`
		StatementTimeout string `yaml:"statement_timeout"`
	} `yaml:"database"`

	ObjectStore struct {
		Region        string `yaml:"region"`
		ArchiveBucket string `yaml:"archive_bucket"`
		ResultBucket  string `yaml:"result_bucket"`
		Endpoint      string `yaml:"endpoint"`
	} `yaml:"object_store"`

	Queue struct {
		URLs              []string `yaml:"urls"`
		CrawlQueueName    string   `yaml:"crawl_queue_name"`
		ProcessQueueName  string   `yaml:"process_queue_name"`
		QueryQueueName    string   `yaml:"query_queue_name"`
		VisibilityTimeout string   `yaml:"visibility_timeout"`
	} `yaml:"queue"`

	TextExtractor struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"text_extractor"`

	Pipeline struct {
		StopListPath          string   `yaml:"stop_list_path"`
		KeywordLimit          int      `yaml:"keyword_limit"`
		MaxRetries            int      `yaml:"max_retries"`
		ArticleTimeout        string   `yaml:"article_timeout"`
		ClassifierTimeout     string   `yaml:"classifier_timeout"`
		CertainDatePosition   int      `yaml:"certain_date_position"`
		UncertainDatePosition int      `yaml:"uncertain_date_position"`
		UncertainYearMin      int      `yaml:"uncertain_year_min"`
		UncertainYearMax      int      `yaml:"uncertain_year_max"`
		HostDenylist          []string `yaml:"host_denylist"`
		NumWorkers            int      `yaml:"num_workers"`
		DomainResolveRetries  int      `yaml:"domain_resolve_retries"`
		KeywordCacheSize      int      `yaml:"keyword_cache_size"`
		DomainCacheSize       int      `yaml:"domain_cache_size"`
	} `yaml:"pipeline"`

	Query struct {
		StrictBigramFloor int      `yaml:"strict_bigram_floor"`
		AutoSeedDomains   int      `yaml:"auto_seed_domains"`
		TopDomainLinks    int      `yaml:"top_domain_links"`
		KeywordSampleSize int      `yaml:"keyword_sample_size"`
		KeywordFormats    []string `yaml:"keyword_formats"`
		NumWorkers        int      `yaml:"num_workers"`
	} `yaml:"query"`

	Notify struct {
		SMTPAddr string `yaml:"smtp_addr"`
		From     string `yaml:"from"`
	} `yaml:"notify"`
}

// SetDefaultConfig resets the Config object to default values, regardless of
// what was set by any configuration file.
//
// NOTE: go-yaml does not overwrite sequence values (it appends to them), so
// for any sequence value, readConfig must nil it out first and then fall
// back to the default here if yaml.Unmarshal left it empty.
func SetDefaultConfig() {
	Config.Database.DSN = "postgres://localhost:5432/sentropy?sslmode=disable"
	Config.Database.MaxConns = 10
	Config.Database.ConnectTimeout = "5s"
	Config.Database.StatementTimeout = "30s"

	Config.ObjectStore.Region = "us-east-1"
	Config.ObjectStore.ArchiveBucket = "archives.sentimentron.co.uk"
	Config.ObjectStore.ResultBucket = "results.sentimentron.co.uk"

	Config.Queue.CrawlQueueName = "crawl-queue"
	Config.Queue.ProcessQueueName = "process-queue"
	Config.Queue.QueryQueueName = "query-queue"
	Config.Queue.VisibilityTimeout = "120s"

	Config.TextExtractor.Timeout = "20s"

	Config.Pipeline.KeywordLimit = 32
	Config.Pipeline.MaxRetries = 2
	Config.Pipeline.ArticleTimeout = "2m"
	Config.Pipeline.ClassifierTimeout = "30s"
	Config.Pipeline.CertainDatePosition = 346
	Config.Pipeline.UncertainDatePosition = 307
	Config.Pipeline.UncertainYearMin = 2001
	Config.Pipeline.UncertainYearMax = 2009
	Config.Pipeline.HostDenylist = []string{"nasa.gov"}
	Config.Pipeline.NumWorkers = 4
	Config.Pipeline.DomainResolveRetries = 5
	Config.Pipeline.KeywordCacheSize = 65536
	Config.Pipeline.DomainCacheSize = 65536

	Config.Query.StrictBigramFloor = 100
	Config.Query.AutoSeedDomains = 5
	Config.Query.TopDomainLinks = 5
	Config.Query.KeywordSampleSize = 15
	Config.Query.KeywordFormats = []string{"X", "% X", "X %", "% X %"}
	Config.Query.NumWorkers = 4
}

// ReadConfigFile sets a new path to find the sentropy yaml config file and
// forces a reload of the config.
func ReadConfigFile(path string) error {
	ConfigName = path
	return readConfig()
}

func assertConfigInvariants() error {
	var errs []string

	if Config.Pipeline.KeywordLimit < 1 {
		errs = append(errs, "Pipeline.KeywordLimit must be greater than 0")
	}
	if Config.Pipeline.MaxRetries < 0 {
		errs = append(errs, "Pipeline.MaxRetries must not be negative")
	}
	if Config.Pipeline.DomainResolveRetries < 1 {
		errs = append(errs, "Pipeline.DomainResolveRetries must be greater than 0")
	}
	if Config.Pipeline.KeywordCacheSize < 1 {
		errs = append(errs, "Pipeline.KeywordCacheSize must be greater than 0")
	}
	if Config.Pipeline.DomainCacheSize < 1 {
		errs = append(errs, "Pipeline.DomainCacheSize must be greater than 0")
	}
	if Config.Pipeline.UncertainYearMin > Config.Pipeline.UncertainYearMax {
		errs = append(errs, "Pipeline.UncertainYearMin must be <= UncertainYearMax")
	}
	if Config.Query.StrictBigramFloor < 0 {
		errs = append(errs, "Query.StrictBigramFloor must not be negative")
	}
	if Config.Query.KeywordSampleSize < 0 {
		errs = append(errs, "Query.KeywordSampleSize must not be negative")
	}

	for name, s := range map[string]string{
		"Database.ConnectTimeout":    Config.Database.ConnectTimeout,
		"Database.StatementTimeout":  Config.Database.StatementTimeout,
		"Queue.VisibilityTimeout":    Config.Queue.VisibilityTimeout,
		"TextExtractor.Timeout":      Config.TextExtractor.Timeout,
		"Pipeline.ArticleTimeout":    Config.Pipeline.ArticleTimeout,
		"Pipeline.ClassifierTimeout": Config.Pipeline.ClassifierTimeout,
	} {
		if _, err := time.ParseDuration(s); err != nil {
			errs = append(errs, fmt.Sprintf("%s failed to parse: %v", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config error:\n\t%s\n", strings.Join(errs, "\n\t"))
	}
	return nil
}

func readConfig() error {
	data, err := os.ReadFile(ConfigName)
	if err != nil {
		return fmt.Errorf("failed to read config file (%v): %v", ConfigName, err)
	}

	// See NOTE in SetDefaultConfig regarding sequence values.
	Config.Pipeline.HostDenylist = nil
	Config.Query.KeywordFormats = nil
	if err := yaml.Unmarshal(data, &Config); err != nil {
		return fmt.Errorf("failed to unmarshal yaml from config file (%v): %v", ConfigName, err)
	}

	if len(Config.Pipeline.HostDenylist) == 0 {
		Config.Pipeline.HostDenylist = []string{"nasa.gov"}
	}
	if len(Config.Query.KeywordFormats) == 0 {
		Config.Query.KeywordFormats = []string{"X", "% X", "X %", "% X %"}
	}

	return assertConfigInvariants()
}
