package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Sort keys accepted by the product search endpoint, forwarded
// verbatim as the sortOn parameter.
const (
	SortRelevance = "RELEVANCE"
	SortPriceAsc  = "PRICELOWHIGH"
	SortPriceDesc = "PRICEHIGHLOW"
)

type Config struct {
	Server   ServerConfig
	Crawl    CrawlConfig
	Site     SiteConfig
	API      APIConfig
	Output   OutputConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// CrawlConfig is the full option surface forwarded into fetch requests.
// Values are passed through verbatim; the upstream source decides what
// they mean.
type CrawlConfig struct {
	TaxonomyID string
	Query      string
	PageSize   int
	SortKey    string
	BonusOnly  bool
	MaxPages   int
	DelayMin   time.Duration
	DelayMax   time.Duration
}

type SiteConfig struct {
	BaseURL string
	Timeout time.Duration
}

type APIConfig struct {
	BaseURL  string
	ClientID string
	Timeout  time.Duration
}

type OutputConfig struct {
	Format string // stdout, csv or postgres
	Path   string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getIntOrDefault("SERVER_PORT", 8080),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Crawl: CrawlConfig{
			TaxonomyID: getEnvOrDefault("CRAWL_TAXONOMY_ID", "6401"),
			Query:      getEnvOrDefault("CRAWL_QUERY", ""),
			PageSize:   getIntOrDefault("CRAWL_PAGE_SIZE", 150),
			SortKey:    getEnvOrDefault("CRAWL_SORT", SortRelevance),
			BonusOnly:  getBoolOrDefault("CRAWL_BONUS_ONLY", false),
			MaxPages:   getIntOrDefault("CRAWL_MAX_PAGES", 5),
			DelayMin:   getDurationOrDefault("CRAWL_DELAY_MIN", 2*time.Second),
			DelayMax:   getDurationOrDefault("CRAWL_DELAY_MAX", 5*time.Second),
		},
		Site: SiteConfig{
			BaseURL: getEnvOrDefault("SITE_BASE_URL", "https://www.ah.nl"),
			Timeout: getDurationOrDefault("SITE_TIMEOUT", 30*time.Second),
		},
		API: APIConfig{
			BaseURL:  getEnvOrDefault("API_BASE_URL", "https://api.ah.nl"),
			ClientID: getEnvOrDefault("API_CLIENT_ID", "appie"),
			Timeout:  getDurationOrDefault("API_TIMEOUT", 30*time.Second),
		},
		Output: OutputConfig{
			Format: getEnvOrDefault("OUTPUT_FORMAT", "stdout"),
			Path:   getEnvOrDefault("OUTPUT_PATH", "."),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "groceries"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "products:discovered"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Crawl.PageSize < 1 {
		return fmt.Errorf("CRAWL_PAGE_SIZE must be at least 1")
	}

	if c.Crawl.MaxPages < 1 {
		return fmt.Errorf("CRAWL_MAX_PAGES must be at least 1")
	}

	switch c.Crawl.SortKey {
	case SortRelevance, SortPriceAsc, SortPriceDesc:
	default:
		return fmt.Errorf("CRAWL_SORT must be one of RELEVANCE, PRICELOWHIGH, PRICEHIGHLOW")
	}

	if c.Crawl.DelayMin > c.Crawl.DelayMax {
		return fmt.Errorf("CRAWL_DELAY_MIN cannot be greater than CRAWL_DELAY_MAX")
	}

	switch c.Output.Format {
	case "stdout", "csv", "postgres":
	default:
		return fmt.Errorf("OUTPUT_FORMAT must be one of stdout, csv, postgres")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
