package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Collect  CollectConfig  `mapstructure:"collect"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig configures the collect-run ledger.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`   // sqlite file
	URL             string        `mapstructure:"url"`    // postgres DSN
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

// StorageConfig configures the S3-compatible bucket the corpus is published to.
type StorageConfig struct {
	Type              string `mapstructure:"type"` // r2, s3, s3compatible
	Endpoint          string `mapstructure:"endpoint"`
	AccessKey         string `mapstructure:"access_key"`
	SecretKey         string `mapstructure:"secret_key"`
	UseSSL            bool   `mapstructure:"use_ssl"`
	Bucket            string `mapstructure:"bucket"`
	Region            string `mapstructure:"region"`
	PublicURL         string `mapstructure:"public_url"`
	CorpusKey         string `mapstructure:"corpus_key"`
	PublishAfterMerge bool   `mapstructure:"publish_after_merge"`
}

// Configured reports whether enough settings exist to build a client.
func (c *StorageConfig) Configured() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type CollectConfig struct {
	CorpusPath     string        `mapstructure:"corpus_path"`
	OutputDir      string        `mapstructure:"output_dir"`
	FilterLogDir   string        `mapstructure:"filter_log_dir"`
	DefaultLimit   int           `mapstructure:"default_limit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	BrowserAgent   string        `mapstructure:"browser_agent"`
}

// FilterConfig extends the built-in keyword lists.
type FilterConfig struct {
	ExtraBlockKeywords  []string `mapstructure:"extra_block_keywords"`
	ExtraReviewKeywords []string `mapstructure:"extra_review_keywords"`
	ExtraURLPatterns    []string `mapstructure:"extra_url_patterns"`
}

type SourcesConfig struct {
	Civitai    CivitaiConfig    `mapstructure:"civitai"`
	PromptHero PromptHeroConfig `mapstructure:"prompthero"`
	Midjourney MidjourneyConfig `mapstructure:"midjourney"`
	Staging    StagingConfig    `mapstructure:"staging"`
}

type CivitaiConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIURL  string `mapstructure:"api_url"`
	Sort    string `mapstructure:"sort"`
	Period  string `mapstructure:"period"`
}

type PromptHeroConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

type MidjourneyConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	APIURL      string `mapstructure:"api_url"`
	FallbackURL string `mapstructure:"fallback_url"`
}

type StagingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.bucket", "S3_BUCKET")
	v.BindEnv("storage.public_url", "S3_PUBLIC_URL")
	v.BindEnv("collect.corpus_path", "PROMPTS_FILE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/promptvault.db")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.corpus_key", "data/prompts.json")
	v.SetDefault("storage.publish_after_merge", false)

	v.SetDefault("collect.corpus_path", "data/prompts.json")
	v.SetDefault("collect.output_dir", "scrapers/output")
	v.SetDefault("collect.filter_log_dir", "scrapers/output/filter_logs")
	v.SetDefault("collect.default_limit", 50)
	v.SetDefault("collect.request_timeout", 30*time.Second)
	v.SetDefault("collect.user_agent", "PromptVault/1.0")
	v.SetDefault("collect.browser_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) "+
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	v.SetDefault("sources.civitai.enabled", true)
	v.SetDefault("sources.civitai.api_url", "https://civitai.com/api/v1/images")
	v.SetDefault("sources.civitai.sort", "Most Reactions")
	v.SetDefault("sources.civitai.period", "Week")
	v.SetDefault("sources.prompthero.enabled", true)
	v.SetDefault("sources.prompthero.base_url", "https://prompthero.com")
	v.SetDefault("sources.midjourney.enabled", true)
	v.SetDefault("sources.midjourney.api_url", "https://www.midjourney.com/api/app/recent-jobs")
	v.SetDefault("sources.midjourney.fallback_url", "https://midlibrary.io/styles?sort=trending")
	v.SetDefault("sources.staging.enabled", true)
	v.SetDefault("sources.staging.path", "./data/staging")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
