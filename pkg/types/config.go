package types

import "time"

// HTTPConfig holds shared HTTP settings used by both record system clients.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "barcode-sync/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RequestsPerSecond caps the request rate. Zero disables limiting.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// MaxRetries is the retry budget for 429 and 5xx responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// AlmaEnvironment selects which Alma API key is used.
type AlmaEnvironment string

const (
	AlmaSandbox    AlmaEnvironment = "sandbox"
	AlmaProduction AlmaEnvironment = "production"
)

// AlmaConfig holds settings for the holdings/inventory side.
type AlmaConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the Alma API host (e.g. "https://api-na.hosted.exlibrisgroup.com").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Environment picks the API key: sandbox or production.
	Environment AlmaEnvironment `json:"environment" yaml:"environment" mapstructure:"environment"`

	// APIKey overrides the key otherwise loaded from secrets for Environment.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// PageSize is the number of items requested per page (default 100, Alma max).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`
}

// ASpaceConfig holds settings for the collection-management side.
type ASpaceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the ArchivesSpace backend API root (e.g. "http://localhost:8089").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Repository is the numeric repository ID (default 2).
	Repository int `json:"repository" yaml:"repository" mapstructure:"repository"`

	Username string `json:"username" yaml:"username" mapstructure:"username"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
}

// DatabaseConfig holds the ArchivesSpace MySQL connection used when the
// top container API is too slow for large resources.
type DatabaseConfig struct {
	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	User     string `json:"user" yaml:"user" mapstructure:"user"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
}

// CacheConfig controls the local record cache.
type CacheConfig struct {
	// Dir holds cache.db and cache.lock.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Disabled bypasses the cache entirely.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`

	// MaxAge expires cached snapshots. Zero keeps them until cleared.
	MaxAge time.Duration `json:"max_age" yaml:"max_age" mapstructure:"max_age"`
}

// ReportFormat selects the unhandled-data report encoding.
type ReportFormat string

const (
	ReportJSON ReportFormat = "json"
	ReportYAML ReportFormat = "yaml"
	ReportCSV  ReportFormat = "csv"
)

// ReportConfig controls where run reports are written.
type ReportConfig struct {
	Dir    string       `json:"dir" yaml:"dir" mapstructure:"dir"`
	Format ReportFormat `json:"format" yaml:"format" mapstructure:"format"`
}

// LogConfig controls run logging.
type LogConfig struct {
	// Dir receives one JSON-lines log file per run.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Level is a zerolog level name (debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "auto", "console", or "json" for stderr output.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups every setting the CLI reads from file, env, and flags.
type Config struct {
	Profile  string         `json:"profile" yaml:"profile" mapstructure:"profile"`
	Alma     AlmaConfig     `json:"alma" yaml:"alma" mapstructure:"alma"`
	ASpace   ASpaceConfig   `json:"aspace" yaml:"aspace" mapstructure:"aspace"`
	Database DatabaseConfig `json:"database" yaml:"database" mapstructure:"database"`
	Cache    CacheConfig    `json:"cache" yaml:"cache" mapstructure:"cache"`
	Report   ReportConfig   `json:"report" yaml:"report" mapstructure:"report"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Profile: "indicator-type",
		Alma: AlmaConfig{
			HTTPConfig: HTTPConfig{
				Timeout:           60 * time.Second,
				UserAgent:         "barcode-sync/0.1",
				RequestsPerSecond: 20,
				MaxRetries:        5,
			},
			BaseURL:     "https://api-na.hosted.exlibrisgroup.com",
			Environment: AlmaSandbox,
			PageSize:    100,
		},
		ASpace: ASpaceConfig{
			HTTPConfig: HTTPConfig{
				Timeout:           60 * time.Second,
				UserAgent:         "barcode-sync/0.1",
				RequestsPerSecond: 10,
				MaxRetries:        5,
			},
			BaseURL:    "http://localhost:8089",
			Repository: 2,
		},
		Database: DatabaseConfig{Port: 3306},
		Cache:    CacheConfig{Dir: "cache"},
		Report:   ReportConfig{Dir: "reports", Format: ReportJSON},
		Log:      LogConfig{Dir: "logs", Level: "info", Format: "auto"},
	}
}
