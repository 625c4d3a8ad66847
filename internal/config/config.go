package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port string `toml:"port"`
	// MaxUploadBytes caps a signature upload.
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type StorageConfig struct {
	Dir string `toml:"dir"`
}

type ScannerConfig struct {
	Threshold float64 `toml:"threshold"`
	Workers   int     `toml:"workers"`
}

type SuspicionConfig struct {
	Threshold float64 `toml:"threshold"`
}

type CacheConfig struct {
	Capacity      int      `toml:"capacity"`
	Timeout       Duration `toml:"timeout"`
	MaxConcurrent int      `toml:"max_concurrent"`
	// QueueTimeout bounds the wait for a free validator slot.
	QueueTimeout Duration `toml:"queue_timeout"`
}

type ImagingConfig struct {
	GridWidth           int   `toml:"grid_width"`
	GridHeight          int   `toml:"grid_height"`
	Levels              int   `toml:"levels"`
	MonochromeTolerance uint8 `toml:"monochrome_tolerance"`
	// MaxPixels rejects uploads whose decoded size would exceed it.
	MaxPixels int `toml:"max_pixels"`
}

type ValidatorConfig struct {
	// Kind is "ink" for the local check or "model" for a vision LLM.
	Kind          string  `toml:"kind"`
	MinInk        float64 `toml:"min_ink"`
	MaxInk        float64 `toml:"max_ink"`
	MinStrokeRows int     `toml:"min_stroke_rows"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Storage   StorageConfig   `toml:"storage"`
	Scanner   ScannerConfig   `toml:"scanner"`
	Suspicion SuspicionConfig `toml:"suspicion"`
	Cache     CacheConfig     `toml:"cache"`
	Imaging   ImagingConfig   `toml:"imaging"`
	Validator ValidatorConfig `toml:"validator"`
	LLM       LLMConfig       `toml:"llm"`
	Memgraph  MemgraphConfig  `toml:"memgraph"`
}

// Duration decodes TOML strings such as "5s" into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			MaxUploadBytes: 2 * 1024 * 1024,
		},
		Database: DatabaseConfig{Path: "data/attendance.db"},
		Storage:  StorageConfig{Dir: "storage"},
		Scanner: ScannerConfig{
			Threshold: 0.95,
		},
		Suspicion: SuspicionConfig{Threshold: 0.8},
		Cache: CacheConfig{
			Capacity:      10000,
			Timeout:       Duration{5 * time.Second},
			MaxConcurrent: 8,
			QueueTimeout:  Duration{10 * time.Second},
		},
		Imaging: ImagingConfig{
			GridWidth:           64,
			GridHeight:          32,
			Levels:              8,
			MonochromeTolerance: 24,
			MaxPixels:           4_000_000,
		},
		Validator: ValidatorConfig{
			Kind:          "ink",
			MinInk:        0.01,
			MaxInk:        0.6,
			MinStrokeRows: 2,
		},
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides file values with environment variables when set.
func (c *Config) ApplyEnv() error {
	overrides := map[string]*string{
		"PORT":              &c.Server.Port,
		"DATABASE_PATH":     &c.Database.Path,
		"STORAGE_DIR":       &c.Storage.Dir,
		"VALIDATOR_KIND":    &c.Validator.Kind,
		"LLM_PROVIDER":      &c.LLM.Provider,
		"LLM_MODEL":         &c.LLM.Model,
		"LLM_API_KEY":       &c.LLM.APIKey,
		"LLM_BASE_URL":      &c.LLM.BaseURL,
		"MEMGRAPH_URI":      &c.Memgraph.URI,
		"MEMGRAPH_USER":     &c.Memgraph.User,
		"MEMGRAPH_PASSWORD": &c.Memgraph.Password,
	}
	for key, dest := range overrides {
		if v := os.Getenv(key); v != "" {
			*dest = v
		}
	}

	if v := os.Getenv("SCANNER_THRESHOLD"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid value for SCANNER_THRESHOLD: %w", err)
		}
		c.Scanner.Threshold = parsed
	}
	if v := os.Getenv("CACHE_CAPACITY"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid value for CACHE_CAPACITY: %w", err)
		}
		c.Cache.Capacity = parsed
	}

	return nil
}

func (c *Config) Validate() error {
	if c.Scanner.Threshold < 0 || c.Scanner.Threshold > 1 {
		return fmt.Errorf("scanner.threshold must be between 0.0 and 1.0 (got %.2f)", c.Scanner.Threshold)
	}
	if c.Suspicion.Threshold < 0 {
		return fmt.Errorf("suspicion.threshold cannot be negative (got %.2f)", c.Suspicion.Threshold)
	}
	if c.Imaging.GridWidth <= 0 || c.Imaging.GridHeight <= 0 {
		return fmt.Errorf("imaging grid must be positive (got %dx%d)", c.Imaging.GridWidth, c.Imaging.GridHeight)
	}
	if c.Imaging.Levels < 2 || c.Imaging.Levels > 256 {
		return fmt.Errorf("imaging.levels must be between 2 and 256 (got %d)", c.Imaging.Levels)
	}
	if c.Cache.QueueTimeout.Duration < 0 {
		return fmt.Errorf("cache.queue_timeout cannot be negative (got %v)", c.Cache.QueueTimeout.Duration)
	}
	if c.Imaging.MaxPixels <= 0 {
		return fmt.Errorf("imaging.max_pixels must be positive (got %d)", c.Imaging.MaxPixels)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive (got %d)", c.Server.MaxUploadBytes)
	}
	switch c.Validator.Kind {
	case "ink":
		if c.Validator.MinInk < 0 || c.Validator.MaxInk > 1 || c.Validator.MinInk > c.Validator.MaxInk {
			return fmt.Errorf("validator ink bounds must satisfy 0 <= min_ink <= max_ink <= 1 (got %.2f, %.2f)",
				c.Validator.MinInk, c.Validator.MaxInk)
		}
	case "model":
		if c.LLM.Provider == "" {
			return fmt.Errorf("validator kind 'model' requires llm.provider")
		}
	default:
		return fmt.Errorf("unsupported validator kind: %s", c.Validator.Kind)
	}
	return nil
}
