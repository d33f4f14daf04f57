// Package config loads the hft configuration.
//
// Settings come from a YAML file, then from the environment (a .env file in
// the working directory is loaded first), then from command line flags.
// Credentials are only read from the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/holdings/web"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvFinnhubKey = "FINNHUB_API_KEY"
	EnvUserAgent  = "SEC_USER_AGENT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvDataDir    = "HFT_DATA_DIR"
	EnvWorkers    = "HFT_WORKERS"
)

// Ticker cache store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config is the hft configuration.
type Config struct {
	DataDir   string  `yaml:"data_dir"`
	Roster    string  `yaml:"roster"`
	Workers   int     `yaml:"workers"`
	Threshold float64 `yaml:"threshold"`

	Tickers Tickers `yaml:"tickers"`
	Edgar   Edgar   `yaml:"edgar"`
	HTTP    HTTP    `yaml:"http"`
	Log     Log     `yaml:"log"`
}

// Tickers configures the ticker resolution chain.
type Tickers struct {
	Store       string   `yaml:"store"` // file or sqlite
	Path        string   `yaml:"path"`  // defaults to <data_dir>/tickers.csv or tickers.db
	Reference   []string `yaml:"reference"`
	Yahoo       bool     `yaml:"yahoo"`
	FinnhubRate float64  `yaml:"finnhub_rate"` // requests per second
	FinnhubKey  string   `yaml:"-"`
}

// Edgar configures the EDGAR client.
type Edgar struct {
	UserAgent string  `yaml:"user_agent"`
	Rate      float64 `yaml:"rate"`
}

// HTTP configures outbound calls.
type HTTP struct {
	Timeout  time.Duration `yaml:"timeout"`
	Retries  int           `yaml:"retries"`
	MinWait  time.Duration `yaml:"min_wait"`
	MaxWait  time.Duration `yaml:"max_wait"`
	CacheDir string        `yaml:"cache_dir"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DataDir:   "data",
		Roster:    "funds.yaml",
		Workers:   4,
		Threshold: 0.85,
		Tickers:   Tickers{Store: StoreFile, Yahoo: true, FinnhubRate: 1},
		Edgar:     Edgar{Rate: 8},
		HTTP:      HTTP{Timeout: 20 * time.Second, Retries: 3, MinWait: 500 * time.Millisecond, MaxWait: 10 * time.Second},
		Log:       Log{Level: "info", Format: "text"},
	}
}

// Load reads the configuration file at path, a missing file is not an error,
// then applies the environment.
func Load(path string) (Config, error) {
	c := Default()
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return c, err
	default:
		if c, err = Decode(bytes.NewReader(content)); err != nil {
			return c, fmt.Errorf("config %q: %w", path, err)
		}
	}

	// a missing .env file is fine.
	_ = godotenv.Load()
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// Decode reads a YAML configuration over the defaults.
func Decode(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return c, err
	}
	return c, nil
}

// ApplyEnv overrides c with the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvFinnhubKey); ok {
		c.Tickers.FinnhubKey = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvUserAgent); ok && v != "" {
		c.Edgar.UserAgent = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	return nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold must be in (0, 1], got %v", c.Threshold))
	}
	if c.Tickers.Store != StoreFile && c.Tickers.Store != StoreSQLite {
		errs = append(errs, fmt.Errorf("unknown ticker store %q", c.Tickers.Store))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SnapshotsDir is the root of the snapshot store.
func (c Config) SnapshotsDir() string { return filepath.Join(c.DataDir, "snapshots") }

// EventsFile is the event cache.
func (c Config) EventsFile() string { return filepath.Join(c.DataDir, "events.jsonl") }

// TickersPath is the ticker cache file or database.
func (c Config) TickersPath() string {
	if c.Tickers.Path != "" {
		return c.Tickers.Path
	}
	if c.Tickers.Store == StoreSQLite {
		return filepath.Join(c.DataDir, "tickers.db")
	}
	return filepath.Join(c.DataDir, "tickers.csv")
}

// HTTPOptions returns the options of the provider clients.
func (c Config) HTTPOptions() web.Options {
	return web.Options{
		Timeout:  c.HTTP.Timeout,
		Retries:  c.HTTP.Retries,
		MinWait:  c.HTTP.MinWait,
		MaxWait:  c.HTTP.MaxWait,
		CacheDir: c.HTTP.CacheDir,
	}
}

// EdgarOptions returns the options of the EDGAR client.
func (c Config) EdgarOptions() web.Options {
	o := c.HTTPOptions()
	o.UserAgent = c.Edgar.UserAgent
	o.Rate = c.Edgar.Rate
	return o
}

// Logger returns a logger writing to w.
func (c Config) Logger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return l, nil
}
