package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Supported output formats.
const (
	FormatDXF     = "dxf"
	FormatCSV     = "csv"
	FormatGeoJSON = "geojson"
	FormatKML     = "kml"
)

// Config holds all run settings: environment variables provide defaults,
// command-line flags override them.
type Config struct {
	InputPath  string
	OutputPath string
	Formats    []string
	Strict     bool
	UTM        bool
	Progress   bool

	LogLevel  string
	LogFormat string

	// Elevation service configuration.
	ElevationEndpoint    string
	ElevationDataset     string
	ElevationBatchSize   int
	ElevationTimeout     time.Duration
	ElevationMaxRetries  int
	ElevationConcurrency int

	CacheEnabled bool
	CachePath    string

	ClusterEnabled bool
	ClusterEps     float64

	// Run metrics output.
	MetricsJSON  bool
	MetricsPath  string
	PromTextfile string
	HTTPAddr     string
	KafkaBrokers []string
	ReportTopic  string

	// ShutdownTimeout bounds draining the HTTP listener and flushing publishers.
	ShutdownTimeout time.Duration

	TracingEnabled  bool
	TracingExporter string
	TracingEndpoint string
}

// ClusterEpsilon returns the effective clustering distance; 0 disables clustering.
func (c *Config) ClusterEpsilon() float64 {
	if !c.ClusterEnabled {
		return 0
	}
	return c.ClusterEps
}

// Load reads configuration from environment variables, applying defaults where
// unset, then parses args (without the program name) as command-line flags.
func Load(args []string) (*Config, error) {
	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.parseFlags(args, os.Stderr); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	batchSize, err := envInt("ELEVATION_BATCH_SIZE", 100)
	if err != nil {
		return nil, err
	}
	maxRetries, err := envInt("ELEVATION_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	concurrency, err := envInt("ELEVATION_CONCURRENCY", 1)
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("ELEVATION_TIMEOUT", "10s"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid ELEVATION_TIMEOUT")
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	var brokers []string
	if raw := sharedcfg.EnvOrDefault("KAFKA_BROKERS", ""); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	return &Config{
		Formats:   []string{FormatDXF},
		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),

		ElevationEndpoint:    strings.TrimRight(sharedcfg.EnvOrDefault("ELEVATION_ENDPOINT", "https://api.opentopodata.org/v1"), "/"),
		ElevationDataset:     sharedcfg.EnvOrDefault("ELEVATION_DATASET", "etopo"),
		ElevationBatchSize:   batchSize,
		ElevationTimeout:     timeout,
		ElevationMaxRetries:  maxRetries,
		ElevationConcurrency: concurrency,

		CachePath: sharedcfg.EnvOrDefault("ELEVATION_CACHE_FILE", "elev_cache.json"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ""),
		KafkaBrokers:    brokers,
		ReportTopic:     sharedcfg.EnvOrDefault("REPORT_TOPIC", ""),
		ShutdownTimeout: shutdownTimeout,

		TracingEnabled:  sharedcfg.EnvOrDefault("TRACING_ENABLED", "false") == "true",
		TracingExporter: sharedcfg.EnvOrDefault("TRACING_EXPORTER", "stdout"),
		TracingEndpoint: sharedcfg.EnvOrDefault("TRACING_ENDPOINT", ""),
	}, nil
}

// NewFlagSet registers every command-line flag against cfg's current values.
func (c *Config) NewFlagSet(output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("kml2dxf", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&c.InputPath, "input", c.InputPath, "input KML file")
	fs.StringVar(&c.OutputPath, "output", c.OutputPath, "output file (e.g. out.dxf); other formats reuse its base name")
	fs.StringVar(&c.ElevationDataset, "dataset", c.ElevationDataset, "OpenTopoData dataset (e.g. srtm90m, etopo, aster30m)")
	fs.StringVar(&c.ElevationEndpoint, "endpoint", c.ElevationEndpoint, "elevation API base URL")
	fs.IntVar(&c.ElevationBatchSize, "batch-size", c.ElevationBatchSize, "locations per elevation request")
	fs.DurationVar(&c.ElevationTimeout, "timeout", c.ElevationTimeout, "timeout per elevation request attempt")
	fs.IntVar(&c.ElevationMaxRetries, "max-retries", c.ElevationMaxRetries, "retries per batch on server or network errors")
	fs.IntVar(&c.ElevationConcurrency, "concurrency", c.ElevationConcurrency, "batches resolved in parallel")
	fs.BoolVar(&c.Strict, "strict", c.Strict, "fail if any point lacks elevation")
	fs.Func("formats", "comma-separated output formats: dxf, csv, geojson, kml (default dxf)", func(s string) error {
		c.Formats = splitList(s)
		return nil
	})
	fs.BoolVar(&c.CacheEnabled, "cache", c.CacheEnabled, "enable the persistent elevation cache")
	fs.StringVar(&c.CachePath, "cache-file", c.CachePath, "elevation cache file")
	fs.BoolVar(&c.ClusterEnabled, "cluster", c.ClusterEnabled, "query one representative per cluster of nearby points")
	fs.Float64Var(&c.ClusterEps, "cluster-eps", c.ClusterEps, "clustering distance in degrees")
	fs.BoolVar(&c.UTM, "utm", c.UTM, "project coordinates to UTM easting/northing")
	fs.BoolVar(&c.Progress, "progress", c.Progress, "log elevation batch progress")
	fs.BoolVar(&c.MetricsJSON, "metrics-json", c.MetricsJSON, "emit run metrics as JSON")
	fs.StringVar(&c.MetricsPath, "metrics-out", c.MetricsPath, "write run metrics JSON to this file instead of stdout")
	fs.StringVar(&c.PromTextfile, "prom-textfile", c.PromTextfile, "write Prometheus metrics in textfile format after the run")
	fs.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "serve /healthz, /readyz and /metrics while running")
	fs.StringVar(&c.ReportTopic, "report-topic", c.ReportTopic, "Kafka topic receiving the run report (needs KAFKA_BROKERS)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "text or json")

	return fs
}

func (c *Config) parseFlags(args []string, output io.Writer) error {
	fs := c.NewFlagSet(output)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

func (c *Config) validate() error {
	if c.InputPath == "" {
		return errors.New("-input is required")
	}
	if c.OutputPath == "" {
		return errors.New("-output is required")
	}
	if c.ElevationDataset == "" {
		return errors.New("ELEVATION_DATASET must not be empty")
	}
	if c.ElevationBatchSize <= 0 {
		return errors.New("ELEVATION_BATCH_SIZE must be positive")
	}
	if c.ElevationTimeout <= 0 {
		return errors.New("ELEVATION_TIMEOUT must be positive")
	}
	if c.ElevationMaxRetries < 0 {
		return errors.New("ELEVATION_MAX_RETRIES must not be negative")
	}
	if c.ElevationConcurrency <= 0 {
		return errors.New("ELEVATION_CONCURRENCY must be positive")
	}
	if math.IsNaN(c.ClusterEps) || math.IsInf(c.ClusterEps, 0) {
		return fmt.Errorf("cluster epsilon must be a finite number, got %v", c.ClusterEps)
	}
	if c.ClusterEps < 0 {
		return errors.New("cluster epsilon must not be negative")
	}
	if c.CacheEnabled && c.CachePath == "" {
		return errors.New("cache enabled but ELEVATION_CACHE_FILE is empty")
	}
	if c.ReportTopic != "" && len(c.KafkaBrokers) == 0 {
		return errors.New("REPORT_TOPIC is set but KAFKA_BROKERS is empty")
	}
	if len(c.Formats) == 0 {
		return errors.New("at least one output format is required")
	}
	for _, f := range c.Formats {
		switch f {
		case FormatDXF, FormatCSV, FormatGeoJSON, FormatKML:
		default:
			return fmt.Errorf("unsupported output format %q", f)
		}
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	raw := sharedcfg.EnvOrDefault(key, strconv.Itoa(def))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
