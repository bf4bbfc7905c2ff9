package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/celltrack"
	"github.com/hupe1980/celltrack/resource"
)

// Storage kinds accepted in StorageConfig.Kind.
const (
	StorageLocal  = "local"
	StorageMemory = "memory"
	StorageMinio  = "minio"
	StorageS3     = "s3"
)

// Config is the file-level configuration of a celltrack deployment.
type Config struct {
	// Graph sizes the vertex and edge pools.
	Graph GraphConfig `yaml:"graph"`

	// Index tunes spatial index maintenance.
	Index IndexConfig `yaml:"index"`

	// Storage selects where models are saved and loaded.
	Storage StorageConfig `yaml:"storage"`

	// Resources bounds memory, rebuild concurrency and IO.
	Resources ResourceConfig `yaml:"resources"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

// GraphConfig sizes the graph pools.
type GraphConfig struct {
	Dimensions           int  `yaml:"dimensions" validate:"gte=1,lte=16"`
	InitialCapacity      int  `yaml:"initial_capacity" validate:"gte=0"`
	VertexAttributeBytes int  `yaml:"vertex_attribute_bytes" validate:"gte=0"`
	EdgeAttributeBytes   int  `yaml:"edge_attribute_bytes" validate:"gte=0"`
	OffHeap              bool `yaml:"off_heap"`
}

// IndexConfig tunes the spatio-temporal index.
type IndexConfig struct {
	RebuildThreshold    int           `yaml:"rebuild_threshold" validate:"gte=0"`
	MaintenanceInterval time.Duration `yaml:"maintenance_interval" validate:"gte=0"`
}

// StorageConfig selects a blob store backend.
type StorageConfig struct {
	Kind      string `yaml:"kind" validate:"required,oneof=local memory minio s3"`
	Path      string `yaml:"path" validate:"required_if=Kind local"`
	Bucket    string `yaml:"bucket" validate:"required_if=Kind minio,required_if=Kind s3"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint" validate:"required_if=Kind minio"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	PathStyle bool   `yaml:"path_style"`
}

// ResourceConfig mirrors resource.Config.
type ResourceConfig struct {
	MemoryLimitBytes     int64 `yaml:"memory_limit_bytes" validate:"gte=0"`
	MaxBackgroundWorkers int64 `yaml:"max_background_workers" validate:"gte=0"`
	IOLimitBytesPerSec   int64 `yaml:"io_limit_bytes_per_sec" validate:"gte=0"`
}

// LogConfig configures the model logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Default returns the configuration used when no file is given: an
// in-memory store and three-dimensional positions.
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			Dimensions: 3,
		},
		Index: IndexConfig{
			RebuildThreshold: 64,
		},
		Storage: StorageConfig{
			Kind: StorageMemory,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and validates the YAML file at path. Missing keys keep their
// Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse the config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML key.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

// FieldError names one invalid field by its dotted YAML path.
type FieldError struct {
	Path  string
	Rule  string
	Param string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Param != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", f.Path, f.Rule, f.Param))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Path, f.Rule))
		}
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		// Namespace is "Config.storage.bucket"; drop the root type name.
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		out.Fields = append(out.Fields, FieldError{Path: path, Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// Logger builds the model logger described by Log, writing to w.
func (c *Config) Logger(w io.Writer) *celltrack.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Log.Level)}
	if c.Log.Format == "json" {
		return celltrack.NewLogger(slog.NewJSONHandler(w, opts))
	}
	return celltrack.NewLogger(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ResourceController returns nil when no limit is configured.
func (c *Config) ResourceController() *resource.Controller {
	r := c.Resources
	if r.MemoryLimitBytes == 0 && r.MaxBackgroundWorkers == 0 && r.IOLimitBytesPerSec == 0 {
		return nil
	}
	return resource.NewController(resource.Config{
		MemoryLimitBytes:     r.MemoryLimitBytes,
		MaxBackgroundWorkers: r.MaxBackgroundWorkers,
		IOLimitBytesPerSec:   r.IOLimitBytesPerSec,
	})
}

// ModelOptions translates the configuration into options for celltrack.New.
// extra options are appended and take precedence.
func (c *Config) ModelOptions(logger *celltrack.Logger, extra ...celltrack.Option) []celltrack.Option {
	opts := append(c.runtimeOptions(logger),
		celltrack.WithDimensions(c.Graph.Dimensions),
		celltrack.WithInitialCapacity(c.Graph.InitialCapacity),
		celltrack.WithVertexAttributeBytes(c.Graph.VertexAttributeBytes),
		celltrack.WithEdgeAttributeBytes(c.Graph.EdgeAttributeBytes),
		celltrack.WithOffHeap(c.Graph.OffHeap),
	)
	return append(opts, extra...)
}

// LoadOptions translates the configuration into options for celltrack.Load.
// Pool sizing comes from the saved model, so Graph is ignored apart from
// OffHeap.
func (c *Config) LoadOptions(logger *celltrack.Logger, extra ...celltrack.Option) []celltrack.Option {
	opts := append(c.runtimeOptions(logger), celltrack.WithOffHeap(c.Graph.OffHeap))
	return append(opts, extra...)
}

func (c *Config) runtimeOptions(logger *celltrack.Logger) []celltrack.Option {
	opts := []celltrack.Option{
		celltrack.WithRebuildThreshold(c.Index.RebuildThreshold),
		celltrack.WithMaintenanceInterval(c.Index.MaintenanceInterval),
		celltrack.WithLogger(logger),
	}
	if rc := c.ResourceController(); rc != nil {
		opts = append(opts, celltrack.WithResourceController(rc))
	}
	return opts
}
