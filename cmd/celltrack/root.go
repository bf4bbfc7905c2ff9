package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/celltrack"
	"github.com/hupe1980/celltrack/blobstore"
	"github.com/hupe1980/celltrack/config"
)

type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "celltrack",
		Short:         "Cell lineage models with per-timepoint spatial indices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVarP(&g.dataDir, "data-dir", "d", "", "local storage directory (overrides the config storage)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newGenerateCmd(g),
		newInfoCmd(g),
		newNearestCmd(g),
		newClipCmd(g),
		newTrackCmd(g),
		newConfigCmd(g),
	)
	return root
}

// env is the configuration, store and logger shared by all subcommands.
type env struct {
	cfg    *config.Config
	store  blobstore.BlobStore
	logger *celltrack.Logger
}

func (g *globalFlags) config() (*config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return nil, err
		}
	} else {
		// Without a file the working directory is the store.
		cfg.Storage = config.StorageConfig{Kind: config.StorageLocal, Path: "."}
	}
	if g.dataDir != "" {
		cfg.Storage = config.StorageConfig{Kind: config.StorageLocal, Path: g.dataDir}
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (g *globalFlags) env(cmd *cobra.Command) (*env, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	store, err := cfg.OpenStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, store: store, logger: cfg.Logger(cmd.ErrOrStderr())}, nil
}

func (e *env) load(cmd *cobra.Command, name string) (*celltrack.Model, error) {
	m, err := celltrack.Load(cmd.Context(), e.store, name, e.cfg.LoadOptions(e.logger)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return m, nil
}

// parseFloats reads a comma separated list such as "1.5,2,-3".
func parseFloats(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty coordinate list")
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func formatFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', 6, 64)
	}
	return strings.Join(parts, ",")
}
