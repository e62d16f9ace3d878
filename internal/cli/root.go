// Package cli implements the zukan command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/config"
	"github.com/hyperjump/zukan/internal/embedding"
	"github.com/hyperjump/zukan/internal/generate"
	"github.com/hyperjump/zukan/internal/session"
	"github.com/hyperjump/zukan/pkg/utils"
)

const defaultConfigPath = "/usr/local/etc/zukan/config.yaml"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	debug      bool
}

// env is what a command needs after flags are parsed.
type env struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	debug      bool
}

// NewRootCommand builds the zukan command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "zukan",
		Short: "Ask questions about the text and images of a PDF",
		Long: `zukan indexes the text and embedded images of a PDF in one embedding space,
retrieves the passages and pictures closest to a question or an image, and asks a
vision-capable model to answer from them.

Example usage:
  zukan ingest report.pdf --out ./index
  zukan ask --index ./index -q "How did revenue change?"
  zukan ask --index ./index --image chart.png
  zukan search --index ./index -q "revenue" --json`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newIngestCommand(opts),
		newAskCommand(opts),
		newSearchCommand(opts),
		newStatusCommand(opts),
		newServerCommand(opts),
		newVersionCommand(version),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute(version string) {
	if err := NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads config from path. When path is the default, a config.yaml in the
// current directory takes precedence; when neither exists the built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			cfg := config.Default()
			config.ApplyEnv(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the config and creates the logger. Commands other than server log only
// in debug mode so that their output stays readable.
func (o *globalOptions) setup(alwaysLog bool) (*env, error) {
	cfg, path, err := loadConfig(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || o.debug
	logger := zap.NewNop()
	if debug || alwaysLog {
		if logger, err = utils.NewLogger(debug); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.Bool("debug", debug))
	return &env{cfg: cfg, configPath: path, logger: logger, debug: debug}, nil
}

// openSession creates a session for e. With withGenerator, a missing or invalid generator
// configuration is an error when required and a warning otherwise.
func (e *env) openSession(ctx context.Context, withGenerator, required bool) (*session.Session, error) {
	embedder, err := embedding.New(e.cfg.Embedding, e.logger)
	if err != nil {
		return nil, err
	}
	opts := []session.Option{session.WithLogger(e.logger)}
	if withGenerator {
		gen, err := generate.New(ctx, e.cfg.Generator, e.logger)
		switch {
		case err == nil:
			opts = append(opts, session.WithGenerator(gen))
		case required:
			_ = embedder.Close()
			return nil, err
		default:
			e.logger.Warn("answer generation disabled", zap.Error(err))
		}
	}
	sess, err := session.New(embedder, e.cfg, opts...)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}
	return sess, nil
}

// indexDir returns dir, or the configured index path when dir is empty.
func (e *env) indexDir(dir string) string {
	if dir != "" {
		return dir
	}
	return e.cfg.Index.Path
}
