// Package commands implements the scholar CLI.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/Sternrassler/scholar-serp/internal/config"
	"github.com/Sternrassler/scholar-serp/pkg/client"
	"github.com/Sternrassler/scholar-serp/pkg/logging"
	"github.com/Sternrassler/scholar-serp/pkg/scholar"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	apiKey     string
	lang       string
	format     string
	csvPath    string
	jsonPath   string
	logLevel   string
}

// app is the state built in PersistentPreRunE.
type app struct {
	opts   *options
	cfg    config.Config
	logger zerolog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:           "scholar",
		Short:         "scholar retrieves Google Scholar results through SerpApi.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "scholar.json5", "Config file; a <name>.local.<ext> file next to it overrides it.")
	flags.StringVar(&opts.apiKey, "api-key", "", "SerpApi API key (overrides config and SERPAPI_API_KEY).")
	flags.StringVar(&opts.lang, "lang", "", "Interface language (hl), e.g. en, de.")
	flags.StringVar(&opts.format, "format", "table", "Output format: table or json.")
	flags.StringVar(&opts.csvPath, "csv", "", "Also save the results to this CSV file.")
	flags.StringVar(&opts.jsonPath, "json", "", "Also save the results to this JSON file.")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error.")

	root.AddCommand(
		newOrganicCmd(a),
		newAuthorCmd(a),
		newMandatesCmd(a),
		newQuotaCmd(a),
	)

	return root
}

// ExecuteContext runs the CLI and exits non-zero on error.
func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	if a.opts.format != "table" && a.opts.format != "json" {
		return fmt.Errorf("unknown format %q (want table or json)", a.opts.format)
	}

	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.apiKey != "" {
		cfg.APIKey = a.opts.apiKey
	}
	if a.opts.lang != "" {
		cfg.Language = a.opts.lang
	}
	if a.opts.logLevel != "" {
		cfg.LogLevel = a.opts.logLevel
	}

	logging.Setup(cfg.LoggingConfig())
	a.cfg = cfg
	a.logger = logging.NewLogger(logging.ComponentCLI)
	return nil
}

// newClient builds a SerpApi client; the returned func releases it.
func (a *app) newClient(ctx context.Context) (*client.Client, func(), error) {
	redisClient, err := a.cfg.Redis()
	if err != nil {
		return nil, nil, err
	}
	if redisClient != nil {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			a.logger.Warn().Err(err).Msg("Redis unavailable - continuing without cache")
			redisClient.Close()
			redisClient = nil
		}
	}

	c, err := client.New(a.cfg.ClientConfig(redisClient))
	if err != nil {
		closeRedis(redisClient)
		return nil, nil, err
	}

	return c, func() {
		c.Close()
		closeRedis(redisClient)
	}, nil
}

func (a *app) newService(ctx context.Context) (*scholar.Service, func(), error) {
	c, release, err := a.newClient(ctx)
	if err != nil {
		return nil, nil, err
	}
	return scholar.NewService(c, a.cfg.PaginationConfig()), release, nil
}

func closeRedis(c *redis.Client) {
	if c != nil {
		c.Close()
	}
}
