package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/promptshop-mcp/internal/config"
	"github.com/ironsheep/promptshop-mcp/internal/imaging"
	"github.com/ironsheep/promptshop-mcp/internal/logging"
	"github.com/ironsheep/promptshop-mcp/internal/resource"
	"github.com/ironsheep/promptshop-mcp/internal/server"
	"github.com/ironsheep/promptshop-mcp/internal/tools"
	"github.com/ironsheep/promptshop-mcp/internal/upstream"
)

func newRootCommand() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "promptshop-mcp",
		Short: "MCP server for image generation, editing, background removal and hosting",
		Long: `promptshop-mcp exposes Gemini image generation and editing, remove.bg
background removal and freeimage.host hosting as MCP tools.

It communicates via MCP protocol over stdin/stdout. Configure it in your
MCP client (e.g., Claude Desktop).

Environment variables:
  GEMINI_API_KEY          Gemini credential (generate, edit)
  REMOVEBG_API_KEY        remove.bg credential (remove_background)
  FREEIMAGE_API_KEY       freeimage.host credential (host)
  PROMPTSHOP_OUTPUT_DIR   Directory for saved images, empty to disable
  PROMPTSHOP_LOG_LEVEL    debug, info, warn or error
  PROMPTSHOP_LOG_FORMAT   console or json`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, os.LookupEnv)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level, overrides "+config.EnvLogLevel)
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "promptshop-mcp %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Msg("starting promptshop-mcp")

	for _, name := range cfg.MissingCredentials() {
		logger.Warn().Str("variable", name).Msg("credential not set, tools that need it will fail")
	}

	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}

	reg := resource.New(resource.Options{
		Capacity: cfg.RegistryCapacity,
		TTL:      cfg.RegistryTTL,
		OnEvict: func(res resource.Resource) {
			logger.Debug().Str("resource", res.ID).Str("origin", string(res.Origin)).Msg("resource evicted")
		},
	})

	var store *imaging.DiskStore
	if cfg.OutputDir != "" {
		store = imaging.NewDiskStore(cfg.OutputDir)
	}

	d := tools.NewDispatcher(reg, svc, tools.Options{
		Store:         store,
		MaxImageBytes: cfg.MaxImageBytes,
		Logger:        logger.With().Str("component", "tools").Logger(),
	})
	srv := server.New(d, server.Options{
		Version:            Version,
		PreviewSize:        cfg.PreviewSize,
		MaxImageBytes:      cfg.MaxImageBytes,
		MaxConcurrentCalls: cfg.MaxConcurrentCalls,
		Logger:             logger.With().Str("component", "server").Logger(),
	})

	err = srv.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info().Msg("signal received, shutting down")
		return nil
	case err != nil:
		logger.Error().Err(err).Msg("server error")
		return err
	}
	logger.Info().Msg("stdin closed, shutting down")
	return nil
}

// newServices builds a client for every service whose credential is set.
// Services without a credential stay nil.
func newServices(ctx context.Context, cfg *config.Config) (tools.Services, error) {
	svc := tools.Services{
		Fetcher: &upstream.HTTPFetcher{
			Timeout:  cfg.DownloadTimeout,
			MaxBytes: cfg.MaxImageBytes,
		},
	}

	if key, err := cfg.Credential(config.EnvGeminiAPIKey); err == nil {
		g, err := upstream.NewGemini(ctx, upstream.GeminiConfig{
			APIKey:        key,
			GenerateModel: cfg.GenerateModel,
			EditModel:     cfg.EditModel,
			BaseURL:       cfg.GeminiBaseURL,
			Timeout:       cfg.GeminiTimeout,
			MaxBytes:      cfg.MaxImageBytes,
		})
		if err != nil {
			return tools.Services{}, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		svc.Generator = g
	}
	if key, err := cfg.Credential(config.EnvRemoveBGAPIKey); err == nil {
		svc.BackgroundRemover = upstream.NewRemoveBG(upstream.RemoveBGConfig{
			APIKey:   key,
			BaseURL:  cfg.RemoveBGBaseURL,
			Timeout:  cfg.UpstreamTimeout,
			MaxBytes: cfg.MaxImageBytes,
		})
	}
	if key, err := cfg.Credential(config.EnvFreeImageAPIKey); err == nil {
		svc.Host = upstream.NewFreeImage(upstream.FreeImageConfig{
			APIKey:  key,
			BaseURL: cfg.FreeImageBaseURL,
			Timeout: cfg.UpstreamTimeout,
		})
	}
	return svc, nil
}
