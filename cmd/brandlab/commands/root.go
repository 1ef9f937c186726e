package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ukaseai/brandlab/internal/config"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
	"github.com/ukaseai/brandlab/internal/provenance"
)

var (
	configPath string
	cfg        *config.Config

	rootCmd = &cobra.Command{
		Use:   "brandlab",
		Short: "BrandLab content branding and distribution",
		Long: `Command line access to the BrandLab pipeline.
Recipient lists are parsed and validated, generated content is stamped with
the ownership notice, images get the visible watermark, and campaigns are
personalized and sent through the configured email provider.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			var err error
			cfg, err = config.LoadFromEnv(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
			logger.SetRedactPII(cfg.Log.Redact())
			logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "Path to configuration file")
}

// GetRootCmd returns the root command for testing purposes
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func embedder() *provenance.Embedder {
	return provenance.NewEmbedder(provenance.Signature(cfg.Branding.Product, cfg.Branding.Platform))
}

// openInput opens path, or stdin for "" and "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}
