// artifact-fetcher retrieves third-party build artifacts (language
// runtimes, compilers, CLI binaries) with checksum verification. It is
// invoked by feature install scripts during image construction; every
// subcommand prints its result to stdout and reports typed failures on
// stderr with exit code 1.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshjhall/artifact-fetcher/internal/config"
	"github.com/joshjhall/artifact-fetcher/internal/download"
	"github.com/joshjhall/artifact-fetcher/internal/fetch"
	"github.com/joshjhall/artifact-fetcher/internal/utils/logger"
)

// Persistent command flags
var (
	configFile string
	logLevel   string
	verbose    bool
)

// cfg is loaded once in the persistent pre-run and handed into each
// component explicitly.
var cfg *config.Config

func main() {
	rootCmd := createRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// createRootCommand builds the root command and wires all subcommands.
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "artifact-fetcher",
		Short: "integrity-verified retrieval of build artifacts",
		Long: `artifact-fetcher obtains a checksum for a requested artifact from the
most authoritative available source, validates it, downloads the
artifact, verifies the computed digest and only then installs the file.
Partial or unverified files never survive, even under interruption.

Prefer the pinned checksum table as the source; vendor-page scraping is
a brittle last resort.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupRuntime,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to fetcher.yaml (defaults apply when omitted)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Shorthand for --log-level debug")

	rootCmd.AddCommand(
		createResolveVersionCommand(),
		createFetchChecksumCommand(),
		createValidateChecksumCommand(),
		createDigestCommand(),
		createDownloadCommand(),
		createExtractCommand(),
	)
	return rootCmd
}

// setupRuntime loads configuration and initializes logging before any
// subcommand runs.
func setupRuntime(cmd *cobra.Command, args []string) error {
	var err error
	if configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	return logger.Init(resolveRequestedLogLevel())
}

// resolveRequestedLogLevel prefers the explicit flag, then --verbose,
// then the config file.
func resolveRequestedLogLevel() string {
	if logLevel != "" {
		return logLevel
	}
	if verbose {
		return "debug"
	}
	if cfg != nil && cfg.Logging.Level != "" {
		return cfg.Logging.Level
	}
	return "info"
}

// newFetchClient builds the single outbound HTTP client from config.
func newFetchClient() *fetch.Client {
	return fetch.NewClient(cfg.FetchOptions())
}

// newDownloader builds the orchestrator over the configured scratch
// directory.
func newDownloader() (*download.Downloader, error) {
	scratchDir, err := cfg.ResolveScratchDir()
	if err != nil {
		return nil, fmt.Errorf("resolving scratch directory: %w", err)
	}
	return download.NewDownloader(newFetchClient(), download.NewScratch(scratchDir), cfg.Progress), nil
}
