package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshjhall/artifact-fetcher/internal/utils/logger"
	"github.com/joshjhall/artifact-fetcher/internal/version"
)

// createResolveVersionCommand creates the resolve-version subcommand
func createResolveVersionCommand() *cobra.Command {
	resolveCmd := &cobra.Command{
		Use:   "resolve-version ECOSYSTEM SPEC",
		Short: "Resolve a partial version specifier to a concrete version",
		Long: `Resolve turns an "X.Y" specifier into the newest matching concrete
version using the ecosystem's canonical release listing (go, node or
python). Bare majors and already-concrete versions pass through
unchanged without a network call.`,
		Args: cobra.ExactArgs(2),
		RunE: executeResolveVersion,
	}
	return resolveCmd
}

// executeResolveVersion handles the resolve-version command logic
func executeResolveVersion(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	eco, err := version.ParseEcosystem(args[0])
	if err != nil {
		return err
	}
	spec := args[1]

	resolver := version.NewResolver(newFetchClient())
	concrete, err := resolver.Resolve(cmd.Context(), eco, spec)
	if err != nil {
		return err
	}

	log.Debugf("resolved %s %q -> %s", eco, spec, concrete)
	fmt.Fprintln(cmd.OutOrStdout(), concrete)
	return nil
}
