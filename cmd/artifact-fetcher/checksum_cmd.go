package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/joshjhall/artifact-fetcher/internal/checksum"
	"github.com/joshjhall/artifact-fetcher/internal/source"
)

// Checksum source flags, shared by fetch-checksum, download and extract
var (
	algorithmTag string
	sourceKind   string
	checksumURL  string
	artifactName string
	artifactVer  string
	filename     string
	pagePattern  string
)

// addSourceFlags registers the flags that identify a checksum source.
func addSourceFlags(fs *pflag.FlagSet) {
	fs.StringVar(&sourceKind, "source-kind", string(source.KindPinned),
		"Checksum source: pinned, aggregate-manifest, sidecar, registry-sidecar or vendor-page")
	fs.StringVar(&checksumURL, "checksum-url", "",
		"URL of the checksum document (not used by the pinned source)")
	fs.StringVar(&artifactName, "artifact", "",
		"Logical artifact name (pinned-table lookup and error messages)")
	fs.StringVar(&artifactVer, "artifact-version", "",
		"Concrete artifact version (pinned-table lookup)")
	fs.StringVar(&filename, "filename", "",
		"Release filename to match in manifests and sidecars")
	fs.StringVar(&pagePattern, "pattern", "",
		"Extraction regexp for vendor-page sources (one capture group)")
}

// fetchRecord resolves the flagged source into a checksum record.
func fetchRecord(cmd *cobra.Command) (checksum.Record, error) {
	algo, err := checksum.ParseAlgorithm(algorithmTag)
	if err != nil {
		return checksum.Record{}, err
	}
	kind, err := source.ParseKind(sourceKind)
	if err != nil {
		return checksum.Record{}, err
	}

	src, err := source.ForKind(kind, source.Deps{
		Client:          newFetchClient(),
		PinnedTablePath: cfg.PinnedChecksums,
	})
	if err != nil {
		return checksum.Record{}, err
	}

	return src.Checksum(cmd.Context(), source.Request{
		Artifact:  artifactName,
		Version:   artifactVer,
		Filename:  filename,
		Algorithm: algo,
		URL:       checksumURL,
		Pattern:   pagePattern,
	})
}

// createFetchChecksumCommand creates the fetch-checksum subcommand
func createFetchChecksumCommand() *cobra.Command {
	fetchCmd := &cobra.Command{
		Use:   "fetch-checksum",
		Short: "Obtain an artifact's checksum from a source",
		Long: `Fetch-checksum produces a structurally validated checksum from the
selected source and prints the hex digest. A source that only offers a
weaker algorithm than requested fails instead of substituting it.`,
		Args: cobra.NoArgs,
		RunE: executeFetchChecksum,
	}

	addSourceFlags(fetchCmd.Flags())
	fetchCmd.Flags().StringVar(&algorithmTag, "algorithm", "sha256",
		"Digest algorithm: sha1, sha256 or sha512")
	return fetchCmd
}

// executeFetchChecksum handles the fetch-checksum command logic
func executeFetchChecksum(cmd *cobra.Command, args []string) error {
	rec, err := fetchRecord(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), rec.Digest)
	return nil
}

// createValidateChecksumCommand creates the validate-checksum subcommand
func createValidateChecksumCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate-checksum DIGEST",
		Short: "Check a digest's structural well-formedness",
		Long: `Validate-checksum checks length and hex alphabet for the given
algorithm. It is purely structural and performs no network access.`,
		Args: cobra.ExactArgs(1),
		RunE: executeValidateChecksum,
	}

	validateCmd.Flags().StringVar(&algorithmTag, "algorithm", "sha256",
		"Digest algorithm: sha1, sha256 or sha512")
	return validateCmd
}

// executeValidateChecksum handles the validate-checksum command logic
func executeValidateChecksum(cmd *cobra.Command, args []string) error {
	algo, err := checksum.ParseAlgorithm(algorithmTag)
	if err != nil {
		return err
	}
	if err := checksum.Validate(args[0], algo); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

// createDigestCommand creates the digest subcommand
func createDigestCommand() *cobra.Command {
	digestCmd := &cobra.Command{
		Use:   "digest FILE",
		Short: "Compute a file's hex digest",
		Long: `Digest computes and prints the file's digest. Useful for adding
entries to the pinned checksum table.`,
		Args: cobra.ExactArgs(1),
		RunE: executeDigest,
	}

	digestCmd.Flags().StringVar(&algorithmTag, "algorithm", "sha256",
		"Digest algorithm: sha1, sha256 or sha512")
	return digestCmd
}

// executeDigest handles the digest command logic
func executeDigest(cmd *cobra.Command, args []string) error {
	algo, err := checksum.ParseAlgorithm(algorithmTag)
	if err != nil {
		return err
	}
	sum, err := checksum.File(args[0], algo)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sum)
	return nil
}
