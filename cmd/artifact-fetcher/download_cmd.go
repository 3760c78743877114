package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshjhall/artifact-fetcher/internal/checksum"
	"github.com/joshjhall/artifact-fetcher/internal/download"
	"github.com/joshjhall/artifact-fetcher/internal/utils/logger"
)

// Download command flags
var (
	literalChecksum string
	archiveFormat   string
)

// resolveRecord builds the checksum record for a download: either the
// digest given literally on the command line, or one fetched from the
// flagged source.
func resolveRecord(cmd *cobra.Command) (checksum.Record, error) {
	if literalChecksum != "" {
		algo, err := checksum.ParseAlgorithm(algorithmTag)
		if err != nil {
			return checksum.Record{}, err
		}
		rec := checksum.Record{
			Digest:     literalChecksum,
			Algorithm:  algo,
			Provenance: "command line",
		}
		if err := rec.Validate(); err != nil {
			return checksum.Record{}, err
		}
		return rec, nil
	}
	return fetchRecord(cmd)
}

// createDownloadCommand creates the download subcommand
func createDownloadCommand() *cobra.Command {
	downloadCmd := &cobra.Command{
		Use:   "download URL DEST",
		Short: "Download an artifact, verify it and install it atomically",
		Long: `Download streams the artifact into the scratch directory, verifies
its digest against the checksum record and only then renames it to
DEST. On any failure DEST is untouched and no partial file survives.`,
		Args: cobra.ExactArgs(2),
		RunE: executeDownload,
	}

	addSourceFlags(downloadCmd.Flags())
	downloadCmd.Flags().StringVar(&algorithmTag, "algorithm", "sha256",
		"Digest algorithm: sha1, sha256 or sha512")
	downloadCmd.Flags().StringVar(&literalChecksum, "checksum", "",
		"Expected hex digest; overrides the checksum source")
	return downloadCmd
}

// executeDownload handles the download command logic
func executeDownload(cmd *cobra.Command, args []string) error {
	url, dest := args[0], args[1]

	rec, err := resolveRecord(cmd)
	if err != nil {
		return err
	}

	downloader, err := newDownloader()
	if err != nil {
		return err
	}
	if err := downloader.Verify(cmd.Context(), url, dest, rec); err != nil {
		return err
	}

	logger.RecordInstall(fmt.Sprintf("%s %s -> %s", rec.Algorithm, url, dest))
	return writeReport()
}

// writeReport archives the run's verified installs when a report
// directory is configured.
func writeReport() error {
	if cfg.ReportDir == "" {
		return nil
	}
	return logger.WriteInstallReport(cfg.ReportDir)
}

// createExtractCommand creates the extract subcommand
func createExtractCommand() *cobra.Command {
	extractCmd := &cobra.Command{
		Use:   "extract URL DESTDIR",
		Short: "Download an archive, verify it and unpack it",
		Long: `Extract verifies the downloaded archive exactly like download, then
unpacks it into DESTDIR. Verification always targets the archive
itself; extraction happens only after the digest matches.`,
		Args: cobra.ExactArgs(2),
		RunE: executeExtract,
	}

	addSourceFlags(extractCmd.Flags())
	extractCmd.Flags().StringVar(&algorithmTag, "algorithm", "sha256",
		"Digest algorithm: sha1, sha256 or sha512")
	extractCmd.Flags().StringVar(&literalChecksum, "checksum", "",
		"Expected hex digest; overrides the checksum source")
	extractCmd.Flags().StringVar(&archiveFormat, "format", "",
		"Archive format: tar.gz, tar.xz, tar.zst or zip (inferred from URL when omitted)")
	return extractCmd
}

// executeExtract handles the extract command logic
func executeExtract(cmd *cobra.Command, args []string) error {
	url, destDir := args[0], args[1]

	rec, err := resolveRecord(cmd)
	if err != nil {
		return err
	}

	var format download.ArchiveFormat
	if archiveFormat != "" {
		format, err = download.ParseFormat(archiveFormat)
		if err != nil {
			return err
		}
	}

	downloader, err := newDownloader()
	if err != nil {
		return err
	}
	if err := downloader.VerifyAndExtract(cmd.Context(), url, destDir, rec, format); err != nil {
		return err
	}

	logger.RecordInstall(fmt.Sprintf("%s %s -> %s/", rec.Algorithm, url, destDir))
	return writeReport()
}
