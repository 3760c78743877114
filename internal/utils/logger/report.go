package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// InstallReport accumulates the verified installs of one build run so
// image builds can archive what was fetched and from where.
type InstallReport struct {
	Title string
	Items []string
}

var (
	reportMu      sync.Mutex
	installReport = InstallReport{Title: "VerifiedArtifacts"}
)

// RecordInstall appends one verified install to the run's report.
func RecordInstall(item string) {
	reportMu.Lock()
	defer reportMu.Unlock()
	installReport.Items = append(installReport.Items, item)
}

// WriteInstallReport appends the accumulated report to a text file
// under dir, one item per line, and resets the accumulator. The title
// is appended to the filename, e.g. fetched-VerifiedArtifacts.txt.
func WriteInstallReport(dir string) error {
	reportMu.Lock()
	defer reportMu.Unlock()

	if len(installReport.Items) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	title := installReport.Title
	if title == "" {
		title = "untitled"
	}
	// Sanitize the title for use in a filename
	safeTitle := ""
	for _, r := range title {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			safeTitle += string(r)
		} else {
			safeTitle += "_"
		}
	}

	reportFullPath := filepath.Join(dir, fmt.Sprintf("fetched-%s.txt", safeTitle))

	f, err := os.OpenFile(reportFullPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening report file: %w", err)
	}
	defer f.Close()

	for _, item := range installReport.Items {
		if _, err := fmt.Fprintln(f, item); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	installReport.Items = nil

	if _, err := fmt.Fprintln(f); err != nil {
		return fmt.Errorf("writing report separator: %w", err)
	}
	return nil
}
