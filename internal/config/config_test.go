package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Network.ConnectTimeoutSeconds <= 0 {
		t.Error("default connect timeout must be bounded and positive")
	}
	if cfg.Network.TransferTimeoutSeconds <= 0 {
		t.Error("default transfer timeout must be bounded and positive")
	}
	if cfg.Network.Retries < 0 {
		t.Error("default retries must not be negative")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetcher.yaml")
	content := `
scratchDir: /var/tmp/fetcher
pinnedChecksums: /etc/fetcher/checksums.yaml
progress: false
network:
  connectTimeoutSeconds: 5
  transferTimeoutSeconds: 120
  retries: 1
  retryBackoffSeconds: 1
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ScratchDir != "/var/tmp/fetcher" {
		t.Errorf("scratchDir = %q", cfg.ScratchDir)
	}
	if cfg.PinnedChecksums != "/etc/fetcher/checksums.yaml" {
		t.Errorf("pinnedChecksums = %q", cfg.PinnedChecksums)
	}
	if cfg.Progress {
		t.Error("progress should be disabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q", cfg.Logging.Level)
	}

	opts := cfg.FetchOptions()
	if opts.ConnectTimeout != 5*time.Second {
		t.Errorf("connect timeout = %s", opts.ConnectTimeout)
	}
	if opts.TransferTimeout != 120*time.Second {
		t.Errorf("transfer timeout = %s", opts.TransferTimeout)
	}
	if opts.Retries != 1 {
		t.Errorf("retries = %d", opts.Retries)
	}
}

func TestParsePartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("progress: false\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Network.ConnectTimeoutSeconds != Default().Network.ConnectTimeoutSeconds {
		t.Error("unset network values should keep defaults")
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("scrachDir: /oops\n")); err == nil {
		t.Error("expected schema to reject misspelled key")
	}
}

func TestParseRejectsWrongTypes(t *testing.T) {
	if _, err := Parse([]byte("network:\n  retries: many\n")); err == nil {
		t.Error("expected schema to reject non-integer retries")
	}
}

func TestParseRejectsInvalidLogLevel(t *testing.T) {
	if _, err := Parse([]byte("logging:\n  level: loud\n")); err == nil {
		t.Error("expected invalid log level to fail")
	}
}

func TestParseRejectsNonPositiveTimeouts(t *testing.T) {
	if _, err := Parse([]byte("network:\n  connectTimeoutSeconds: 0\n")); err == nil {
		t.Error("expected zero connect timeout to fail")
	}
}

func TestResolveScratchDirDefaultsUnderTempRoot(t *testing.T) {
	cfg := Default()
	dir, err := cfg.ResolveScratchDir()
	if err != nil {
		t.Fatalf("ResolveScratchDir failed: %v", err)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("scratch dir %q is not absolute", dir)
	}
}
