package download

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Scratch is the process-local directory for in-flight downloads. The
// directory may be shared by sequential invocations within one build;
// each temp file name embeds the process id, a timestamp and a random
// suffix so concurrently running build stages in separate processes
// cannot collide. Collision avoidance is by construction, not locking.
type Scratch struct {
	dir string
}

// NewScratch returns a Scratch rooted at dir, or under the system temp
// root when dir is empty.
func NewScratch(dir string) *Scratch {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "artifact-fetcher")
	}
	return &Scratch{dir: dir}
}

// Dir returns the scratch directory path.
func (s *Scratch) Dir() string { return s.dir }

// Allocate creates the scratch directory if needed and returns a fresh,
// invocation-unique temp file path. The file itself is not created;
// the caller owns it exclusively from here on.
func (s *Scratch) Allocate() (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating scratch directory %s: %w", s.dir, err)
	}
	name := fmt.Sprintf("dl-%d-%d-%s.partial",
		os.Getpid(), time.Now().UnixNano(), uuid.NewString()[:8])
	return filepath.Join(s.dir, name), nil
}
