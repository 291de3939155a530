package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRunID returns run_<unix seconds>_<6 lowercase hex>
func NewRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("run_%d_%s", now.Unix(), suffix)
}

// newWorkspace creates a fresh directory for one job under root
func newWorkspace(root string, now time.Time) (Workspace, error) {
	id := NewRunID(now)
	dir := filepath.Join(root, id)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("failed to create workspace %s: %w", dir, err)
	}

	return Workspace{RunID: id, Dir: dir}, nil
}
