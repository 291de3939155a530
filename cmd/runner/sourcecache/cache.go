package sourcecache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/genomeai/platform/cmd/runner/process"
	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/models"
	"github.com/genomeai/platform/common/telemetry"
	"github.com/google/uuid"
)

const failureTailLines = 20

// Failure is a git step that failed. Error() is the marker reported to callers.
type Failure struct {
	Marker     string
	StderrTail []string
}

func (f *Failure) Error() string {
	return f.Marker
}

// Key identifies one cache slot
type Key struct {
	Name     string // escaped repository basename
	Revision string // escaped revision or "default"
}

// ErrUnsafeSource is returned for a repository or revision that cannot name a slot
var ErrUnsafeSource = errors.New("unsafe pipeline source")

// RepoName returns the last path element of a repository URL or path
func RepoName(repo string) string {
	repo = strings.TrimRight(repo, "/")
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		return repo[i+1:]
	}
	return repo
}

// CheckSource rejects a repository whose name is empty or hidden and a
// revision with empty, "." or ".." path components. "" selects the default branch.
func CheckSource(repo, revision string) error {
	name := strings.TrimSpace(RepoName(repo))
	if name == "" || strings.HasPrefix(name, ".") || strings.Contains(name, `\`) {
		return fmt.Errorf("%w: repository name %q", ErrUnsafeSource, RepoName(repo))
	}
	if revision == "" {
		return nil
	}
	if strings.Contains(revision, `\`) {
		return fmt.Errorf("%w: revision %q", ErrUnsafeSource, revision)
	}
	for _, part := range strings.Split(revision, "/") {
		if p := strings.TrimSpace(part); p == "" || p == "." || p == ".." {
			return fmt.Errorf("%w: revision %q", ErrUnsafeSource, revision)
		}
	}
	return nil
}

// KeyFor derives the slot key of a repository and optional revision.
// Both parts are path-escaped so distinct revisions never share a slot.
func KeyFor(repo, revision string) Key {
	if revision == "" {
		revision = "default"
	}
	return Key{Name: url.PathEscape(RepoName(repo)), Revision: url.PathEscape(revision)}
}

func (k Key) String() string {
	return k.Name + "/" + k.Revision
}

// Lease pins a resolved checkout. The janitor never evicts a leased slot.
type Lease struct {
	Dir string
	Key Key
	Hit bool

	once    sync.Once
	release func()
}

// Release unpins the slot. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(l.release)
}

// Cache resolves pipeline sources to local checkouts under root/<name>/<revision>.
// Clone, fetch and checkout for one key are serialized; distinct keys run in parallel.
type Cache struct {
	root  string
	git   string
	exec  process.Executor
	locks *keyedLocks
	log   *logger.Logger
	now   func() time.Time
}

// New creates a cache rooted at root, creating the directory
func New(root, gitBin string, exec process.Executor, log *logger.Logger) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache root %s: %w", root, err)
	}
	return &Cache{
		root:  root,
		git:   gitBin,
		exec:  exec,
		locks: newKeyedLocks(),
		log:   log,
		now:   time.Now,
	}, nil
}

// Dir returns the slot directory of a key
func (c *Cache) Dir(k Key) string {
	return filepath.Join(c.root, k.Name, k.Revision)
}

// slotDir returns the directory of key, refusing anything that does not sit
// exactly two levels below the root
func (c *Cache) slotDir(key Key) (string, error) {
	dir := c.Dir(key)
	rel, err := filepath.Rel(c.root, dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsafeSource, err)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || strings.HasPrefix(parts[0], ".") {
		return "", fmt.Errorf("%w: slot %s resolves to %s", ErrUnsafeSource, key, rel)
	}
	return dir, nil
}

// Resolve returns a leased checkout of repo at revision ("" = default branch).
// It clones on a miss and refreshes on a hit. Git failures are returned as *Failure.
func (c *Cache) Resolve(ctx context.Context, repo, revision string) (*Lease, error) {
	key := KeyFor(repo, revision)
	dir, err := c.slotDir(key)
	if err != nil {
		return nil, err
	}
	log := c.log.WithFields(map[string]any{"cache_key": key.String()})

	if err := c.locks.lock(ctx, key.String()); err != nil {
		return nil, fmt.Errorf("failed waiting for cache slot %s: %w", key, err)
	}
	defer c.locks.unlock(key.String())

	hit := isCheckout(dir)
	if hit {
		log.Info("source cache hit, refreshing", "dir", dir)
		err = c.refresh(ctx, dir, revision)
	} else {
		log.Info("source cache miss, cloning", "repo", repo, "dir", dir)
		err = c.clone(ctx, repo, revision, dir)
	}

	op := "clone"
	if hit {
		op = "refresh"
	}
	if err != nil {
		telemetry.SourceCacheOps.WithLabelValues(op, "error").Inc()
		return nil, err
	}
	telemetry.SourceCacheOps.WithLabelValues(op, "ok").Inc()

	now := c.now()
	if err := os.Chtimes(dir, now, now); err != nil {
		log.Warn("failed to touch cache slot", "dir", dir, "error", err)
	}

	c.locks.addLease(key.String())
	return &Lease{
		Dir: dir,
		Key: key,
		Hit: hit,
		release: func() {
			c.locks.dropLease(key.String())
		},
	}, nil
}

func isCheckout(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

func (c *Cache) gitCmd(ctx context.Context, dir string, args ...string) (process.Result, error) {
	return c.exec.Run(ctx, process.Command{Name: c.git, Args: args, Dir: dir})
}

func (c *Cache) clone(ctx context.Context, repo, revision, dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("failed to create cache parent: %w", err)
	}

	tmp := filepath.Join(c.root, ".tmp_"+strings.ReplaceAll(uuid.NewString(), "-", "")[:6])

	res, err := c.gitCmd(ctx, c.root, "clone", "--depth", "1", repo, tmp)
	if err != nil {
		os.RemoveAll(tmp)
		return err
	}
	if res.TimedOut || res.ExitCode != 0 {
		os.RemoveAll(tmp)
		return c.failure(ctx, models.JobErrGitClone, res.Stderr)
	}

	if revision != "" {
		fetch, err := c.gitCmd(ctx, tmp, "fetch", "--depth", "1", "origin", revision)
		if err != nil {
			os.RemoveAll(tmp)
			return err
		}
		// A failed fetch leaves the default branch checked out
		if !fetch.TimedOut && fetch.ExitCode == 0 {
			co, err := c.gitCmd(ctx, tmp, "checkout", revision)
			if err != nil {
				os.RemoveAll(tmp)
				return err
			}
			if co.TimedOut || co.ExitCode != 0 {
				os.RemoveAll(tmp)
				return c.failure(ctx, models.JobErrGitCheckout, firstNonEmpty(co.Stderr, fetch.Stderr))
			}
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("failed to clear cache slot %s: %w", dir, err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("failed to move clone into %s: %w", dir, err)
	}

	return nil
}

func (c *Cache) refresh(ctx context.Context, dir, revision string) error {
	// Best effort; the cached tree is still usable offline
	fetch, err := c.gitCmd(ctx, dir, "fetch", "--tags", "--depth", "1", "origin")
	if err != nil {
		return err
	}

	if revision == "" {
		return nil
	}

	co, err := c.gitCmd(ctx, dir, "checkout", revision)
	if err != nil {
		return err
	}
	if co.TimedOut || co.ExitCode != 0 {
		return c.failure(ctx, models.JobErrGitCheckout, firstNonEmpty(co.Stderr, fetch.Stderr))
	}
	return nil
}

// failure reports the job deadline as a timeout rather than a git error
func (c *Cache) failure(ctx context.Context, marker, stderr string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ctx.Err()
	}
	return &Failure{Marker: marker, StderrTail: process.Tail(stderr, failureTailLines)}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
