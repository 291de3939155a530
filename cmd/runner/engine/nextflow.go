package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/genomeai/platform/cmd/runner/process"
)

// Workspace is the per-job directory layout
type Workspace struct {
	RunID string
	Dir   string
}

func (w Workspace) Report() string   { return filepath.Join(w.Dir, "report.html") }
func (w Workspace) Trace() string    { return filepath.Join(w.Dir, "trace.txt") }
func (w Workspace) Timeline() string { return filepath.Join(w.Dir, "timeline.html") }
func (w Workspace) Config() string   { return filepath.Join(w.Dir, "nextflow.config") }
func (w Workspace) WorkDir() string  { return filepath.Join(w.Dir, "work") }
func (w Workspace) Log() string      { return filepath.Join(w.Dir, ".nextflow.log") }

// Artifacts lists the engine reports in upload order
func (w Workspace) Artifacts() []string {
	return []string{w.Report(), w.Trace(), w.Timeline()}
}

// SmokeConfig renders the container smoke nextflow.config
func SmokeConfig(ws Workspace) string {
	return fmt.Sprintf(`process.executor = 'local'
docker.enabled = true
docker.runOptions = '-u 0:0'
workDir = '%s'
`, ws.WorkDir())
}

// NFCoreConfig renders the named-pipeline nextflow.config
func NFCoreConfig(ws Workspace, dockerUser string) string {
	return fmt.Sprintf(`process.executor = 'local'
docker.enabled = true
process.containerOptions = '--user %s'
workDir = '%s'
`, dockerUser, ws.WorkDir())
}

func writeConfig(ws Workspace, body string) error {
	if err := os.WriteFile(ws.Config(), []byte(body), 0o644); err != nil {
		return fmt.Errorf("failed to write nextflow.config: %w", err)
	}
	return nil
}

// RunArgs describes one `nextflow run` invocation
type RunArgs struct {
	Pipeline   string
	Profile    string
	WithConfig bool

	// named pipeline only
	Outdir    string
	Revision  string
	StubRun   bool
	ExtraArgs []string
	MaxMemory string
	MaxCPUs   int
	MaxTime   string
}

// BuildArgs renders the argument vector after the nextflow binary
func BuildArgs(ws Workspace, a RunArgs) []string {
	args := []string{"run", a.Pipeline}

	if a.Profile != "" {
		args = append(args, "-profile", a.Profile)
	}

	args = append(args,
		"-with-report", ws.Report(),
		"-with-trace", ws.Trace(),
		"-with-timeline", ws.Timeline(),
	)

	if a.WithConfig {
		args = append(args, "-c", ws.Config())
	}

	args = append(args, "-w", ws.WorkDir())

	if a.Outdir != "" {
		args = append(args, "--outdir", a.Outdir)
	}
	if a.Revision != "" {
		args = append(args, "-r", a.Revision)
	}
	if a.StubRun {
		args = append(args, "-stub-run")
	}
	if a.MaxMemory != "" {
		args = append(args, "--max_memory", a.MaxMemory)
	}
	if a.MaxCPUs > 0 {
		args = append(args, "--max_cpus", strconv.Itoa(a.MaxCPUs))
	}
	if a.MaxTime != "" {
		args = append(args, "--max_time", a.MaxTime)
	}

	return append(args, a.ExtraArgs...)
}

// readLogTail returns the last n lines of the engine log, or an empty slice
func readLogTail(path string, n int) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{}
	}
	return process.Tail(string(data), n)
}
