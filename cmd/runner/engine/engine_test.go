package engine

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/genomeai/platform/cmd/runner/process"
	"github.com/genomeai/platform/cmd/runner/sourcecache"
	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExec plays both git and nextflow
type fakeExec struct {
	mu       sync.Mutex
	commands []process.Command

	nextflow   process.Result
	nextflowFn func(ctx context.Context, cmd process.Command) (process.Result, error)
	gitFn      func(ctx context.Context, cmd process.Command) (process.Result, error)
	gitFailOn  string
	writeFiles bool
}

func (f *fakeExec) Run(ctx context.Context, cmd process.Command) (process.Result, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	if cmd.Name == "git" {
		if f.gitFn != nil {
			return f.gitFn(ctx, cmd)
		}
		if cmd.Args[0] == f.gitFailOn {
			return process.Result{ExitCode: 128, Stderr: "fatal: repository not found"}, nil
		}
		if cmd.Args[0] == "clone" {
			target := cmd.Args[len(cmd.Args)-1]
			return process.Result{}, os.MkdirAll(filepath.Join(target, ".git"), 0o755)
		}
		return process.Result{}, nil
	}

	if f.writeFiles {
		for _, name := range []string{"report.html", "trace.txt", "timeline.html"} {
			_ = os.WriteFile(filepath.Join(cmd.Dir, name), []byte("x"), 0o644)
		}
		_ = os.WriteFile(filepath.Join(cmd.Dir, ".nextflow.log"), []byte("log line 1\nlog line 2\n"), 0o644)
	}

	if f.nextflowFn != nil {
		return f.nextflowFn(ctx, cmd)
	}
	return f.nextflow, nil
}

func (f *fakeExec) count(name, sub string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.commands {
		if c.Name == name && (sub == "" || c.Args[0] == sub) {
			n++
		}
	}
	return n
}

func (f *fakeExec) last(name string) process.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.commands) - 1; i >= 0; i-- {
		if f.commands[i].Name == name {
			return f.commands[i]
		}
	}
	return process.Command{}
}

// fakeCollector reports an artifact per existing report file
type fakeCollector struct{}

func (fakeCollector) Collect(_ context.Context, ws Workspace) []string {
	out := []string{}
	for _, p := range ws.Artifacts() {
		if _, err := os.Stat(p); err == nil {
			out = append(out, "s3://runs/"+ws.RunID+"/logs/"+filepath.Base(p))
		}
	}
	return out
}

func newTestEngine(t *testing.T, exec *fakeExec) (*Engine, *sourcecache.Cache) {
	t.Helper()
	log := logger.Discard()

	cache, err := sourcecache.New(t.TempDir(), "git", exec, log)
	require.NoError(t, err)

	e, err := New(Config{
		WorkDir:      t.TempDir(),
		PipelinesDir: "/app/pipelines",
		NextflowBin:  "nextflow",
	}, exec, cache, fakeCollector{}, log)
	require.NoError(t, err)
	return e, cache
}

var runIDPattern = regexp.MustCompile(`^run_\d+_[0-9a-f]{6}$`)

func TestNewRunID(t *testing.T) {
	id := NewRunID(time.Unix(1700000000, 0))
	assert.Regexp(t, runIDPattern, id)
	assert.True(t, strings.HasPrefix(id, "run_1700000000_"))
	assert.NotEqual(t, id, NewRunID(time.Unix(1700000000, 0)))
}

func TestRunHello_Succeeded(t *testing.T) {
	exec := &fakeExec{
		nextflow:   process.Result{ExitCode: 0, Stdout: "N E X T F L O W\nHello world!\n"},
		writeFiles: true,
	}
	e, _ := newTestEngine(t, exec)

	resp, err := e.RunHello(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.JobSucceeded, resp.Status)
	assert.Regexp(t, runIDPattern, resp.RunID)
	assert.Equal(t, []string{"N E X T F L O W", "Hello world!"}, resp.StdoutTail)
	assert.Len(t, resp.Artifacts, 3)
	assert.Empty(t, resp.Error)

	cmd := exec.last("nextflow")
	assert.Equal(t, "/app/pipelines/hello.nf", cmd.Args[1])
	assert.NotContains(t, cmd.Args, "-c")
	assert.DirExists(t, filepath.Join(e.cfg.WorkDir, resp.RunID))
}

func TestRunHello_NonZeroExit(t *testing.T) {
	exec := &fakeExec{nextflow: process.Result{ExitCode: 1, Stderr: "ERROR ~ boom"}}
	e, _ := newTestEngine(t, exec)

	resp, err := e.RunHello(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.JobFailed, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, []string{"ERROR ~ boom"}, resp.StderrTail)
	assert.Empty(t, resp.Artifacts)
}

func TestRunHello_Timeout(t *testing.T) {
	exec := &fakeExec{
		writeFiles: true,
		nextflowFn: func(ctx context.Context, cmd process.Command) (process.Result, error) {
			<-ctx.Done()
			return process.Result{ExitCode: -1, TimedOut: true, Stdout: "partial"}, nil
		},
	}
	e, _ := newTestEngine(t, exec)
	e.hello.Timeout = 20 * time.Millisecond

	resp, err := e.RunHello(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.JobFailed, resp.Status)
	assert.Equal(t, models.JobErrTimeout, resp.Error)
	assert.Equal(t, []string{"partial"}, resp.StdoutTail)
	assert.Empty(t, resp.Artifacts, "timed out jobs report no artifacts")
}

func TestRunContainerSmoke_WritesConfigAndLogTail(t *testing.T) {
	exec := &fakeExec{writeFiles: true}
	e, _ := newTestEngine(t, exec)

	resp, err := e.RunContainerSmoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, resp.Status)
	assert.Equal(t, []string{"log line 1", "log line 2"}, resp.NextflowLogTail)

	ws := Workspace{RunID: resp.RunID, Dir: filepath.Join(e.cfg.WorkDir, resp.RunID)}
	data, err := os.ReadFile(ws.Config())
	require.NoError(t, err)
	assert.Contains(t, string(data), "docker.runOptions = '-u 0:0'")
	assert.Contains(t, string(data), "workDir = '"+ws.WorkDir()+"'")

	cmd := exec.last("nextflow")
	assert.Equal(t, "/app/pipelines/container_hello.nf", cmd.Args[1])
	assert.Contains(t, cmd.Args, "-c")
}

func TestRunNFCore_Defaults(t *testing.T) {
	exec := &fakeExec{writeFiles: true}
	e, cache := newTestEngine(t, exec)

	req, err := DecodeNFCore(nil)
	require.NoError(t, err)

	resp, err := e.RunNFCore(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, resp.Status)

	cmd := exec.last("nextflow")
	ws := Workspace{RunID: resp.RunID, Dir: filepath.Join(e.cfg.WorkDir, resp.RunID)}

	assert.Equal(t, cache.Dir(sourcecache.KeyFor("https://github.com/nf-core/sarek", "3.5.1")), cmd.Args[1])
	assert.Equal(t, ws.Dir, cmd.Dir)
	assert.Contains(t, cmd.Env, "NXF_IGNORE_MAX_RESOURCES=true")

	joined := strings.Join(cmd.Args, " ")
	assert.Contains(t, joined, "-profile test,docker")
	assert.Contains(t, joined, "--outdir "+filepath.Join(ws.Dir, "out"))
	assert.Contains(t, joined, "-r 3.5.1")
	assert.Contains(t, joined, "-stub-run")
	assert.Contains(t, joined, "--max_cpus 2")
	assert.DirExists(t, filepath.Join(ws.Dir, "out"))

	data, err := os.ReadFile(ws.Config())
	require.NoError(t, err)
	assert.Contains(t, string(data), "process.containerOptions = '--user 0:0'")
}

func TestRunNFCore_NullRevisionUsesDefaultBranch(t *testing.T) {
	exec := &fakeExec{}
	e, cache := newTestEngine(t, exec)

	req, err := DecodeNFCore([]byte(`{"revision": null, "stub_run": false, "extra_args": ["--tools", "haplotypecaller"]}`))
	require.NoError(t, err)
	assert.Nil(t, req.Revision)

	_, err = e.RunNFCore(context.Background(), req)
	require.NoError(t, err)

	cmd := exec.last("nextflow")
	assert.Equal(t, cache.Dir(sourcecache.Key{Name: "sarek", Revision: "default"}), cmd.Args[1])
	assert.NotContains(t, cmd.Args, "-r")
	assert.NotContains(t, cmd.Args, "-stub-run")
	assert.Equal(t, []string{"--tools", "haplotypecaller"}, cmd.Args[len(cmd.Args)-2:])
	assert.Equal(t, 0, exec.count("git", "fetch"), "default branch clone needs no fetch")
}

func TestRunNFCore_RepeatedRunsShareCheckout(t *testing.T) {
	exec := &fakeExec{}
	e, _ := newTestEngine(t, exec)

	req, err := DecodeNFCore(nil)
	require.NoError(t, err)

	first, err := e.RunNFCore(context.Background(), req)
	require.NoError(t, err)
	second, err := e.RunNFCore(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, 1, exec.count("git", "clone"))
	assert.Equal(t, 2, exec.count("nextflow", ""))
}

func TestRunNFCore_CloneFailure(t *testing.T) {
	exec := &fakeExec{gitFailOn: "clone"}
	e, _ := newTestEngine(t, exec)

	req, err := DecodeNFCore([]byte(`{"repo": "https://example.invalid/missing"}`))
	require.NoError(t, err)

	resp, err := e.RunNFCore(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.JobFailed, resp.Status)
	assert.Equal(t, models.JobErrGitClone, resp.Error)
	assert.Equal(t, []string{"fatal: repository not found"}, resp.StderrTail)
	assert.Regexp(t, runIDPattern, resp.RunID)
	assert.Equal(t, 0, exec.count("nextflow", ""))
}

func TestRunNFCore_UnsafeRevisionLeavesCacheIntact(t *testing.T) {
	exec := &fakeExec{}
	e, cache := newTestEngine(t, exec)

	req, err := DecodeNFCore(nil)
	require.NoError(t, err)
	_, err = e.RunNFCore(context.Background(), req)
	require.NoError(t, err)
	slot := cache.Dir(sourcecache.KeyFor(req.Repo, req.RevisionOrEmpty()))
	require.DirExists(t, slot)

	parent := ".."
	req.Revision = &parent
	_, err = e.RunNFCore(context.Background(), req)

	var perr *PayloadError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, sourcecache.ErrUnsafeSource)
	assert.DirExists(t, slot)
	assert.Equal(t, 1, exec.count("git", "clone"))
}

func TestRunNFCore_DeadlineDuringSourceResolution(t *testing.T) {
	exec := &fakeExec{
		gitFn: func(ctx context.Context, _ process.Command) (process.Result, error) {
			<-ctx.Done()
			return process.Result{ExitCode: -1, TimedOut: true}, nil
		},
	}
	e, _ := newTestEngine(t, exec)
	e.nfcore.Timeout = 30 * time.Millisecond

	req, err := DecodeNFCore(nil)
	require.NoError(t, err)

	resp, err := e.RunNFCore(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.JobFailed, resp.Status)
	assert.Equal(t, models.JobErrTimeout, resp.Error)
	assert.Equal(t, 0, exec.count("nextflow", ""))
}

func TestRunNFCore_ExecutorErrorIsReturned(t *testing.T) {
	exec := &fakeExec{
		nextflowFn: func(context.Context, process.Command) (process.Result, error) {
			return process.Result{}, os.ErrNotExist
		},
	}
	e, _ := newTestEngine(t, exec)

	req, err := DecodeNFCore(nil)
	require.NoError(t, err)

	resp, err := e.RunNFCore(context.Background(), req)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, resp)
}

func TestDecodeNFCore(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		req, err := DecodeNFCore([]byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, "https://github.com/nf-core/sarek", req.Repo)
		assert.Equal(t, "3.5.1", req.RevisionOrEmpty())
		assert.Equal(t, "test,docker", req.Profile)
		assert.True(t, req.StubRun)
		assert.Equal(t, "0:0", req.DockerUser)
		assert.Nil(t, req.Outdir)
		assert.Equal(t, "3.GB", req.MaxMemory)
		assert.Equal(t, 2, req.MaxCPUs)
		assert.Equal(t, "2.h", req.MaxTime)
	})

	t.Run("override and unknown fields", func(t *testing.T) {
		req, err := DecodeNFCore([]byte(`{"profile": "docker", "revision": "dev", "unknown": 1}`))
		require.NoError(t, err)
		assert.Equal(t, "docker", req.Profile)
		assert.Equal(t, "dev", req.RevisionOrEmpty())
	})

	t.Run("empty revision", func(t *testing.T) {
		req, err := DecodeNFCore([]byte(`{"revision": ""}`))
		require.NoError(t, err)
		assert.Nil(t, req.Revision)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, body := range []string{
			`{"max_cpus": 0}`,
			`{"repo": null}`,
			`{"profile": 7}`,
			`[1, 2]`,
			`not json`,
		} {
			_, err := DecodeNFCore([]byte(body))
			var perr *PayloadError
			assert.ErrorAs(t, err, &perr, body)
		}
	})

	t.Run("source that cannot name a cache slot", func(t *testing.T) {
		for _, body := range []string{
			`{"revision": ".."}`,
			`{"revision": "."}`,
			`{"revision": "  "}`,
			`{"revision": "feature/../../x"}`,
			`{"revision": "a\\b"}`,
			`{"repo": "https://github.com/nf-core/.."}`,
			`{"repo": "https://github.com/nf-core/./"}`,
			`{"repo": "/"}`,
		} {
			_, err := DecodeNFCore([]byte(body))
			var perr *PayloadError
			require.ErrorAs(t, err, &perr, body)
			assert.ErrorIs(t, err, sourcecache.ErrUnsafeSource, body)
		}
	})

	t.Run("slashed revision", func(t *testing.T) {
		req, err := DecodeNFCore([]byte(`{"revision": "feature/x"}`))
		require.NoError(t, err)
		assert.Equal(t, "feature/x", req.RevisionOrEmpty())
	})
}

func TestBuildArgs(t *testing.T) {
	ws := Workspace{RunID: "run_1_abcdef", Dir: "/data/runs/run_1_abcdef"}

	args := BuildArgs(ws, RunArgs{Pipeline: "/app/pipelines/hello.nf"})
	assert.Equal(t, []string{
		"run", "/app/pipelines/hello.nf",
		"-with-report", "/data/runs/run_1_abcdef/report.html",
		"-with-trace", "/data/runs/run_1_abcdef/trace.txt",
		"-with-timeline", "/data/runs/run_1_abcdef/timeline.html",
		"-w", "/data/runs/run_1_abcdef/work",
	}, args)
}
