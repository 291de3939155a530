package models

// Runner job statuses. Every runner-side failure is normalized to Failed.
const (
	JobSucceeded = "Succeeded"
	JobFailed    = "Failed"
)

// Runner job error markers
const (
	JobErrTimeout     = "Timeout"
	JobErrGitClone    = "git clone failed"
	JobErrGitCheckout = "git checkout failed"
)

// Runner endpoints, relative to RUNNER_BASE
const (
	RunnerPathHello          = "/run/hello"
	RunnerPathContainerSmoke = "/run/container_smoke"
	RunnerPathNFCoreDNASeq   = "/run/nfcore_dna_seq"
)

// RunnerResponse is the body every /run/* endpoint returns
type RunnerResponse struct {
	RunID           string   `json:"run_id"`
	Status          string   `json:"status"`
	Artifacts       []string `json:"artifacts"`
	StdoutTail      []string `json:"stdout_tail"`
	StderrTail      []string `json:"stderr_tail"`
	Error           string   `json:"error,omitempty"`
	NextflowLogTail []string `json:"nextflow_log_tail,omitempty"`
}

// Succeeded reports whether the runner reported exactly "Succeeded"
func (r *RunnerResponse) Succeeded() bool {
	return r != nil && r.Status == JobSucceeded
}

// NFCoreRequest is the named-pipeline payload. A nil Revision means the
// default branch; a nil Outdir means <run_dir>/out.
type NFCoreRequest struct {
	Repo       string   `json:"repo" validate:"required"`
	Revision   *string  `json:"revision"`
	Profile    string   `json:"profile" validate:"required"`
	StubRun    bool     `json:"stub_run"`
	DockerUser string   `json:"docker_user" validate:"required"`
	Outdir     *string  `json:"outdir"`
	ExtraArgs  []string `json:"extra_args"`
	MaxMemory  string   `json:"max_memory" validate:"required"`
	MaxCPUs    int      `json:"max_cpus" validate:"gte=1"`
	MaxTime    string   `json:"max_time" validate:"required"`
}

// RevisionOrEmpty returns the requested revision, or "" for the default branch
func (r *NFCoreRequest) RevisionOrEmpty() string {
	if r.Revision == nil {
		return ""
	}
	return *r.Revision
}
