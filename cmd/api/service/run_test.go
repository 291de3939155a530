package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/clients"
	"github.com/genomeai/platform/common/logger"
	commonmodels "github.com/genomeai/platform/common/models"
	"github.com/genomeai/platform/common/ratelimit"
	"github.com/genomeai/platform/common/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runFixture struct {
	svc     *RunService
	runs    *fakeRuns
	events  *fakePublisher
	audit   *fakeAuditStore
	members *fakeMembers
	limiter *fakeLimiter
	editor  *models.User
}

func strp(s string) *string { return &s }

func newRunFixture(t *testing.T, runner Dispatcher) *runFixture {
	t.Helper()
	log := logger.Discard()

	members := newFakeMembers()
	authz := NewAuthorizer(members)
	auditStore := &fakeAuditStore{}
	audit := NewAuditService(auditStore, authz, log)
	runs := newFakeRuns()
	events := &fakePublisher{}
	limiter := &fakeLimiter{result: &ratelimit.RateLimitResult{Allowed: true, Limit: 5}}

	editor := &models.User{ID: "u-editor", Username: "ed", Role: models.RoleViewer}
	members.add("p1", editor.ID, models.RoleEditor)

	workflows := fakeWorkflows{
		"wf-named": {
			ID:             "wf-named",
			Name:           "nf-core/dna-seq-3.10",
			Version:        "3.10",
			DispatchTarget: models.TargetNamedPipeline,
			DispatchPayload: map[string]interface{}{
				"repo":     "https://github.com/nf-core/sarek",
				"revision": "3.5.1",
				"profile":  "test,docker",
				"stub_run": true,
			},
		},
		"wf-smoke":  {ID: "wf-smoke", Name: "custom-pipeline", Version: "1", DispatchTarget: models.TargetGenericSmoke},
		"wf-legacy": {ID: "wf-legacy", Name: "nf-core/dna-seq", Version: "3.5.1"},
	}
	refs := fakeReferences{
		"ref-ok":         {ID: "ref-ok", IsComplete: true},
		"ref-incomplete": {ID: "ref-incomplete", IsComplete: false},
	}
	samples := fakeSamples{
		"s1":   {ID: "s1", ProjectID: "p1"},
		"s2":   {ID: "s2", ProjectID: "p1"},
		"s-p2": {ID: "s-p2", ProjectID: "p2"},
	}

	svc := NewRunService(&RunServiceOpts{
		Runs:       runs,
		Workflows:  workflows,
		References: refs,
		Samples:    samples,
		Authz:      authz,
		Limiter:    limiter,
		Runner:     runner,
		Reconciler: NewReconciler(runs, events, log),
		Audit:      audit,
		Logger:     log,
	})

	return &runFixture{
		svc:     svc,
		runs:    runs,
		events:  events,
		audit:   auditStore,
		members: members,
		limiter: limiter,
		editor:  editor,
	}
}

func validRunRequest(workflowID string) *CreateRunRequest {
	return &CreateRunRequest{
		ProjectID:      "p1",
		WorkflowID:     workflowID,
		ReferenceSetID: "ref-ok",
		SampleIDs:      []string{"s1", "s2"},
	}
}

func TestRunService_CreateThroughRunner(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	runner := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(commonmodels.RunnerResponse{
			RunID:     "run_1700000000_abc123",
			Status:    commonmodels.JobSucceeded,
			Artifacts: []string{"s3://runs/run_1700000000_abc123/logs/report.html"},
		})
	}))
	defer runner.Close()

	client := clients.NewRunnerClient(runner.URL, 5*time.Second, logger.Discard())
	f := newRunFixture(t, client)

	run, err := f.svc.Create(context.Background(), f.editor, validRunRequest("wf-named"))
	require.NoError(t, err)

	assert.Equal(t, commonmodels.RunnerPathNFCoreDNASeq, gotPath)
	assert.Equal(t, "https://github.com/nf-core/sarek", gotBody["repo"])
	assert.Equal(t, true, gotBody["stub_run"])

	assert.Equal(t, commonmodels.StatusSucceeded, run.Status)
	require.NotNil(t, run.RunnerJobID)
	assert.Equal(t, "run_1700000000_abc123", *run.RunnerJobID)
	assert.Len(t, run.Artifacts, 1)
	assert.Equal(t, "local-docker", run.ComputeProfile)
	assert.Equal(t, map[string]interface{}{}, run.Params)
	require.NotNil(t, run.CreatedBy)
	assert.Equal(t, f.editor.ID, *run.CreatedBy)

	stored, err := f.runs.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, commonmodels.StatusSucceeded, stored.Status)

	assert.Equal(t, []commonmodels.RunStatus{
		commonmodels.StatusQueued,
		commonmodels.StatusRunning,
		commonmodels.StatusSucceeded,
	}, f.events.statuses())
	assert.Contains(t, f.audit.actions(), "run_create")
	assert.Equal(t, []ratelimit.Tier{ratelimit.TierHeavy}, f.limiter.tiers)
}

func TestRunService_SmokeTargetSendsNoBody(t *testing.T) {
	d := &fakeDispatcher{resp: &commonmodels.RunnerResponse{RunID: "run_1_aaaaaa", Status: commonmodels.JobSucceeded}}
	f := newRunFixture(t, d)

	run, err := f.svc.Create(context.Background(), f.editor, validRunRequest("wf-smoke"))
	require.NoError(t, err)

	assert.Equal(t, []string{commonmodels.RunnerPathContainerSmoke}, d.paths)
	assert.Nil(t, d.body)
	assert.Equal(t, commonmodels.StatusSucceeded, run.Status)
	assert.Equal(t, []ratelimit.Tier{ratelimit.TierLight}, f.limiter.tiers)
}

func TestRunService_LegacyWorkflowRoutesByName(t *testing.T) {
	d := &fakeDispatcher{resp: &commonmodels.RunnerResponse{RunID: "run_1_aaaaaa", Status: commonmodels.JobSucceeded}}
	f := newRunFixture(t, d)

	_, err := f.svc.Create(context.Background(), f.editor, validRunRequest("wf-legacy"))
	require.NoError(t, err)
	assert.Equal(t, []string{commonmodels.RunnerPathNFCoreDNASeq}, d.paths)
}

func TestRunService_RunnerReportsFailure(t *testing.T) {
	d := &fakeDispatcher{resp: &commonmodels.RunnerResponse{
		RunID:  "run_1_aaaaaa",
		Status: commonmodels.JobFailed,
		Error:  commonmodels.JobErrTimeout,
	}}
	f := newRunFixture(t, d)

	run, err := f.svc.Create(context.Background(), f.editor, validRunRequest("wf-smoke"))
	require.NoError(t, err)

	assert.Equal(t, commonmodels.StatusFailed, run.Status)
	require.NotNil(t, run.RunnerJobID)
	assert.Equal(t, []string{}, run.Artifacts)
}

func TestRunService_DispatchErrorFailsRun(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("runner returned status 502: bad gateway")}
	f := newRunFixture(t, d)

	_, err := f.svc.Create(context.Background(), f.editor, validRunRequest("wf-smoke"))
	require.Error(t, err)

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Error(), "Runner error:")

	stored, err := f.runs.GetByID(context.Background(), de.RunID)
	require.NoError(t, err)
	assert.Equal(t, commonmodels.StatusFailed, stored.Status)
	assert.Nil(t, stored.RunnerJobID)
}

func TestRunService_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRunRequest)
		kind   error
		detail string
	}{
		{
			name:   "unknown workflow",
			mutate: func(r *CreateRunRequest) { r.WorkflowID = "nope" },
			kind:   ErrNotFound,
			detail: "Workflow not found",
		},
		{
			name:   "unknown reference set",
			mutate: func(r *CreateRunRequest) { r.ReferenceSetID = "nope" },
			kind:   ErrNotFound,
			detail: "Reference set not found",
		},
		{
			name:   "incomplete reference set",
			mutate: func(r *CreateRunRequest) { r.ReferenceSetID = "ref-incomplete" },
			kind:   ErrUnprocessable,
			detail: "Reference set incomplete",
		},
		{
			name:   "missing sample",
			mutate: func(r *CreateRunRequest) { r.SampleIDs = []string{"s1", "ghost"} },
			kind:   ErrUnprocessable,
			detail: "Some sample_ids not found",
		},
		{
			name:   "sample from another project",
			mutate: func(r *CreateRunRequest) { r.SampleIDs = []string{"s1", "s-p2"} },
			kind:   ErrForbidden,
			detail: "Sample from another project",
		},
		{
			name:   "not a member",
			mutate: func(r *CreateRunRequest) { r.ProjectID = "p2" },
			kind:   ErrForbidden,
			detail: "Not a project member",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{}
			f := newRunFixture(t, d)

			req := validRunRequest("wf-named")
			tt.mutate(req)

			_, err := f.svc.Create(context.Background(), f.editor, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.EqualError(t, err, tt.detail)

			assert.Empty(t, d.paths, "runner must not be called")
			assert.Empty(t, f.runs.runs, "no run row is written")
		})
	}
}

func TestRunService_RejectsReferenceBuiltWithoutBWAIndex(t *testing.T) {
	d := &fakeDispatcher{resp: &commonmodels.RunnerResponse{RunID: "run_1_aaaaaa", Status: commonmodels.JobSucceeded}}
	f := newRunFixture(t, d)
	ctx := context.Background()

	authz := NewAuthorizer(f.members)
	refs := NewReferenceService(
		&fakeReferenceStore{byID: map[string]*models.ReferenceSet{}},
		authz,
		NewAuditService(f.audit, authz, logger.Discard()),
		logger.Discard(),
	)
	f.svc.references = refs

	ref, err := refs.Create(ctx, editorUser, &CreateReferenceRequest{
		Name:        "GRCh38 no index",
		GenomeBuild: models.BuildGRCh38,
		Components: []validation.ReferenceComponent{
			component(validation.RoleFASTA, "s3://refs/grch38.fa"),
			component(validation.RoleFAI, "s3://refs/grch38.fa.fai"),
			component(validation.RoleDICT, "s3://refs/grch38.dict"),
		},
	})
	require.NoError(t, err)
	require.False(t, ref.IsComplete)

	req := validRunRequest("wf-named")
	req.ReferenceSetID = ref.ID

	_, err = f.svc.Create(ctx, f.editor, req)
	assert.ErrorIs(t, err, ErrUnprocessable)
	assert.EqualError(t, err, "Reference set incomplete")
	assert.Empty(t, d.paths)

	list, err := f.svc.List(ctx, f.editor, "p1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRunService_ViewerCannotSubmit(t *testing.T) {
	f := newRunFixture(t, &fakeDispatcher{})
	viewer := &models.User{ID: "u-viewer", Role: models.RoleViewer}
	f.members.add("p1", viewer.ID, models.RoleViewer)

	_, err := f.svc.Create(context.Background(), viewer, validRunRequest("wf-named"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRunService_RateLimited(t *testing.T) {
	d := &fakeDispatcher{}
	f := newRunFixture(t, d)
	f.limiter.result = &ratelimit.RateLimitResult{Allowed: false, Limit: 5, CurrentCount: 6, RetryAfterSeconds: 42}

	_, err := f.svc.Create(context.Background(), f.editor, validRunRequest("wf-named"))

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, ratelimit.TierHeavy, rl.Tier)
	assert.Equal(t, int64(42), rl.RetryAfterSeconds)
	assert.Empty(t, d.paths)
	assert.Empty(t, f.runs.runs)
}

func TestRunService_RateLimiterFailsOpen(t *testing.T) {
	d := &fakeDispatcher{resp: &commonmodels.RunnerResponse{RunID: "run_1_aaaaaa", Status: commonmodels.JobSucceeded}}
	f := newRunFixture(t, d)
	f.limiter.err = errors.New("redis: connection refused")

	run, err := f.svc.Create(context.Background(), f.editor, validRunRequest("wf-named"))
	require.NoError(t, err)
	assert.Equal(t, commonmodels.StatusSucceeded, run.Status)
}

func TestRunService_GetAndList(t *testing.T) {
	d := &fakeDispatcher{resp: &commonmodels.RunnerResponse{RunID: "run_1_aaaaaa", Status: commonmodels.JobSucceeded}}
	f := newRunFixture(t, d)
	ctx := context.Background()

	run, err := f.svc.Create(ctx, f.editor, validRunRequest("wf-smoke"))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.editor, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)

	_, err = f.svc.Get(ctx, f.editor, "missing")
	assert.EqualError(t, err, "Run not found")

	outsider := &models.User{ID: "u-out", Role: models.RoleEditor}
	_, err = f.svc.Get(ctx, outsider, run.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := f.svc.List(ctx, f.editor, "p1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
