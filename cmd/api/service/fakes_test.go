package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/genomeai/platform/cmd/api/models"
	commonmodels "github.com/genomeai/platform/common/models"
	"github.com/genomeai/platform/common/ratelimit"
	commonrepo "github.com/genomeai/platform/common/repository"
)

type memberKey struct{ project, user string }

type fakeMembers struct {
	roles map[memberKey]models.Role
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{roles: map[memberKey]models.Role{}}
}

func (f *fakeMembers) add(projectID, userID string, role models.Role) {
	f.roles[memberKey{projectID, userID}] = role
}

func (f *fakeMembers) MemberRole(ctx context.Context, projectID, userID string) (models.Role, bool, error) {
	role, ok := f.roles[memberKey{projectID, userID}]
	return role, ok, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (f *fakeAuditStore) Insert(ctx context.Context, entry *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.AuditLog{}
	for i := len(f.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

// fakeRuns mirrors the guarded transitions of the runs table
type fakeRuns struct {
	mu   sync.Mutex
	runs map[string]*commonmodels.Run
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: map[string]*commonmodels.Run{}}
}

func (f *fakeRuns) Create(ctx context.Context, run *commonmodels.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.Status = commonmodels.StatusQueued
	run.Artifacts = []string{}
	cp := *run
	f.runs[run.ID] = &cp
	return nil
}

func (f *fakeRuns) GetByID(ctx context.Context, id string) (*commonmodels.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, commonrepo.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (f *fakeRuns) ListByProject(ctx context.Context, projectID string) ([]*commonmodels.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*commonmodels.Run{}
	for _, run := range f.runs {
		if run.ProjectID == projectID {
			cp := *run
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRuns) MarkRunning(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok || run.Status != commonmodels.StatusQueued {
		return false, nil
	}
	run.Status = commonmodels.StatusRunning
	return true, nil
}

func (f *fakeRuns) Apply(ctx context.Context, id string, resp *commonmodels.RunnerResponse) (*commonmodels.Run, bool, error) {
	return f.transition(id, func(run *commonmodels.Run) {
		run.Status = commonmodels.StatusFailed
		if resp.Succeeded() {
			run.Status = commonmodels.StatusSucceeded
		}
		run.Artifacts = resp.Artifacts
		if run.Artifacts == nil {
			run.Artifacts = []string{}
		}
		if resp.RunID != "" {
			jobID := resp.RunID
			run.RunnerJobID = &jobID
		}
	})
}

func (f *fakeRuns) Fail(ctx context.Context, id string) (*commonmodels.Run, bool, error) {
	return f.transition(id, func(run *commonmodels.Run) {
		run.Status = commonmodels.StatusFailed
	})
}

func (f *fakeRuns) transition(id string, apply func(*commonmodels.Run)) (*commonmodels.Run, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, false, commonrepo.ErrNotFound
	}
	if run.Status.IsTerminal() {
		cp := *run
		return &cp, false, nil
	}
	apply(run)
	now := time.Now().UTC()
	run.FinishedAt = &now
	cp := *run
	return &cp, true, nil
}

func (f *fakeRuns) FailStale(ctx context.Context, cutoff time.Time) ([]*commonmodels.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*commonmodels.Run{}
	for _, run := range f.runs {
		if !run.Status.IsTerminal() && run.CreatedAt.Before(cutoff) {
			run.Status = commonmodels.StatusFailed
			cp := *run
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []commonmodels.RunEvent
	keys   []string
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, key string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	var ev commonmodels.RunEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) statuses() []commonmodels.RunStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]commonmodels.RunStatus, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Status)
	}
	return out
}

type fakeWorkflows map[string]*models.Workflow

func (f fakeWorkflows) Get(ctx context.Context, id string) (*models.Workflow, error) {
	wf, ok := f[id]
	if !ok {
		return nil, NotFound("Workflow")
	}
	return wf, nil
}

type fakeReferences map[string]*models.ReferenceSet

func (f fakeReferences) Get(ctx context.Context, id string) (*models.ReferenceSet, error) {
	ref, ok := f[id]
	if !ok {
		return nil, NotFound("Reference set")
	}
	return ref, nil
}

type fakeSamples map[string]*models.Sample

func (f fakeSamples) SamplesByIDs(ctx context.Context, ids []string) ([]*models.Sample, []string, error) {
	var found []*models.Sample
	var missing []string
	for _, id := range ids {
		if sm, ok := f[id]; ok {
			found = append(found, sm)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

type fakeLimiter struct {
	result *ratelimit.RateLimitResult
	err    error
	tiers  []ratelimit.Tier
}

func (f *fakeLimiter) CheckTieredLimit(ctx context.Context, userID string, tier ratelimit.Tier) (*ratelimit.RateLimitResult, error) {
	f.tiers = append(f.tiers, tier)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeDispatcher struct {
	resp  *commonmodels.RunnerResponse
	err   error
	paths []string
	body  []byte
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, path string, body []byte) (*commonmodels.RunnerResponse, error) {
	f.paths = append(f.paths, path)
	f.body = body
	return f.resp, f.err
}
