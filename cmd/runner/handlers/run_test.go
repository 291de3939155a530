package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/models"
	"github.com/genomeai/platform/common/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	resp    *models.RunnerResponse
	err     error
	lastReq *models.NFCoreRequest
}

func (f *fakeRunner) RunHello(ctx context.Context) (*models.RunnerResponse, error) {
	return f.resp, f.err
}

func (f *fakeRunner) RunContainerSmoke(ctx context.Context) (*models.RunnerResponse, error) {
	return f.resp, f.err
}

func (f *fakeRunner) RunNFCore(ctx context.Context, req *models.NFCoreRequest) (*models.RunnerResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func serveRunner(t *testing.T, runner JobRunner, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	log := logger.Discard()
	e := server.NewEcho(log)
	Register(e, NewRunHandler(runner, log))

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serveRunner(t, &fakeRunner{}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunEndpoints_FailedJobIs200(t *testing.T) {
	runner := &fakeRunner{resp: &models.RunnerResponse{
		RunID:      "run_1_abcdef",
		Status:     models.JobFailed,
		Artifacts:  []string{},
		StdoutTail: []string{},
		StderrTail: []string{"boom"},
		Error:      models.JobErrTimeout,
	}}

	for _, path := range []string{"/run/hello", "/run/container_smoke", "/run/nfcore_dna_seq"} {
		rec := serveRunner(t, runner, http.MethodPost, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)

		var got models.RunnerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, models.JobFailed, got.Status)
		assert.Equal(t, models.JobErrTimeout, got.Error)
	}
}

func TestNFCoreDNASeq_DecodesPayload(t *testing.T) {
	runner := &fakeRunner{resp: &models.RunnerResponse{RunID: "run_1_abcdef", Status: models.JobSucceeded}}

	rec := serveRunner(t, runner, http.MethodPost, "/run/nfcore_dna_seq",
		`{"repo": "https://github.com/nf-core/sarek", "revision": null, "profile": "docker"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, runner.lastReq)
	assert.Nil(t, runner.lastReq.Revision)
	assert.Equal(t, "docker", runner.lastReq.Profile)
	assert.Equal(t, 2, runner.lastReq.MaxCPUs)
}

func TestNFCoreDNASeq_InvalidPayloadIs422(t *testing.T) {
	runner := &fakeRunner{}

	rec := serveRunner(t, runner, http.MethodPost, "/run/nfcore_dna_seq", `{"max_cpus": 0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
	assert.Nil(t, runner.lastReq)
}

func TestNFCoreDNASeq_UnsafeSourceIs422(t *testing.T) {
	for _, body := range []string{
		`{"revision": ".."}`,
		`{"repo": "https://github.com/nf-core/.."}`,
	} {
		runner := &fakeRunner{}
		rec := serveRunner(t, runner, http.MethodPost, "/run/nfcore_dna_seq", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
		assert.Nil(t, runner.lastReq, body)
	}
}

func TestRunEndpoints_EngineErrorIs500(t *testing.T) {
	runner := &fakeRunner{err: errors.New("failed to create workspace: read-only file system")}

	rec := serveRunner(t, runner, http.MethodPost, "/run/hello", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "read-only file system")
}
