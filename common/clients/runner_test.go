package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerClient_Dispatch(t *testing.T) {
	var gotBody []byte
	var gotRequestID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotRequestID = r.Header.Get("X-Request-ID")

		switch r.URL.Path {
		case models.RunnerPathContainerSmoke:
			json.NewEncoder(w).Encode(models.RunnerResponse{
				RunID:     "run_1700000000_abc123",
				Status:    "Succeeded",
				Artifacts: []string{"s3://runs/run_1700000000_abc123/logs/report.html"},
			})
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"boom"}`))
		case "/garbage":
			w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewRunnerClient(srv.URL, 5*time.Second, logger.Discard())
	ctx := WithRequestID(context.Background(), "req-1")

	resp, err := c.Dispatch(ctx, models.RunnerPathContainerSmoke, nil)
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Equal(t, "run_1700000000_abc123", resp.RunID)
	assert.Empty(t, gotBody)
	assert.Equal(t, "req-1", gotRequestID)

	_, err = c.Dispatch(ctx, "/broken", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	_, err = c.Dispatch(ctx, "/garbage", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestRunnerClient_Unreachable(t *testing.T) {
	c := NewRunnerClient("http://127.0.0.1:1", time.Second, logger.Discard())
	_, err := c.Dispatch(context.Background(), models.RunnerPathHello, nil)
	assert.Error(t, err)
}
