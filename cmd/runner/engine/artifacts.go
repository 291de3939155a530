package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/storage"
	"github.com/genomeai/platform/common/telemetry"
	"golang.org/x/sync/errgroup"
)

// Collector uploads a job's engine reports to the runs bucket
type Collector struct {
	store  storage.ObjectStore
	bucket string
	log    *logger.Logger
}

// NewCollector creates an artifact collector
func NewCollector(store storage.ObjectStore, bucket string, log *logger.Logger) *Collector {
	return &Collector{store: store, bucket: bucket, log: log}
}

// Collect uploads report, trace and timeline when present, in parallel, and
// returns their s3:// URIs in that order. A failed upload is logged and omitted.
func (c *Collector) Collect(ctx context.Context, ws Workspace) []string {
	files := ws.Artifacts()
	uris := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		i, path := i, path
		if _, err := os.Stat(path); err != nil {
			continue
		}

		g.Go(func() error {
			key := ws.RunID + "/logs/" + filepath.Base(path)
			if err := c.store.PutFile(gctx, c.bucket, key, path); err != nil {
				c.log.Warn("artifact upload failed", "run_id", ws.RunID, "file", filepath.Base(path), "error", err)
				telemetry.ArtifactUploads.WithLabelValues("error").Inc()
				return nil
			}
			telemetry.ArtifactUploads.WithLabelValues("ok").Inc()
			uris[i] = storage.URI(c.bucket, key)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(uris))
	for _, u := range uris {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
