package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/logger"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDatasets struct {
	mu   sync.Mutex
	byID map[string]*models.Dataset
}

func (f *fakeDatasets) Create(ctx context.Context, d *models.Dataset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[d.ID] = d
	return nil
}

func (f *fakeDatasets) GetByID(ctx context.Context, id string) (*models.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return nil, commonrepo.ErrNotFound
	}
	return d, nil
}

func (f *fakeDatasets) ListByProject(ctx context.Context, projectID string) ([]*models.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Dataset{}
	for _, d := range f.byID {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeSampleStore struct {
	mu      sync.Mutex
	samples []*models.Sample
	lookups [][]string
}

func (f *fakeSampleStore) Create(ctx context.Context, s *models.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, s)
	return nil
}

func (f *fakeSampleStore) GetByIDs(ctx context.Context, ids []string) ([]*models.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, ids)
	out := []*models.Sample{}
	for _, s := range f.samples {
		for _, id := range ids {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeSampleStore) ListByProject(ctx context.Context, projectID string) ([]*models.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Sample{}
	for _, s := range f.samples {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeObjectStore struct {
	bucket, key string
	body        []byte
}

func (f *fakeObjectStore) EnsureBucket(ctx context.Context, bucket string) error { return nil }

func (f *fakeObjectStore) PutFile(ctx context.Context, bucket, key, path string) error { return nil }

func (f *fakeObjectStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.bucket, f.key, f.body = bucket, key, raw
	return nil
}

type registryFixture struct {
	datasets *DatasetService
	samples  *SampleService
	dsStore  *fakeDatasets
	smStore  *fakeSampleStore
	blobs    *fakeObjectStore
	editor   *models.User
}

func newRegistryFixture() *registryFixture {
	log := logger.Discard()
	members := newFakeMembers()
	members.add("p1", "u-ed", models.RoleEditor)
	members.add("p2", "u-ed", models.RoleEditor)
	authz := NewAuthorizer(members)
	audit := NewAuditService(&fakeAuditStore{}, authz, log)

	ds := &fakeDatasets{byID: map[string]*models.Dataset{}}
	sm := &fakeSampleStore{}
	blobs := &fakeObjectStore{}

	return &registryFixture{
		datasets: NewDatasetService(ds, blobs, "datasets", authz, audit, log),
		samples:  NewSampleService(sm, ds, authz, audit, log),
		dsStore:  ds,
		smStore:  sm,
		blobs:    blobs,
		editor:   &models.User{ID: "u-ed", Role: models.RoleViewer},
	}
}

func TestDatasetService_UploadComputesChecksum(t *testing.T) {
	f := newRegistryFixture()

	d, err := f.datasets.Upload(context.Background(), f.editor, &Upload{
		ProjectID: "p1",
		Filename:  "../evil/S1_R1.fastq.gz",
		Size:      5,
		Body:      strings.NewReader("hello"),
	})
	require.NoError(t, err)

	assert.Equal(t, "datasets", f.blobs.bucket)
	assert.Equal(t, "p1/S1_R1.fastq.gz", f.blobs.key)
	assert.Equal(t, []byte("hello"), f.blobs.body)

	assert.Equal(t, "s3://datasets/p1/S1_R1.fastq.gz", d.URI)
	assert.Equal(t, models.DatasetType("FASTQ.GZ"), d.Type)
	require.NotNil(t, d.MD5)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", *d.MD5)
	require.NotNil(t, d.SizeBytes)
	assert.Equal(t, int64(5), *d.SizeBytes)
}

func TestDatasetService_UploadRejectsNonFASTQ(t *testing.T) {
	f := newRegistryFixture()

	_, err := f.datasets.Upload(context.Background(), f.editor, &Upload{
		ProjectID: "p1",
		Filename:  "calls.vcf.gz",
		Body:      bytes.NewReader(nil),
	})
	assert.ErrorIs(t, err, ErrUnprocessable)
	assert.Empty(t, f.blobs.key)
}

func TestDatasetService_RegisterValidatesMD5(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()

	bad := "xyz"
	_, err := f.datasets.Register(ctx, f.editor, &RegisterDatasetRequest{
		ProjectID: "p1", URI: "s3://d/a.bam", Type: "BAM", MD5: &bad,
	})
	assert.ErrorIs(t, err, ErrUnprocessable)

	good := "5D41402ABC4B2A76B9719D911017C592"
	d, err := f.datasets.Register(ctx, f.editor, &RegisterDatasetRequest{
		ProjectID: "p1", URI: "s3://d/a.bam", Type: "BAM", MD5: &good,
	})
	require.NoError(t, err)
	assert.Equal(t, "s3://d/a.bam", d.URI)

	_, err = f.datasets.Register(ctx, f.editor, &RegisterDatasetRequest{
		ProjectID: "p1", URI: "s3://d/a.cram", Type: "CRAM",
	})
	assert.ErrorIs(t, err, ErrUnprocessable)
}

func TestSampleService_CreatePairsFASTQInProject(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()

	f.dsStore.byID["r1"] = &models.Dataset{ID: "r1", ProjectID: "p1", Type: "FASTQ.GZ"}
	f.dsStore.byID["r2"] = &models.Dataset{ID: "r2", ProjectID: "p1", Type: "FASTQ"}
	f.dsStore.byID["bam"] = &models.Dataset{ID: "bam", ProjectID: "p1", Type: "BAM"}
	f.dsStore.byID["other"] = &models.Dataset{ID: "other", ProjectID: "p2", Type: "FASTQ"}

	s, err := f.samples.Create(ctx, f.editor, &CreateSampleRequest{ProjectID: "p1", Name: "S1", R1DatasetID: "r1", R2DatasetID: "r2"})
	require.NoError(t, err)
	assert.Equal(t, "S1", s.Name)

	_, err = f.samples.Create(ctx, f.editor, &CreateSampleRequest{ProjectID: "p1", Name: "S2", R1DatasetID: "r1", R2DatasetID: "bam"})
	assert.ErrorIs(t, err, ErrUnprocessable)

	_, err = f.samples.Create(ctx, f.editor, &CreateSampleRequest{ProjectID: "p1", Name: "S3", R1DatasetID: "r1", R2DatasetID: "other"})
	assert.EqualError(t, err, "Datasets must exist in the same project")

	_, err = f.samples.Create(ctx, f.editor, &CreateSampleRequest{ProjectID: "p1", Name: "S4", R1DatasetID: "r1", R2DatasetID: "gone"})
	assert.ErrorIs(t, err, ErrUnprocessable)
}

func TestSampleService_SamplesByIDs(t *testing.T) {
	f := newRegistryFixture()
	f.smStore.samples = []*models.Sample{{ID: "a", ProjectID: "p1"}, {ID: "b", ProjectID: "p1"}}

	found, missing, err := f.samples.SamplesByIDs(context.Background(), []string{"b", "a", "b", "zz"})
	require.NoError(t, err)

	require.Len(t, found, 2)
	assert.Equal(t, "b", found[0].ID)
	assert.Equal(t, "a", found[1].ID)
	assert.Equal(t, []string{"zz"}, missing)
	assert.Equal(t, [][]string{{"b", "a", "zz"}}, f.smStore.lookups)
}

func TestSampleService_ExportCSV(t *testing.T) {
	f := newRegistryFixture()
	f.smStore.samples = []*models.Sample{
		{ID: "a", ProjectID: "p1", Name: "S1", R1URI: "s3://d/p1/S1_R1.fastq.gz", R2URI: "s3://d/p1/S1_R2.fastq.gz"},
		{ID: "b", ProjectID: "p2", Name: "elsewhere"},
	}

	var buf bytes.Buffer
	require.NoError(t, f.samples.ExportCSV(context.Background(), f.editor, "p1", &buf))
	assert.Equal(t, "sample,r1_uri,r2_uri\nS1,s3://d/p1/S1_R1.fastq.gz,s3://d/p1/S1_R2.fastq.gz\n", buf.String())

	outsider := &models.User{ID: "nobody", Role: models.RoleViewer}
	assert.ErrorIs(t, f.samples.ExportCSV(context.Background(), outsider, "p1", &buf), ErrForbidden)
}
