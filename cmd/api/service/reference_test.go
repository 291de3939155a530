package service

import (
	"context"
	"testing"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/logger"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/genomeai/platform/common/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReferenceStore struct {
	byID  map[string]*models.ReferenceSet
	inUse map[string]bool
}

func (f *fakeReferenceStore) Create(ctx context.Context, ref *models.ReferenceSet) error {
	f.byID[ref.ID] = ref
	return nil
}

func (f *fakeReferenceStore) GetByID(ctx context.Context, id string) (*models.ReferenceSet, error) {
	ref, ok := f.byID[id]
	if !ok {
		return nil, commonrepo.ErrNotFound
	}
	cp := *ref
	return &cp, nil
}

func (f *fakeReferenceStore) List(ctx context.Context) ([]*models.ReferenceSet, error) {
	out := []*models.ReferenceSet{}
	for _, ref := range f.byID {
		out = append(out, ref)
	}
	return out, nil
}

func (f *fakeReferenceStore) Update(ctx context.Context, ref *models.ReferenceSet) error {
	if _, ok := f.byID[ref.ID]; !ok {
		return commonrepo.ErrNotFound
	}
	f.byID[ref.ID] = ref
	return nil
}

func (f *fakeReferenceStore) Delete(ctx context.Context, id string) error {
	if f.inUse[id] {
		return commonrepo.ErrConflict
	}
	if _, ok := f.byID[id]; !ok {
		return commonrepo.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func component(role validation.ReferenceRole, uri string) validation.ReferenceComponent {
	return validation.ReferenceComponent{Role: role, URI: uri}
}

func TestReferenceService_CompletenessFollowsComponents(t *testing.T) {
	store := &fakeReferenceStore{byID: map[string]*models.ReferenceSet{}, inUse: map[string]bool{}}
	authz := NewAuthorizer(newFakeMembers())
	svc := NewReferenceService(store, authz, NewAuditService(&fakeAuditStore{}, authz, logger.Discard()), logger.Discard())
	ctx := context.Background()

	partial := []validation.ReferenceComponent{
		component(validation.RoleFASTA, "s3://refs/grch38.fa"),
		component(validation.RoleFAI, "s3://refs/grch38.fa.fai"),
	}

	ref, err := svc.Create(ctx, editorUser, &CreateReferenceRequest{
		Name:        "GRCh38 core",
		GenomeBuild: models.BuildGRCh38,
		Components:  partial,
	})
	require.NoError(t, err)
	assert.False(t, ref.IsComplete)

	full := append(partial,
		component(validation.RoleDICT, "s3://refs/grch38.dict"),
		component(validation.RoleBWAIndex, "s3://refs/grch38.bwt"),
	)
	updated, err := svc.Update(ctx, editorUser, ref.ID, &UpdateReferenceRequest{Components: &full})
	require.NoError(t, err)
	assert.True(t, updated.IsComplete)

	name := "GRCh38 full"
	renamed, err := svc.Update(ctx, editorUser, ref.ID, &UpdateReferenceRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "GRCh38 full", renamed.Name)
	assert.True(t, renamed.IsComplete)

	stored, err := svc.Get(ctx, ref.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsComplete)

	store.inUse[ref.ID] = true
	err = svc.Delete(ctx, editorUser, ref.ID)
	assert.ErrorIs(t, err, ErrConflict)

	store.inUse[ref.ID] = false
	require.NoError(t, svc.Delete(ctx, editorUser, ref.ID))

	_, err = svc.Get(ctx, ref.ID)
	assert.EqualError(t, err, "Reference set not found")
}

func TestReferenceService_CreateRejects(t *testing.T) {
	store := &fakeReferenceStore{byID: map[string]*models.ReferenceSet{}}
	authz := NewAuthorizer(newFakeMembers())
	svc := NewReferenceService(store, authz, NewAuditService(&fakeAuditStore{}, authz, logger.Discard()), logger.Discard())
	ctx := context.Background()

	tests := []struct {
		name string
		req  *CreateReferenceRequest
	}{
		{"unknown build", &CreateReferenceRequest{Name: "x", GenomeBuild: "hg19"}},
		{"unknown role", &CreateReferenceRequest{Name: "x", GenomeBuild: models.BuildGRCh37, Components: []validation.ReferenceComponent{component("GTF", "s3://a")}}},
		{"empty uri", &CreateReferenceRequest{Name: "x", GenomeBuild: models.BuildGRCh37, Components: []validation.ReferenceComponent{component(validation.RoleFASTA, " ")}}},
		{"malformed md5", &CreateReferenceRequest{Name: "x", GenomeBuild: models.BuildGRCh37, Components: []validation.ReferenceComponent{
			{Role: validation.RoleFASTA, URI: "s3://a.fa", MD5: strPtr("zz")},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, editorUser, tt.req)
			assert.ErrorIs(t, err, ErrUnprocessable)
		})
	}

	viewer := &models.User{ID: "v", Role: models.RoleViewer}
	_, err := svc.Create(ctx, viewer, &CreateReferenceRequest{Name: "x", GenomeBuild: models.BuildGRCh38})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, store.byID)
}
