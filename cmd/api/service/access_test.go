package service

import (
	"context"
	"testing"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizer_Global(t *testing.T) {
	a := NewAuthorizer(newFakeMembers())
	ctx := context.Background()

	tests := []struct {
		role models.Role
		cap  Capability
		ok   bool
	}{
		{models.RoleViewer, CapView, true},
		{models.RoleViewer, CapEdit, false},
		{models.RoleViewer, CapAdminister, false},
		{models.RoleEditor, CapView, true},
		{models.RoleEditor, CapEdit, true},
		{models.RoleEditor, CapAdminister, false},
		{models.RoleAdmin, CapAdminister, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.cap.String(), func(t *testing.T) {
			err := a.Authorize(ctx, &models.User{ID: "u", Role: tt.role}, Global, tt.cap)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorizer_Project(t *testing.T) {
	members := newFakeMembers()
	members.add("p1", "admin", models.RoleAdmin)
	members.add("p1", "editor", models.RoleEditor)
	members.add("p1", "viewer", models.RoleViewer)
	a := NewAuthorizer(members)
	ctx := context.Background()

	tests := []struct {
		user string
		cap  Capability
		ok   bool
	}{
		{"admin", CapAdminister, true},
		{"admin", CapEdit, true},
		{"editor", CapEdit, true},
		{"editor", CapAdminister, false},
		{"viewer", CapView, true},
		{"viewer", CapEdit, false},
		{"stranger", CapView, false},
	}

	for _, tt := range tests {
		t.Run(tt.user+"/"+tt.cap.String(), func(t *testing.T) {
			// Global role never grants project access on its own
			subject := &models.User{ID: tt.user, Role: models.RoleEditor}
			err := a.Authorize(ctx, subject, Project("p1"), tt.cap)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorizer_GlobalAdminBypassesMembership(t *testing.T) {
	a := NewAuthorizer(newFakeMembers())
	err := a.Authorize(context.Background(), &models.User{ID: "root", Role: models.RoleAdmin}, Project("p9"), CapAdminister)
	assert.NoError(t, err)
}

func TestAuthorizer_NoSubject(t *testing.T) {
	a := NewAuthorizer(newFakeMembers())
	err := a.Authorize(context.Background(), nil, Global, CapView)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
