package services

import (
	"testing"

	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_CreateAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)

	user, err := svc.Create(&CreateUserRequest{Username: "ravi", Password: "secret1", Role: "designer", FullName: "Ravi K"})
	require.NoError(t, err)
	assert.Equal(t, workflow.RoleDesigner, user.Role)
	assert.NotEqual(t, "secret1", user.Password)

	_, err = svc.Create(&CreateUserRequest{Username: "ravi", Password: "secret1", Role: "designer"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Create(&CreateUserRequest{Username: "zed", Password: "secret1", Role: "graphic_designer"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	resp, err := svc.List(&UserListRequest{Role: "designer"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.Total)
	assert.Equal(t, "ravi", resp.Items[0].Username)
}

func TestUserService_SelfProtection(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	admin := createUser(t, db, "root", workflow.RoleAdmin)
	other := createUser(t, db, "other", workflow.RoleClient)

	manager := "manager"
	_, err := svc.Update(admin.UserID, &UpdateUserRequest{Role: &manager}, admin.UserID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	disabled := false
	_, err = svc.Update(admin.UserID, &UpdateUserRequest{IsActive: &disabled}, admin.UserID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	updated, err := svc.Update(other.UserID, &UpdateUserRequest{Role: &manager}, admin.UserID)
	require.NoError(t, err)
	assert.Equal(t, workflow.RoleManager, updated.Role)

	assert.ErrorIs(t, svc.Delete(admin.UserID, admin.UserID), apperrors.ErrValidation)
	require.NoError(t, svc.Delete(other.UserID, admin.UserID))
	assert.ErrorIs(t, svc.Delete(other.UserID, admin.UserID), apperrors.ErrNotFound)
}
