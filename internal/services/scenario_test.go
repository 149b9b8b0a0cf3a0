package services

import (
	"context"
	"testing"

	"github.com/pragati08ps/design-approval-system/internal/storage"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDesignReviewLifecycle walks one project from intake through a
// rejection and a second design version.
func TestDesignReviewLifecycle(t *testing.T) {
	db := newTestDB(t)
	events := &recordingQueue{}
	audit := NewAuditTrailService(db, events)
	projects := NewProjectService(db, audit, events)
	ledger := NewLedgerService(db)
	artifacts := NewArtifactService(db, storage.NewDBBlobStore(db), ledger, events)
	ctx := context.Background()

	dm := createUser(t, db, "dm", workflow.RoleDigitalMarketer)
	designer := createUser(t, db, "des", workflow.RoleDesigner)
	fe := createUser(t, db, "fe", workflow.RoleFrontendDeveloper)
	manager := createUser(t, db, "mgr", workflow.RoleManager)

	project, err := projects.Create(ctx, dm, &CreateProjectRequest{Name: "Launch poster"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageIntake, project.CurrentStage)

	content, err := artifacts.UploadContent(ctx, project.ID, dm, pdf("brief.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 1, content.Record.Version)
	assert.Equal(t, workflow.StageRework, content.Project.CurrentStage)

	first, err := artifacts.UploadDesign(ctx, project.ID, designer, "poster", pdf("draft-1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Record.Version)
	assert.Equal(t, workflow.StageReview1, first.Project.CurrentStage)

	approved, err := projects.Transition(ctx, project.ID, fe, &TransitionRequest{Action: "approve"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageReview2, approved.Project.CurrentStage)

	rejected, err := projects.Transition(ctx, project.ID, manager, &TransitionRequest{Action: "reject", Remarks: "brand colours are off"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageRework, rejected.Project.CurrentStage)
	require.NotNil(t, rejected.Remark)
	assert.Equal(t, 1, rejected.Remark.UploadVersion)

	second, err := artifacts.UploadDesign(ctx, project.ID, designer, "poster", pdf("draft-2.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Record.Version)
	assert.Equal(t, workflow.StageReview1, second.Project.CurrentStage)

	history, err := artifacts.Versions(ctx, project.ID)
	require.NoError(t, err)
	current := map[string]bool{}
	for _, rec := range history {
		current[rec.BlobHandle] = rec.IsCurrent
	}
	assert.True(t, current[second.Record.BlobHandle])
	assert.False(t, current[first.Record.BlobHandle])
	assert.True(t, current[content.Record.BlobHandle])

	decisions, err := audit.ListDecisions(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, workflow.StageReview1, decisions[0].Stage)
	assert.Equal(t, "rejected", decisions[1].Decision)

	assert.Equal(t, []string{
		EventVersionPublished,
		EventVersionPublished,
		EventStageChanged,
		EventStageChanged,
		EventVersionPublished,
	}, events.types())
}
