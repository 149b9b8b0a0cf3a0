package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publish(t *testing.T, ledger *LedgerService, projectID uint, class workflow.UploadClass) *PublishResult {
	t.Helper()
	res, err := ledger.PublishVersion(context.Background(), PublishRequest{
		ProjectID:  projectID,
		Class:      class,
		BlobHandle: "handle",
		Meta:       UploadMeta{Filename: "file.pdf", UploadedBy: 1},
	})
	require.NoError(t, err)
	return res
}

func TestLedger_VersionsAreSequentialPerClass(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	owner := createUser(t, db, "dm", workflow.RoleDigitalMarketer)
	project := createProjectAt(t, db, owner, workflow.StageRework)

	assert.Equal(t, 1, publish(t, ledger, project.ID, workflow.UploadContent).Record.Version)
	assert.Equal(t, 2, publish(t, ledger, project.ID, workflow.UploadContent).Record.Version)

	// design versions are independent of content versions
	res := publish(t, ledger, project.ID, workflow.UploadDesign)
	assert.Equal(t, 1, res.Record.Version)
	assert.Equal(t, workflow.StageReview1, res.Project.CurrentStage)
	assert.Equal(t, workflow.StageRework, res.FromStage)
}

func TestLedger_ExactlyOneCurrentPerClass(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	owner := createUser(t, db, "dm", workflow.RoleDigitalMarketer)
	project := createProjectAt(t, db, owner, workflow.StageIntake)

	for i := 0; i < 3; i++ {
		publish(t, ledger, project.ID, workflow.UploadContent)
	}

	var current int64
	require.NoError(t, db.Model(&models.UploadRecord{}).
		Where("project_id = ? AND upload_class = ? AND is_current = ?", project.ID, workflow.UploadContent, true).
		Count(&current).Error)
	assert.EqualValues(t, 1, current)

	rec, err := ledger.CurrentOf(context.Background(), project.ID, workflow.UploadContent)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.Version)

	none, err := ledger.CurrentOf(context.Background(), project.ID, workflow.UploadDesign)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestLedger_ContentUploadMovesIntakeToRework(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	owner := createUser(t, db, "dm", workflow.RoleDigitalMarketer)
	project := createProjectAt(t, db, owner, workflow.StageIntake)

	res := publish(t, ledger, project.ID, workflow.UploadContent)
	assert.Equal(t, workflow.StageRework, res.Project.CurrentStage)
}

func TestLedger_UnknownProject(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)

	_, err := ledger.PublishVersion(context.Background(), PublishRequest{
		ProjectID:  404,
		Class:      workflow.UploadContent,
		BlobHandle: "handle",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	var counters int64
	require.NoError(t, db.Model(&models.UploadCounter{}).Count(&counters).Error)
	assert.Zero(t, counters, "failed publish must not leave a counter row")
}

func TestLedger_GuardRejectionLeavesNoTrace(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	owner := createUser(t, db, "dm", workflow.RoleDigitalMarketer)
	project := createProjectAt(t, db, owner, workflow.StageReview2)

	_, err := ledger.PublishVersion(context.Background(), PublishRequest{
		ProjectID:  project.ID,
		Class:      workflow.UploadDesign,
		BlobHandle: "handle",
		Guard: func(p *models.Project) error {
			return workflow.CheckUpload(p.CurrentStage, workflow.UploadDesign)
		},
	})
	assert.ErrorIs(t, err, apperrors.ErrStageMismatch)

	history, err := ledger.History(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	// the next accepted publish still starts at version 1
	require.NoError(t, db.Model(project).Update("current_stage", workflow.StageRework).Error)
	assert.Equal(t, 1, publish(t, ledger, project.ID, workflow.UploadDesign).Record.Version)
}

func TestLedger_ConcurrentPublishesGetDistinctVersions(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	owner := createUser(t, db, "dm", workflow.RoleDigitalMarketer)
	project := createProjectAt(t, db, owner, workflow.StageRework)

	const n = 8
	var wg sync.WaitGroup
	versions := make(chan int, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.PublishVersion(context.Background(), PublishRequest{
				ProjectID:  project.ID,
				Class:      workflow.UploadContent,
				BlobHandle: "handle",
			})
			if err != nil {
				errs <- err
				return
			}
			versions <- res.Record.Version
		}()
	}
	wg.Wait()
	close(versions)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected publish error: %v", err)
	}
	var got []int
	for v := range versions {
		got = append(got, v)
	}
	sort.Ints(got)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, got)
}

func TestLedger_HistoryNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	owner := createUser(t, db, "dm", workflow.RoleDigitalMarketer)
	project := createProjectAt(t, db, owner, workflow.StageRework)

	publish(t, ledger, project.ID, workflow.UploadContent)
	publish(t, ledger, project.ID, workflow.UploadContent)
	publish(t, ledger, project.ID, workflow.UploadDesign)

	history, err := ledger.History(context.Background(), project.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 2, history[0].Version)
	assert.Equal(t, workflow.UploadContent, history[1].UploadClass)
	assert.Equal(t, 1, history[1].Version)
	assert.Equal(t, workflow.UploadDesign, history[2].UploadClass)
}
