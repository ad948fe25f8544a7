package export_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendroom/sendroom/internal/dataroom"
	"github.com/sendroom/sendroom/internal/export"
	"github.com/sendroom/sendroom/internal/job"
)

// fakeDispatcher records dispatched job ids and optionally fails.
type fakeDispatcher struct {
	dispatched []string
	err        error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, jobID string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.dispatched = append(d.dispatched, jobID)
	return "trig_" + jobID, nil
}

func newService(t *testing.T, rooms *dataroom.InMemoryRepository) (*export.Service, *job.InMemoryRepository, *fakeDispatcher) {
	t.Helper()

	jobs := job.NewInMemoryRepository()
	dispatcher := &fakeDispatcher{}
	svc := export.NewService(rooms, jobs, dispatcher, zerolog.Nop())
	return svc, jobs, dispatcher
}

func seedRoom(allowBulk, allowDownload bool) *dataroom.InMemoryRepository {
	rooms := dataroom.NewInMemoryRepository()
	rooms.PutDataroom(&dataroom.Dataroom{
		ID:                "dr_1",
		Name:              "Acme Deal Room",
		AllowBulkDownload: allowBulk,
	})
	rooms.PutLink(&dataroom.Link{
		ID:            "lnk_1",
		DataroomID:    "dr_1",
		Name:          "Investor Link",
		AllowDownload: allowDownload,
	})
	return rooms
}

func TestServiceStart_CreatesAndDispatchesJob(t *testing.T) {
	rooms := seedRoom(true, true)
	rooms.PutFolders("dr_1", folder("f1", "Legal", nil))
	rooms.PutDocuments("dr_1",
		document("d1", "nda.pdf", nil, pdfVersion("k1", 100)),
		document("d2", "msa.pdf", strPtr("f1"), pdfVersion("k2", 200)),
	)
	svc, jobs, dispatcher := newService(t, rooms)

	j, err := svc.Start(context.Background(), export.Request{
		DataroomID: "dr_1",
		LinkID:     "lnk_1",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(j.ID, "exp_"))
	assert.Equal(t, job.TypeFullDataroom, j.Type)
	assert.Equal(t, job.StatusPending, j.Status)
	assert.Equal(t, 2, j.TotalFiles)
	assert.Nil(t, j.FolderID)

	require.Equal(t, []string{j.ID}, dispatcher.dispatched)

	stored, err := jobs.Get(context.Background(), j.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TriggerID)
	assert.Equal(t, "trig_"+j.ID, *stored.TriggerID)
}

func TestServiceStart_FolderExport(t *testing.T) {
	rooms := seedRoom(true, true)
	rooms.PutFolders("dr_1", folder("f1", "Legal", nil))
	rooms.PutDocuments("dr_1",
		document("d1", "root.pdf", nil, pdfVersion("k1", 100)),
		document("d2", "nda.pdf", strPtr("f1"), pdfVersion("k2", 200)),
	)
	svc, _, _ := newService(t, rooms)

	j, err := svc.Start(context.Background(), export.Request{
		DataroomID: "dr_1",
		LinkID:     "lnk_1",
		FolderID:   strPtr("f1"),
	})
	require.NoError(t, err)

	assert.Equal(t, job.TypeFolder, j.Type)
	require.NotNil(t, j.FolderID)
	assert.Equal(t, "f1", *j.FolderID)
	require.NotNil(t, j.FolderName)
	assert.Equal(t, "Legal", *j.FolderName)
	// Root-level documents fall outside a folder-scoped export.
	assert.Equal(t, 1, j.TotalFiles)
}

func TestServiceStart_BulkDownloadDisabled(t *testing.T) {
	rooms := seedRoom(false, true)
	rooms.PutDocuments("dr_1", document("d1", "nda.pdf", nil, pdfVersion("k1", 100)))
	svc, _, dispatcher := newService(t, rooms)

	_, err := svc.Start(context.Background(), export.Request{DataroomID: "dr_1", LinkID: "lnk_1"})

	assert.ErrorIs(t, err, export.ErrExportDisabled)
	assert.Empty(t, dispatcher.dispatched)
}

func TestServiceStart_LinkForbidsDownload(t *testing.T) {
	rooms := seedRoom(true, false)
	rooms.PutDocuments("dr_1", document("d1", "nda.pdf", nil, pdfVersion("k1", 100)))
	svc, _, _ := newService(t, rooms)

	_, err := svc.Start(context.Background(), export.Request{DataroomID: "dr_1", LinkID: "lnk_1"})

	assert.ErrorIs(t, err, export.ErrDownloadNotAllowed)
}

func TestServiceStart_LinkFromOtherDataroom(t *testing.T) {
	rooms := seedRoom(true, true)
	rooms.PutDataroom(&dataroom.Dataroom{ID: "dr_2", Name: "Other", AllowBulkDownload: true})
	rooms.PutDocuments("dr_2", document("d1", "nda.pdf", nil, pdfVersion("k1", 100)))
	svc, _, _ := newService(t, rooms)

	// lnk_1 belongs to dr_1 and must not open dr_2.
	_, err := svc.Start(context.Background(), export.Request{DataroomID: "dr_2", LinkID: "lnk_1"})

	assert.ErrorIs(t, err, dataroom.ErrLinkNotFound)
}

func TestServiceStart_NothingToDownload(t *testing.T) {
	rooms := seedRoom(true, true)
	// Only a notion page: excluded from archives, so the manifest is empty.
	rooms.PutDocuments("dr_1", document("d1", "notes", nil, dataroom.Version{
		FileKey: "k1",
		Kind:    dataroom.KindNotion,
		Storage: dataroom.StorageS3,
	}))
	svc, jobs, _ := newService(t, rooms)

	_, err := svc.Start(context.Background(), export.Request{DataroomID: "dr_1", LinkID: "lnk_1"})
	assert.ErrorIs(t, err, export.ErrNothingToDownload)

	// No orphan job record is left behind.
	listed, err := jobs.ListByLink(context.Background(), "dr_1", "lnk_1", job.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestServiceStart_GroupFilterAppliesBeforeCounting(t *testing.T) {
	rooms := seedRoom(true, true)
	rooms.PutDocuments("dr_1",
		document("d1", "open.pdf", nil, pdfVersion("k1", 100)),
		document("d2", "secret.pdf", nil, pdfVersion("k2", 200)),
	)
	rooms.PutGrants("dr_1", "grp_1", dataroom.Grant{
		GroupID:     "grp_1",
		ItemID:      "d1",
		ItemKind:    dataroom.ItemDocument,
		CanView:     true,
		CanDownload: true,
	})
	svc, _, _ := newService(t, rooms)

	j, err := svc.Start(context.Background(), export.Request{
		DataroomID: "dr_1",
		LinkID:     "lnk_1",
		GroupID:    strPtr("grp_1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, j.TotalFiles)
}

func TestServiceStart_DispatchFailureMarksJobFailed(t *testing.T) {
	rooms := seedRoom(true, true)
	rooms.PutDocuments("dr_1", document("d1", "nda.pdf", nil, pdfVersion("k1", 100)))
	svc, jobs, dispatcher := newService(t, rooms)
	dispatcher.err = errors.New("pubsub unavailable")

	_, err := svc.Start(context.Background(), export.Request{DataroomID: "dr_1", LinkID: "lnk_1"})
	require.Error(t, err)

	listed, err := jobs.ListByLink(context.Background(), "dr_1", "lnk_1", job.ListOptions{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, job.StatusFailed, listed[0].Status)
	require.NotNil(t, listed[0].Error)
	assert.Contains(t, *listed[0].Error, "pubsub unavailable")
}

func TestServiceListJobs_NewestFirstAndLinkScoped(t *testing.T) {
	rooms := seedRoom(true, true)
	svc, jobs, _ := newService(t, rooms)

	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, jobs.Create(context.Background(), &job.ExportJob{
			ID:         fmt.Sprintf("exp_%d", i),
			Type:       job.TypeFullDataroom,
			DataroomID: "dr_1",
			LinkID:     "lnk_1",
			Status:     job.StatusCompleted,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, jobs.Create(context.Background(), &job.ExportJob{
		ID:         "exp_other",
		Type:       job.TypeFullDataroom,
		DataroomID: "dr_1",
		LinkID:     "lnk_2",
		Status:     job.StatusCompleted,
		CreatedAt:  base.Add(time.Hour),
	}))

	listed, err := svc.ListJobs(context.Background(), "dr_1", "lnk_1", 10)
	require.NoError(t, err)

	require.Len(t, listed, 3)
	assert.Equal(t, "exp_2", listed[0].ID)
	assert.Equal(t, "exp_1", listed[1].ID)
	assert.Equal(t, "exp_0", listed[2].ID)
}
