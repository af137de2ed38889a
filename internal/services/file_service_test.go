package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatvault/internal/domain/file"
	"chatvault/internal/domain/message"
	"chatvault/internal/domain/outbox"
	"chatvault/internal/events"
	"chatvault/internal/storage"
	vault_errors "chatvault/pkg/errors"
	"chatvault/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chatvault/internal/domain/room"
)

type fakeFileRepo struct {
	files map[string]file.File
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[string]file.File)}
}

func (r *fakeFileRepo) Create(_ context.Context, f *file.File) error {
	if _, ok := r.files[f.ID]; ok {
		return vault_errors.ErrAlreadyExists
	}
	r.files[f.ID] = *f
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, id string) (file.File, error) {
	f, ok := r.files[id]
	if !ok {
		return file.File{}, vault_errors.ErrNotFound
	}
	return f, nil
}

func (r *fakeFileRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.files[id]; !ok {
		return vault_errors.ErrNotFound
	}
	delete(r.files, id)
	return nil
}

func (r *fakeFileRepo) GetUserFiles(_ context.Context, ownerID uuid.UUID, _, _ int) ([]file.File, int64, error) {
	var out []file.File
	for _, f := range r.files {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	return out, int64(len(out)), nil
}

type fakeMessageRepo struct {
	byFileID map[string]message.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{byFileID: make(map[string]message.Message)}
}

func (r *fakeMessageRepo) attach(fileID string, roomID uuid.UUID) {
	r.byFileID[fileID] = message.Message{
		ID:     uuid.New(),
		RoomID: roomID,
		FileID: sql.NullString{String: fileID, Valid: true},
	}
}

func (r *fakeMessageRepo) Create(context.Context, *gorm.DB, *message.Message) error { return nil }

func (r *fakeMessageRepo) GetByID(_ context.Context, id uuid.UUID) (message.Message, error) {
	for _, m := range r.byFileID {
		if m.ID == id {
			return m, nil
		}
	}
	return message.Message{}, vault_errors.ErrNotFound
}

func (r *fakeMessageRepo) GetByFileID(_ context.Context, fileID string) (message.Message, error) {
	m, ok := r.byFileID[fileID]
	if !ok {
		return message.Message{}, vault_errors.ErrNotFound
	}
	return m, nil
}

func (r *fakeMessageRepo) ListRoomMessages(context.Context, uuid.UUID, time.Time, int) ([]message.Message, error) {
	return nil, nil
}

func (r *fakeMessageRepo) SoftDelete(context.Context, uuid.UUID) error { return nil }

type roomKey struct {
	roomID uuid.UUID
	userID uuid.UUID
}

type fakeMembership struct {
	members map[roomKey]bool
}

func newFakeMembership() *fakeMembership {
	return &fakeMembership{members: make(map[roomKey]bool)}
}

func (r *fakeMembership) join(roomID, userID uuid.UUID)  { r.members[roomKey{roomID, userID}] = true }
func (r *fakeMembership) leave(roomID, userID uuid.UUID) { delete(r.members, roomKey{roomID, userID}) }

func (r *fakeMembership) IsParticipant(_ context.Context, roomID, userID uuid.UUID) (bool, error) {
	return r.members[roomKey{roomID, userID}], nil
}

func (r *fakeMembership) Create(context.Context, *room.Room) error { return nil }

func (r *fakeMembership) GetByID(context.Context, uuid.UUID) (room.Room, error) {
	return room.Room{}, vault_errors.ErrNotFound
}

func (r *fakeMembership) Delete(context.Context, uuid.UUID) error { return nil }

func (r *fakeMembership) AddParticipant(_ context.Context, p *room.Participant) error {
	r.join(p.RoomID, p.UserID)
	return nil
}

func (r *fakeMembership) RemoveParticipant(_ context.Context, roomID, userID uuid.UUID) error {
	r.leave(roomID, userID)
	return nil
}

func (r *fakeMembership) GetParticipants(context.Context, uuid.UUID) ([]room.Participant, error) {
	return nil, nil
}

func (r *fakeMembership) GetUserRooms(context.Context, uuid.UUID) ([]room.Room, error) {
	return nil, nil
}

func newTestFileService(t *testing.T) (*FileService, *fakeFileRepo, *fakeMessageRepo, *fakeMembership, *storage.Local) {
	t.Helper()
	base := t.TempDir()
	store, err := storage.NewLocal(filepath.Join(base, "files"), filepath.Join(base, "staging"))
	require.NoError(t, err)

	files := newFakeFileRepo()
	messages := newFakeMessageRepo()
	rooms := newFakeMembership()
	svc := NewFileService(files, messages, rooms, store, storage.GenerateStorageID,
		NewEventPublisher(newFakeOutboxRepo()), logger.NewNop())
	return svc, files, messages, rooms, store
}

func stage(t *testing.T, store *storage.Local, content string) string {
	t.Helper()
	staged, _, err := store.Stage(strings.NewReader(content))
	require.NoError(t, err)
	return staged
}

func TestIngestRoundTrip(t *testing.T) {
	svc, files, _, _, store := newTestFileService(t)
	owner := uuid.New()

	staged := stage(t, store, "round trip payload")
	f, err := svc.Ingest(context.Background(), IngestInput{
		UploaderID:   owner,
		StagedPath:   staged,
		OriginalName: "report.pdf",
		ContentType:  "application/pdf",
		SizeBytes:    17,
	})
	require.NoError(t, err)

	got, err := files.GetByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.OriginalName)
	assert.Equal(t, "application/pdf", got.MimeType)
	assert.EqualValues(t, 17, got.SizeBytes)
	assert.Equal(t, owner, got.OwnerID)

	r, err := store.Open(f.ID)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "round trip payload", string(data))
}

func TestIngestRejectsEmptyUpload(t *testing.T) {
	svc, _, _, _, _ := newTestFileService(t)

	_, err := svc.Ingest(context.Background(), IngestInput{
		UploaderID:   uuid.New(),
		OriginalName: "nothing.txt",
	})
	assert.ErrorIs(t, err, vault_errors.ErrNoFile)
}

type failingPromoteStore struct {
	*storage.Local
}

func (s failingPromoteStore) Promote(string, string) error {
	return errors.New("disk full")
}

func TestIngestCompensatesOnPromoteFailure(t *testing.T) {
	base := t.TempDir()
	local, err := storage.NewLocal(filepath.Join(base, "files"), filepath.Join(base, "staging"))
	require.NoError(t, err)

	files := newFakeFileRepo()
	svc := NewFileService(files, newFakeMessageRepo(), newFakeMembership(),
		failingPromoteStore{local}, storage.GenerateStorageID,
		NewEventPublisher(newFakeOutboxRepo()), logger.NewNop())

	staged := stage(t, local, "doomed")
	_, err = svc.Ingest(context.Background(), IngestInput{
		UploaderID:   uuid.New(),
		StagedPath:   staged,
		OriginalName: "doomed.txt",
		ContentType:  "text/plain",
		SizeBytes:    6,
	})
	require.ErrorIs(t, err, vault_errors.ErrIngestFailed)

	// The orphan row was rolled back: nothing is retrievable.
	assert.Empty(t, files.files)
}

func TestAuthorize(t *testing.T) {
	svc, files, messages, rooms, _ := newTestFileService(t)

	owner := uuid.New()
	member := uuid.New()
	outsider := uuid.New()
	roomID := uuid.New()

	f := file.File{ID: "1700000000000_aabbccdd.pdf", OriginalName: "a.pdf", MimeType: "application/pdf", OwnerID: owner}
	require.NoError(t, files.Create(context.Background(), &f))
	messages.attach(f.ID, roomID)
	rooms.join(roomID, owner)
	rooms.join(roomID, member)

	t.Run("participant allowed", func(t *testing.T) {
		got, err := svc.Authorize(context.Background(), member, f.ID)
		require.NoError(t, err)
		assert.Equal(t, f.ID, got.ID)
	})

	t.Run("non-participant forbidden", func(t *testing.T) {
		_, err := svc.Authorize(context.Background(), outsider, f.ID)
		assert.ErrorIs(t, err, vault_errors.ErrForbidden)
	})

	t.Run("unknown file not found", func(t *testing.T) {
		_, err := svc.Authorize(context.Background(), member, "missing")
		assert.ErrorIs(t, err, vault_errors.ErrNotFound)
	})

	t.Run("orphan file not found", func(t *testing.T) {
		orphan := file.File{ID: "1700000000001_ffeeddcc.txt", OwnerID: owner}
		require.NoError(t, files.Create(context.Background(), &orphan))
		_, err := svc.Authorize(context.Background(), owner, orphan.ID)
		assert.ErrorIs(t, err, vault_errors.ErrNotFound)
	})

	t.Run("membership changes take effect immediately", func(t *testing.T) {
		_, err := svc.Authorize(context.Background(), member, f.ID)
		require.NoError(t, err)

		rooms.leave(roomID, member)
		_, err = svc.Authorize(context.Background(), member, f.ID)
		assert.ErrorIs(t, err, vault_errors.ErrForbidden)

		rooms.join(roomID, member)
		_, err = svc.Authorize(context.Background(), member, f.ID)
		assert.NoError(t, err)
	})
}

func TestDeliver(t *testing.T) {
	svc, _, messages, rooms, store := newTestFileService(t)

	owner := uuid.New()
	roomID := uuid.New()
	rooms.join(roomID, owner)

	staged := stage(t, store, "pdf bytes here")
	f, err := svc.Ingest(context.Background(), IngestInput{
		UploaderID:   owner,
		StagedPath:   staged,
		OriginalName: "report.pdf",
		ContentType:  "application/pdf",
		SizeBytes:    14,
	})
	require.NoError(t, err)
	messages.attach(f.ID, roomID)

	t.Run("attachment sets no-cache headers", func(t *testing.T) {
		d, err := svc.Deliver(context.Background(), owner, f.ID, DispositionAttachment)
		require.NoError(t, err)
		defer d.Content.Close()

		assert.Equal(t, "application/pdf", d.Headers["Content-Type"])
		assert.Equal(t, "14", d.Headers["Content-Length"])
		assert.Contains(t, d.Headers["Content-Disposition"], "attachment")
		assert.Contains(t, d.Headers["Content-Disposition"], "report.pdf")
		assert.Equal(t, "private, no-cache, no-store, must-revalidate", d.Headers["Cache-Control"])
		assert.Equal(t, "no-cache", d.Headers["Pragma"])
		assert.Equal(t, "0", d.Headers["Expires"])

		data, err := io.ReadAll(d.Content)
		require.NoError(t, err)
		assert.Equal(t, "pdf bytes here", string(data))
	})

	t.Run("inline sets immutable cache headers", func(t *testing.T) {
		d, err := svc.Deliver(context.Background(), owner, f.ID, DispositionInline)
		require.NoError(t, err)
		defer d.Content.Close()

		assert.Contains(t, d.Headers["Content-Disposition"], "inline")
		assert.Equal(t, "public, max-age=31536000, immutable", d.Headers["Cache-Control"])
		assert.NotContains(t, d.Headers, "Pragma")
	})

	t.Run("non-participant forbidden", func(t *testing.T) {
		_, err := svc.Deliver(context.Background(), uuid.New(), f.ID, DispositionAttachment)
		assert.ErrorIs(t, err, vault_errors.ErrForbidden)
	})
}

func TestDeliverPreviewGating(t *testing.T) {
	svc, _, messages, rooms, store := newTestFileService(t)

	owner := uuid.New()
	roomID := uuid.New()
	rooms.join(roomID, owner)

	staged := stage(t, store, "MZ binary")
	f, err := svc.Ingest(context.Background(), IngestInput{
		UploaderID:   owner,
		StagedPath:   staged,
		OriginalName: "setup.exe",
		ContentType:  "application/x-msdownload",
		SizeBytes:    9,
	})
	require.NoError(t, err)
	messages.attach(f.ID, roomID)

	// Even the owner cannot preview a non-previewable type.
	_, err = svc.Deliver(context.Background(), owner, f.ID, DispositionInline)
	assert.ErrorIs(t, err, vault_errors.ErrUnsupportedPreview)

	// Same file still downloads fine.
	d, err := svc.Deliver(context.Background(), owner, f.ID, DispositionAttachment)
	require.NoError(t, err)
	d.Content.Close()

	// Gate fires before authorization: an outsider gets the preview
	// error, not Forbidden.
	_, err = svc.Deliver(context.Background(), uuid.New(), f.ID, DispositionInline)
	assert.ErrorIs(t, err, vault_errors.ErrUnsupportedPreview)
}

func TestDelete(t *testing.T) {
	svc, files, _, _, store := newTestFileService(t)

	owner := uuid.New()
	staged := stage(t, store, "to delete")
	f, err := svc.Ingest(context.Background(), IngestInput{
		UploaderID:   owner,
		StagedPath:   staged,
		OriginalName: "old.txt",
		ContentType:  "text/plain",
		SizeBytes:    9,
	})
	require.NoError(t, err)

	t.Run("non-owner forbidden", func(t *testing.T) {
		err := svc.Delete(context.Background(), uuid.New(), f.ID)
		assert.ErrorIs(t, err, vault_errors.ErrForbidden)
	})

	t.Run("owner deletes", func(t *testing.T) {
		require.NoError(t, svc.Delete(context.Background(), owner, f.ID))

		_, err := files.GetByID(context.Background(), f.ID)
		assert.ErrorIs(t, err, vault_errors.ErrNotFound)
		_, err = store.Open(f.ID)
		assert.ErrorIs(t, err, vault_errors.ErrNotFound)
	})

	t.Run("second delete reports not found", func(t *testing.T) {
		err := svc.Delete(context.Background(), owner, f.ID)
		assert.ErrorIs(t, err, vault_errors.ErrNotFound)
	})
}

func TestDeleteSurvivesMissingBytes(t *testing.T) {
	svc, files, _, _, store := newTestFileService(t)

	owner := uuid.New()
	staged := stage(t, store, "bytes vanish")
	f, err := svc.Ingest(context.Background(), IngestInput{
		UploaderID:   owner,
		StagedPath:   staged,
		OriginalName: "gone.txt",
		ContentType:  "text/plain",
		SizeBytes:    12,
	})
	require.NoError(t, err)

	// Simulate bytes lost out of band; metadata delete still wins.
	require.NoError(t, store.Remove(f.ID))
	require.NoError(t, svc.Delete(context.Background(), owner, f.ID))

	_, err = files.GetByID(context.Background(), f.ID)
	assert.ErrorIs(t, err, vault_errors.ErrNotFound)
}

func TestDeletePublishesRoomEvent(t *testing.T) {
	base := t.TempDir()
	store, err := storage.NewLocal(filepath.Join(base, "files"), filepath.Join(base, "staging"))
	require.NoError(t, err)

	files := newFakeFileRepo()
	messages := newFakeMessageRepo()
	rooms := newFakeMembership()
	outboxRepo := newFakeOutboxRepo()
	svc := NewFileService(files, messages, rooms, store, storage.GenerateStorageID,
		NewEventPublisher(outboxRepo), logger.NewNop())

	owner := uuid.New()
	roomID := uuid.New()
	staged := stage(t, store, "shared upload")
	f, err := svc.Ingest(context.Background(), IngestInput{
		UploaderID:   owner,
		StagedPath:   staged,
		OriginalName: "shared.txt",
		ContentType:  "text/plain",
		SizeBytes:    13,
	})
	require.NoError(t, err)
	messages.attach(f.ID, roomID)

	require.NoError(t, svc.Delete(context.Background(), owner, f.ID))

	require.Len(t, outboxRepo.rows, 1)
	for _, row := range outboxRepo.rows {
		assert.Equal(t, string(events.EventFileDeleted), row.EventType)
		assert.Equal(t, outbox.StatusPending, row.Status)

		var env events.Envelope
		require.NoError(t, json.Unmarshal(row.Payload, &env))
		assert.Equal(t, events.EventFileDeleted, env.EventType)
		assert.Equal(t, roomID, env.RoomID)
		assert.Equal(t, f.ID, env.AggregateID)

		var payload events.FileDeletedEvent
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		assert.Equal(t, f.ID, payload.FileID)
		assert.Equal(t, owner, payload.DeletedBy)
	}
}

func TestDeleteOrphanEmitsNoEvent(t *testing.T) {
	base := t.TempDir()
	store, err := storage.NewLocal(filepath.Join(base, "files"), filepath.Join(base, "staging"))
	require.NoError(t, err)

	files := newFakeFileRepo()
	outboxRepo := newFakeOutboxRepo()
	svc := NewFileService(files, newFakeMessageRepo(), newFakeMembership(), store,
		storage.GenerateStorageID, NewEventPublisher(outboxRepo), logger.NewNop())

	owner := uuid.New()
	staged := stage(t, store, "never shared")
	f, err := svc.Ingest(context.Background(), IngestInput{
		UploaderID:   owner,
		StagedPath:   staged,
		OriginalName: "draft.txt",
		ContentType:  "text/plain",
		SizeBytes:    12,
	})
	require.NoError(t, err)

	// No message references the file, so there is no room to notify.
	require.NoError(t, svc.Delete(context.Background(), owner, f.ID))

	_, err = files.GetByID(context.Background(), f.ID)
	assert.ErrorIs(t, err, vault_errors.ErrNotFound)
	assert.Empty(t, outboxRepo.rows)
}

func TestIsPreviewable(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"audio/mpeg", true},
		{"video/mp4", true},
		{"application/pdf", true},
		{"text/plain", true},
		{"text/plain; charset=utf-8", true},
		{"application/x-msdownload", false},
		{"application/octet-stream", false},
		{"text/html", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPreviewable(tt.contentType))
		})
	}
}
