package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"
	"time"

	"chatvault/internal/domain/file"
	"chatvault/internal/repository"
	vault_errors "chatvault/pkg/errors"
	"chatvault/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlobStore is the slice of the local disk store the file service needs.
type BlobStore interface {
	Path(id string) (string, error)
	Promote(stagedPath, id string) error
	Discard(stagedPath string) error
	Open(id string) (io.ReadCloser, error)
	Remove(id string) error
}

// GenerateID produces a fresh storage identifier for an original
// filename. Wired to storage.GenerateStorageID in production; a field so
// tests can pin identifiers.
type GenerateID func(originalName string) string

type FileService struct {
	files     repository.FileRepository
	messages  repository.MessageRepository
	rooms     repository.RoomRepository
	store     BlobStore
	generate  GenerateID
	publisher *EventPublisher
	logger    *logger.Logger
}

func NewFileService(
	files repository.FileRepository,
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	store BlobStore,
	generate GenerateID,
	publisher *EventPublisher,
	l *logger.Logger,
) *FileService {
	return &FileService{
		files:     files,
		messages:  messages,
		rooms:     rooms,
		store:     store,
		generate:  generate,
		publisher: publisher,
		logger:    l,
	}
}

type IngestInput struct {
	UploaderID   uuid.UUID
	StagedPath   string
	OriginalName string
	ContentType  string
	SizeBytes    int64
}

// Ingest registers an uploaded file and moves its staged bytes into the
// store. Metadata is written before the bytes land: if the rename fails
// the row is deleted again, so an orphaned row never outlives the
// request. The reverse order would leak bytes with no record of them.
func (s *FileService) Ingest(ctx context.Context, in IngestInput) (file.File, error) {
	if in.StagedPath == "" {
		return file.File{}, vault_errors.ErrNoFile
	}
	if in.UploaderID == uuid.Nil {
		return file.File{}, vault_errors.ErrInvalidInput
	}
	if in.ContentType == "" {
		in.ContentType = "application/octet-stream"
	}

	id := s.generate(in.OriginalName)
	dest, err := s.store.Path(id)
	if err != nil {
		// A generated identifier escaping the root is a defect, not a
		// user error.
		s.logger.WithContext(ctx).Error("generated storage id failed path check",
			zap.String("file_id", id), zap.Error(err))
		s.discardStaged(ctx, in.StagedPath)
		return file.File{}, err
	}

	f := &file.File{
		ID:           id,
		OriginalName: in.OriginalName,
		MimeType:     in.ContentType,
		SizeBytes:    in.SizeBytes,
		OwnerID:      in.UploaderID,
		Location:     dest,
		CreatedAt:    time.Now(),
	}
	if err := s.files.Create(ctx, f); err != nil {
		s.discardStaged(ctx, in.StagedPath)
		return file.File{}, err
	}

	if err := s.store.Promote(in.StagedPath, id); err != nil {
		s.logger.WithContext(ctx).Error("file promote failed, rolling back metadata",
			zap.String("file_id", id), zap.Error(err))
		if delErr := s.files.Delete(ctx, id); delErr != nil {
			s.logger.WithContext(ctx).Error("compensating metadata delete failed",
				zap.String("file_id", id), zap.Error(delErr))
		}
		s.discardStaged(ctx, in.StagedPath)
		return file.File{}, fmt.Errorf("%w: %v", vault_errors.ErrIngestFailed, err)
	}

	return *f, nil
}

func (s *FileService) discardStaged(ctx context.Context, stagedPath string) {
	if err := s.store.Discard(stagedPath); err != nil {
		s.logger.WithContext(ctx).Warn("failed to remove staged file", zap.Error(err))
	}
}

// Authorize walks file → message → room participants and returns the
// file when userID may access it. The chain is re-evaluated on every
// call; room membership is mutable, so no decision is cached.
func (s *FileService) Authorize(ctx context.Context, userID uuid.UUID, fileID string) (file.File, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return file.File{}, err
	}
	if err := s.authorizeFile(ctx, userID, f); err != nil {
		return file.File{}, err
	}
	return f, nil
}

func (s *FileService) authorizeFile(ctx context.Context, userID uuid.UUID, f file.File) error {
	msg, err := s.messages.GetByFileID(ctx, f.ID)
	if err != nil {
		// A file no message references is orphaned and inaccessible.
		return err
	}

	ok, err := s.rooms.IsParticipant(ctx, msg.RoomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return vault_errors.ErrForbidden
	}
	return nil
}

type Disposition string

const (
	DispositionAttachment Disposition = "attachment"
	DispositionInline     Disposition = "inline"
)

// Delivery is an authorized, opened file ready to stream, plus the
// response headers the transport should set before the first byte.
type Delivery struct {
	File    file.File
	Content io.ReadCloser
	Headers map[string]string
}

// Deliver authorizes userID for fileID and opens the stored bytes.
// Inline delivery is gated on the preview allow-list before the
// authorization walk, so a non-previewable type reports
// ErrUnsupportedPreview no matter who asks.
func (s *FileService) Deliver(ctx context.Context, userID uuid.UUID, fileID string, mode Disposition) (Delivery, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return Delivery{}, err
	}

	if mode == DispositionInline && !IsPreviewable(f.MimeType) {
		return Delivery{}, vault_errors.ErrUnsupportedPreview
	}

	if err := s.authorizeFile(ctx, userID, f); err != nil {
		return Delivery{}, err
	}

	content, err := s.store.Open(f.ID)
	if err != nil {
		return Delivery{}, err
	}

	headers := map[string]string{
		"Content-Type":        f.MimeType,
		"Content-Length":      strconv.FormatInt(f.SizeBytes, 10),
		"Content-Disposition": contentDisposition(mode, f.OriginalName),
	}
	if mode == DispositionInline {
		// Bytes under a storage identifier are immutable once placed.
		headers["Cache-Control"] = "public, max-age=31536000, immutable"
	} else {
		headers["Cache-Control"] = "private, no-cache, no-store, must-revalidate"
		headers["Pragma"] = "no-cache"
		headers["Expires"] = "0"
	}

	return Delivery{File: f, Content: content, Headers: headers}, nil
}

// Delete removes a file the caller owns. The physical unlink is
// best-effort; deleting the metadata row is what makes the file gone.
// Rooms that shared the file learn about the deletion through the
// outbox.
func (s *FileService) Delete(ctx context.Context, userID uuid.UUID, fileID string) error {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if f.OwnerID != userID {
		return vault_errors.ErrForbidden
	}

	// Resolve the room before the row disappears. An orphaned file has
	// no room to notify.
	var roomID uuid.UUID
	if msg, err := s.messages.GetByFileID(ctx, f.ID); err == nil {
		roomID = msg.RoomID
	} else if !errors.Is(err, vault_errors.ErrNotFound) {
		s.logger.WithContext(ctx).Warn("failed to resolve room for file deletion",
			zap.String("file_id", f.ID), zap.Error(err))
	}

	if err := s.store.Remove(f.ID); err != nil {
		if errors.Is(err, vault_errors.ErrPathViolation) {
			return err
		}
		s.logger.WithContext(ctx).Warn("physical file removal failed",
			zap.String("file_id", f.ID), zap.Error(err))
	}

	if err := s.files.Delete(ctx, f.ID); err != nil {
		return err
	}

	if roomID != uuid.Nil {
		if err := s.publisher.PublishFileDeleted(ctx, nil, f.ID, roomID, userID); err != nil {
			s.logger.WithContext(ctx).Error("failed to record file deleted event",
				zap.String("file_id", f.ID), zap.Error(err))
		}
	}

	return nil
}

// GetUserFiles lists the caller's own uploads.
func (s *FileService) GetUserFiles(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]file.File, int64, error) {
	return s.files.GetUserFiles(ctx, ownerID, page, limit)
}

var previewableExact = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"text/markdown":   true,
	"text/csv":        true,
}

// IsPreviewable reports whether a content type may be rendered inline.
func IsPreviewable(contentType string) bool {
	mt := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mt = parsed
	}
	mt = strings.ToLower(mt)
	if strings.HasPrefix(mt, "image/") || strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/") {
		return true
	}
	return previewableExact[mt]
}

func contentDisposition(mode Disposition, originalName string) string {
	name := originalName
	if name == "" {
		name = "file"
	}
	return mime.FormatMediaType(string(mode), map[string]string{"filename": name})
}
