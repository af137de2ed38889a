package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatvault/internal/domain/file"
	"chatvault/internal/repository"
	"chatvault/internal/storage"
	vault_errors "chatvault/pkg/errors"
	"chatvault/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Presigner is the slice of the S3 client the presign service needs.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error)
	ObjectURL(key string) string
}

// PresignService hands out time-boxed upload URLs so large files go
// straight to object storage instead of through the API.
type PresignService struct {
	files    repository.FileRepository
	users    repository.UserRepository
	s3       Presigner
	generate GenerateID
	logger   *logger.Logger
}

func NewPresignService(
	files repository.FileRepository,
	users repository.UserRepository,
	s3 Presigner,
	generate GenerateID,
	l *logger.Logger,
) *PresignService {
	return &PresignService{
		files:    files,
		users:    users,
		s3:       s3,
		generate: generate,
		logger:   l,
	}
}

type PresignInput struct {
	UploaderID   uuid.UUID
	OriginalName string
	ContentType  string
	SizeBytes    int64
}

type PresignedUpload struct {
	FileID    string            `json:"file_id"`
	UploadURL string            `json:"upload_url"`
	Headers   map[string]string `json:"headers,omitempty"`
	ObjectURL string            `json:"object_url"`
	ExpiresIn int64             `json:"expires_in"`
}

// CreateUpload generates a storage identifier, records the file against
// the authenticated uploader, and returns a presigned PUT URL for it.
// The owner is always the caller; the client cannot name someone else.
func (s *PresignService) CreateUpload(ctx context.Context, in PresignInput, ttl time.Duration) (PresignedUpload, error) {
	if s.s3 == nil {
		return PresignedUpload{}, vault_errors.ErrServiceUnavailable
	}
	if in.UploaderID == uuid.Nil {
		return PresignedUpload{}, vault_errors.ErrUnauthorized
	}
	if in.OriginalName == "" || in.ContentType == "" || in.SizeBytes <= 0 {
		return PresignedUpload{}, vault_errors.ErrInvalidInput
	}

	id := s.generate(in.OriginalName)
	key := fmt.Sprintf("uploads/%s/%s", in.UploaderID, id)

	uploadURL, headers, err := s.s3.PresignPut(ctx, key, in.ContentType, in.SizeBytes)
	if err != nil {
		s.logger.WithContext(ctx).Error("presign put failed",
			zap.String("file_id", id), zap.Error(err))
		return PresignedUpload{}, err
	}

	// The row exists before the bytes do. If the client never PUTs, the
	// URL expires and the row points at nothing; delete reclaims it.
	f := &file.File{
		ID:           id,
		OriginalName: in.OriginalName,
		MimeType:     in.ContentType,
		SizeBytes:    in.SizeBytes,
		OwnerID:      in.UploaderID,
		Location:     s.s3.ObjectURL(key),
		CreatedAt:    time.Now(),
	}
	if err := s.files.Create(ctx, f); err != nil {
		return PresignedUpload{}, err
	}

	return PresignedUpload{
		FileID:    id,
		UploadURL: uploadURL,
		Headers:   headers,
		ObjectURL: f.Location,
		ExpiresIn: int64(ttl.Seconds()),
	}, nil
}

type ProfilePresignInput struct {
	UserID      uuid.UUID
	FileName    string
	ContentType string
	SizeBytes   int64
}

// CreateProfileUpload presigns an avatar upload under the caller's own
// prefix. Only image types are accepted.
func (s *PresignService) CreateProfileUpload(ctx context.Context, in ProfilePresignInput, ttl time.Duration) (PresignedUpload, error) {
	if s.s3 == nil {
		return PresignedUpload{}, vault_errors.ErrServiceUnavailable
	}
	if in.UserID == uuid.Nil {
		return PresignedUpload{}, vault_errors.ErrUnauthorized
	}
	if !strings.HasPrefix(strings.ToLower(in.ContentType), "image/") {
		return PresignedUpload{}, vault_errors.ErrInvalidInput
	}

	id := storage.GenerateStorageID(in.FileName)
	key := fmt.Sprintf("profiles/%s/%s", in.UserID, id)

	uploadURL, headers, err := s.s3.PresignPut(ctx, key, in.ContentType, in.SizeBytes)
	if err != nil {
		return PresignedUpload{}, err
	}

	return PresignedUpload{
		FileID:    id,
		UploadURL: uploadURL,
		Headers:   headers,
		ObjectURL: s.s3.ObjectURL(key),
		ExpiresIn: int64(ttl.Seconds()),
	}, nil
}

// CompleteProfileUpload records the uploaded avatar on the user profile.
// The key must be a bare identifier under the caller's prefix; anything
// with a path separator is rejected.
func (s *PresignService) CompleteProfileUpload(ctx context.Context, userID uuid.UUID, fileKey string) (string, error) {
	if userID == uuid.Nil {
		return "", vault_errors.ErrUnauthorized
	}
	if fileKey == "" || strings.ContainsAny(fileKey, "/\\") || strings.Contains(fileKey, "..") {
		return "", vault_errors.ErrInvalidInput
	}

	imageURL := s.s3.ObjectURL(fmt.Sprintf("profiles/%s/%s", userID, fileKey))
	if err := s.users.UpdateProfileImage(ctx, userID, imageURL); err != nil {
		return "", err
	}
	return imageURL, nil
}
