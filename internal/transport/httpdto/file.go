package httpdto

import (
	"time"

	"chatvault/internal/domain/file"
)

type FileResponse struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	OwnerID      string    `json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewFileResponse maps a file row to its API shape. The physical
// location never leaves the server.
func NewFileResponse(f file.File) FileResponse {
	return FileResponse{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		ContentType:  f.MimeType,
		SizeBytes:    f.SizeBytes,
		OwnerID:      f.OwnerID.String(),
		CreatedAt:    f.CreatedAt,
	}
}

type FileListResponse struct {
	Files []FileResponse `json:"files"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type PresignRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	SizeBytes   int64  `json:"size_bytes" binding:"required,gt=0"`
}

type ProfilePresignRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	SizeBytes   int64  `json:"size_bytes" binding:"required,gt=0"`
}

type ProfileCompleteRequest struct {
	FileKey string `json:"file_key" binding:"required"`
}

type ProfileImageResponse struct {
	ProfileImageURL string `json:"profile_image_url"`
}
