package repository

import (
	"context"
	"errors"

	"chatvault/internal/domain/file"
	vault_errors "chatvault/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresFileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) FileRepository {
	return &PostgresFileRepository{db: db}
}

func (r *PostgresFileRepository) Create(ctx context.Context, f *file.File) error {
	res := r.db.WithContext(ctx).Create(f)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return vault_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresFileRepository) GetByID(ctx context.Context, id string) (file.File, error) {
	var f file.File
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return file.File{}, vault_errors.ErrNotFound
		}
		return file.File{}, err
	}
	return f, nil
}

func (r *PostgresFileRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&file.File{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return vault_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresFileRepository) GetUserFiles(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]file.File, int64, error) {
	var files []file.File
	var total int64

	q := r.db.WithContext(ctx).
		Model(&file.File{}).
		Where("owner_id = ?", ownerID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	offset := (page - 1) * limit
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&files).Error; err != nil {
		return nil, 0, err
	}

	return files, total, nil
}
