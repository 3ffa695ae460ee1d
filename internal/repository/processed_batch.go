package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/dmarcstack/dmarcstack/internal/models"
	"github.com/dmarcstack/dmarcstack/internal/tracing"
)

type ProcessedBatchRepository interface {
	Create(ctx context.Context, batch *models.ProcessedBatch) error
	GetByStorageKey(ctx context.Context, storageKey string) (*models.ProcessedBatch, error)
	GetByEmailID(ctx context.Context, emailID string) (*models.ProcessedBatch, error)
}

type processedBatchRepository struct {
	db *gorm.DB
}

func NewProcessedBatchRepository(db *gorm.DB) ProcessedBatchRepository {
	return &processedBatchRepository{db: db}
}

func (r *processedBatchRepository) Create(ctx context.Context, batch *models.ProcessedBatch) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedBatchRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *processedBatchRepository) GetByStorageKey(ctx context.Context, storageKey string) (*models.ProcessedBatch, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedBatchRepository.GetByStorageKey")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var batch models.ProcessedBatch
	if err := r.db.WithContext(ctx).Where("storage_key = ?", storageKey).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &batch, nil
}

func (r *processedBatchRepository) GetByEmailID(ctx context.Context, emailID string) (*models.ProcessedBatch, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processedBatchRepository.GetByEmailID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var batch models.ProcessedBatch
	if err := r.db.WithContext(ctx).Where("email_id = ?", emailID).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &batch, nil
}
