package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/dmarcstack/dmarcstack/internal/models"
	"github.com/dmarcstack/dmarcstack/internal/tracing"
)

type DMARCMonitoringRepository interface {
	Create(ctx context.Context, monitoring *models.DMARCMonitoring) error
	ListByDomain(ctx context.Context, domain string, limit int) ([]models.DMARCMonitoring, error)
}

type dmarcMonitoringRepository struct {
	db *gorm.DB
}

func NewDMARCMonitoringRepository(db *gorm.DB) DMARCMonitoringRepository {
	return &dmarcMonitoringRepository{db: db}
}

func (r *dmarcMonitoringRepository) Create(ctx context.Context, monitoring *models.DMARCMonitoring) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dmarcMonitoringRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	return r.db.WithContext(ctx).Create(monitoring).Error
}

func (r *dmarcMonitoringRepository) ListByDomain(ctx context.Context, domain string, limit int) ([]models.DMARCMonitoring, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dmarcMonitoringRepository.ListByDomain")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if limit <= 0 {
		limit = 100
	}

	var rows []models.DMARCMonitoring
	err := r.db.WithContext(ctx).
		Where("domain = ?", domain).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return rows, nil
}
