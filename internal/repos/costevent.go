package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/profitlens/profitlens-backend/internal/logger"
	"github.com/profitlens/profitlens-backend/internal/types"
)

type CostEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, events []*types.CostEvent) ([]*types.CostEvent, error)
	SumByCategory(ctx context.Context, tx *gorm.DB, shop string, start, end time.Time) (map[string]float64, error)
}

type costEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCostEventRepo(db *gorm.DB, baseLog *logger.Logger) CostEventRepo {
	repoLog := baseLog.With("repo", "CostEventRepo")
	return &costEventRepo{db: db, log: repoLog}
}

func (r *costEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.CostEvent) ([]*types.CostEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(events) == 0 {
		return []*types.CostEvent{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *costEventRepo) SumByCategory(ctx context.Context, tx *gorm.DB, shop string, start, end time.Time) (map[string]float64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []struct {
		CostCategory string  `gorm:"column:cost_category"`
		Total        float64 `gorm:"column:total"`
	}
	if err := transaction.WithContext(ctx).
		Model(&types.CostEvent{}).
		Select("cost_category, COALESCE(SUM(amount), 0) AS total").
		Where("shop_domain = ? AND timestamp >= ? AND timestamp < ?", shop, start, end).
		Group("cost_category").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := make(map[string]float64, len(rows))
	for _, row := range rows {
		totals[row.CostCategory] = row.Total
	}
	return totals, nil
}
