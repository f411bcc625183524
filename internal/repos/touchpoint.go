package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/profitlens/profitlens-backend/internal/logger"
	"github.com/profitlens/profitlens-backend/internal/types"
)

// DailyRevenueRow is one day of conversion revenue.
type DailyRevenueRow struct {
	Date    time.Time `gorm:"column:date"`
	Revenue float64   `gorm:"column:revenue"`
	Orders  int       `gorm:"column:orders"`
}

type TouchpointRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tps []*types.Touchpoint) ([]*types.Touchpoint, error)
	GetJourney(ctx context.Context, tx *gorm.DB, shop string, customerID *string, sessionID, orderID string, until time.Time) ([]*types.Touchpoint, error)
	GetByOrderID(ctx context.Context, tx *gorm.DB, shop, orderID string) ([]*types.Touchpoint, error)
	GetConversionsInRange(ctx context.Context, tx *gorm.DB, shop string, start, end time.Time) ([]*types.Touchpoint, error)
	GetDailyRevenue(ctx context.Context, tx *gorm.DB, shop string, start, end time.Time) ([]DailyRevenueRow, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type touchpointRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTouchpointRepo(db *gorm.DB, baseLog *logger.Logger) TouchpointRepo {
	repoLog := baseLog.With("repo", "TouchpointRepo")
	return &touchpointRepo{db: db, log: repoLog}
}

func (r *touchpointRepo) Create(ctx context.Context, tx *gorm.DB, tps []*types.Touchpoint) ([]*types.Touchpoint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(tps) == 0 {
		return []*types.Touchpoint{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&tps).Error; err != nil {
		return nil, err
	}
	return tps, nil
}

// GetJourney returns the ordered touchpoint sequence leading up to one
// conversion: customer-scoped when the customer is known, session-scoped for
// anonymous buyers. The window opens strictly after the customer's most
// recent prior conversion and other orders' conversion rows are excluded, so
// the journey carries exactly the terminal order's conversion value and a
// returning customer's second order never re-credits touchpoints already
// attributed to the first. Ties on timestamp fall back to insertion order.
func (r *touchpointRepo) GetJourney(ctx context.Context, tx *gorm.DB, shop string, customerID *string, sessionID, orderID string, until time.Time) ([]*types.Touchpoint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Where("shop_domain = ? AND timestamp <= ?", shop, until)
		if customerID != nil && *customerID != "" {
			return q.Where("customer_id = ?", *customerID)
		}
		return q.Where("session_id = ?", sessionID)
	}

	var prior types.Touchpoint
	err := scope(transaction.WithContext(ctx)).
		Where("conversion_value > 0 AND order_id <> ?", orderID).
		Order("timestamp DESC, seq DESC").
		First(&prior).Error
	hasPrior := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	q := scope(transaction.WithContext(ctx)).
		Where("NOT (conversion_value > 0 AND order_id <> ?)", orderID)
	if hasPrior {
		q = q.Where("timestamp > ? OR (timestamp = ? AND seq > ?)", prior.Timestamp, prior.Timestamp, prior.Seq)
	}

	var results []*types.Touchpoint
	if err := q.Order("timestamp ASC, seq ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *touchpointRepo) GetByOrderID(ctx context.Context, tx *gorm.DB, shop, orderID string) ([]*types.Touchpoint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Touchpoint
	if orderID == "" {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("shop_domain = ? AND order_id = ?", shop, orderID).
		Order("timestamp ASC, seq ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *touchpointRepo) GetConversionsInRange(ctx context.Context, tx *gorm.DB, shop string, start, end time.Time) ([]*types.Touchpoint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Touchpoint
	if err := transaction.WithContext(ctx).
		Where("shop_domain = ? AND conversion_value > 0 AND timestamp >= ? AND timestamp < ?", shop, start, end).
		Order("timestamp ASC, seq ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *touchpointRepo) GetDailyRevenue(ctx context.Context, tx *gorm.DB, shop string, start, end time.Time) ([]DailyRevenueRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []DailyRevenueRow
	if err := transaction.WithContext(ctx).
		Model(&types.Touchpoint{}).
		Select("DATE(timestamp) AS date, SUM(conversion_value) AS revenue, COUNT(*) AS orders").
		Where("shop_domain = ? AND conversion_value > 0 AND timestamp >= ? AND timestamp < ?", shop, start, end).
		Group("DATE(timestamp)").
		Order("date ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOlderThan is retention cleanup, the only path that removes
// touchpoints. The cutoff must stay behind the longest snapshot and forecast
// window in use or rebuilds lose data.
func (r *touchpointRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&types.Touchpoint{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
