package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/profitlens/profitlens-backend/internal/logger"
	apperrors "github.com/profitlens/profitlens-backend/internal/pkg/errors"
	"github.com/profitlens/profitlens-backend/internal/repos"
)

// JourneyService assembles a customer's touchpoint sequence for a
// conversion. Assembly is a pure read: recomputation re-derives the same
// journey from the same touchpoint rows.
type JourneyService interface {
	Assemble(ctx context.Context, shop string, customerID *string, sessionID, orderID string, conversionTime time.Time) (*Journey, error)
}

type journeyService struct {
	db             *gorm.DB
	log            *logger.Logger
	touchpointRepo repos.TouchpointRepo
}

func NewJourneyService(db *gorm.DB, log *logger.Logger, touchpointRepo repos.TouchpointRepo) JourneyService {
	return &journeyService{
		db:             db,
		log:            log.With("service", "JourneyService"),
		touchpointRepo: touchpointRepo,
	}
}

// Assemble fetches every touchpoint for the customer (session when
// anonymous) up to the conversion time, ascending, scoped to the one order:
// prior orders' conversions and anything before them stay out, so the
// journey's conversion value is exactly the terminal order's revenue. Zero
// rows signals ErrEmptyJourney; this service never fabricates data, the
// caller decides how to degrade.
func (s *journeyService) Assemble(ctx context.Context, shop string, customerID *string, sessionID, orderID string, conversionTime time.Time) (*Journey, error) {
	tps, err := s.touchpointRepo.GetJourney(ctx, nil, shop, customerID, sessionID, orderID, conversionTime)
	if err != nil {
		return nil, err
	}
	if len(tps) == 0 {
		return nil, apperrors.ErrEmptyJourney
	}
	return &Journey{Touchpoints: tps}, nil
}
