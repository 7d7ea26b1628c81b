package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/logger"
)

type overdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) ([]models.Commission, error)
}

type CommissionOverdueJobParams struct {
	Logger  *logger.Logger
	Sweeper overdueSweeper
	Now     func() time.Time
}

func NewCommissionOverdueJob(params CommissionOverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("commission sweeper required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &commissionOverdueJob{logg: params.Logger, sweeper: params.Sweeper, now: now}, nil
}

// commissionOverdueJob persists the overdue status that reads already derive,
// so reporting queries and the commission_overdue event see it.
type commissionOverdueJob struct {
	logg    *logger.Logger
	sweeper overdueSweeper
	now     func() time.Time
}

func (j *commissionOverdueJob) Name() string { return "commission-overdue-sweep" }

func (j *commissionOverdueJob) Run(ctx context.Context) error {
	flipped, err := j.sweeper.SweepOverdue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("sweep overdue commissions: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "commissions_overdue", len(flipped)), "commission overdue sweep complete")
	return nil
}
