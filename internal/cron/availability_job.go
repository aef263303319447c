package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bjaksic84/rentmate-backend/pkg/logger"
	"github.com/bjaksic84/rentmate-backend/pkg/metrics"
)

const defaultAvailabilityBatch = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AvailabilityJobParams configure the item availability reconciliation job.
type AvailabilityJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository AvailabilityRepository
	Metrics    *metrics.CronJobMetrics
	BatchSize  int
}

type availabilityJob struct {
	logg    *logger.Logger
	db      txRunner
	repo    AvailabilityRepository
	metrics *metrics.CronJobMetrics
	batch   int
}

// NewAvailabilityJob builds a job that sets items.is_rented to whether the
// item has an Active rental.
func NewAvailabilityJob(params AvailabilityJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("availability repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultAvailabilityBatch
	}
	return &availabilityJob{
		logg:    params.Logger,
		db:      params.DB,
		repo:    params.Repository,
		metrics: params.Metrics,
		batch:   batch,
	}, nil
}

func (j *availabilityJob) Name() string { return "item-availability-reconcile" }

func (j *availabilityJob) Run(ctx context.Context) error {
	ids, err := j.repo.FindDrifted(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("find drifted items: %w", err)
	}

	var (
		repaired int64
		errs     []error
	)
	for _, id := range ids {
		fixed, err := j.repair(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %s: %w", id, err))
			continue
		}
		if fixed {
			repaired++
		}
	}
	j.metrics.AddAffected(j.Name(), repaired)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"drifted":  len(ids),
		"repaired": repaired,
	})
	if repaired > 0 {
		j.logg.Warn(logCtx, "item availability drift repaired")
	} else {
		j.logg.Info(logCtx, "item availability consistent")
	}
	return errors.Join(errs...)
}

// repair re-checks the item under its row lock, since a rental transition may
// have fixed it between the scan and now.
func (j *availabilityJob) repair(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var fixed bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)
		item, err := repo.LockItem(ctx, itemID)
		if err != nil {
			return err
		}
		active, err := repo.HasActiveRental(ctx, itemID)
		if err != nil {
			return err
		}
		if item.IsRented == active {
			return nil
		}
		if err := repo.SetRented(ctx, itemID, active); err != nil {
			return err
		}
		fixed = true
		return nil
	})
	return fixed, err
}
