package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

// SwapSink persists swap events.
type SwapSink interface {
	InsertSwap(ctx context.Context, swap *models.SwapEvent) error
}

// SwapPublisher fans swap events out to live subscribers.
type SwapPublisher interface {
	PublishSwap(ctx context.Context, swap *models.SwapEvent) error
}

// Journal records executed swaps. Either side may be nil.
type Journal struct {
	sink      SwapSink
	publisher SwapPublisher
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewJournal(sink SwapSink, publisher SwapPublisher, logger *logrus.Logger) *Journal {
	if logger == nil {
		logger = logrus.New()
	}
	return &Journal{sink: sink, publisher: publisher, timeout: 5 * time.Second, logger: logger}
}

// Record stores and publishes swap. It fills ID and Timestamp when empty.
// The returned error joins every failed side; callers treat it as advisory.
func (j *Journal) Record(ctx context.Context, swap *models.SwapEvent) error {
	if j == nil || swap == nil {
		return nil
	}
	if swap.ID == "" {
		swap.ID = uuid.NewString()
	}
	if swap.Timestamp.IsZero() {
		swap.Timestamp = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	var errs []error
	if j.sink != nil {
		if err := j.sink.InsertSwap(ctx, swap); err != nil {
			errs = append(errs, err)
		}
	}
	if j.publisher != nil {
		if err := j.publisher.PublishSwap(ctx, swap); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		j.logger.WithFields(logrus.Fields{
			"swap": swap.ID,
			"pool": swap.PoolID,
		}).WithError(err).Warn("swap journal write failed")
	}
	return err
}
