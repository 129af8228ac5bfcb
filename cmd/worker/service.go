package main

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/metrics"
)

const (
	defaultBatchSize = 50
	defaultPollMs    = 500
	maxBackoff       = 10 * time.Second
	jitterWindow     = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type outboxRepository interface {
	FetchUnpublished(limit int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

// notifier hands a committed event to its delivery channel. The in-tree
// implementation logs receipts; SMS or printer integrations plug in here.
type notifier interface {
	Dispatch(ctx context.Context, event models.OutboxEvent) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Repository outboxRepository
	Notifier   notifier
	Metrics    *metrics.OutboxMetrics
}

// Service drains the outbox and dispatches receipts and stock notices.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	repo         outboxRepository
	notifier     notifier
	metrics      *metrics.OutboxMetrics
	batchSize    int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Notifier == nil {
		return nil, errors.New("notifier is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		repo:         params.Repository,
		notifier:     params.Notifier,
		metrics:      params.Metrics,
		batchSize:    batch,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

// Run polls until the context is cancelled. Poll errors back off with jitter
// instead of killing the loop.
func (s *Service) Run(ctx context.Context) error {
	backoff := s.pollInterval
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		dispatched, err := s.DrainOnce(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox drain failed", err)
			backoff = nextBackoff(backoff)
		} else {
			backoff = s.pollInterval
		}

		if dispatched > 0 {
			// more work may be waiting, skip the sleep
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + jitter()):
		}
	}
}

// DrainOnce dispatches at most one batch and reports how many events moved.
func (s *Service) DrainOnce(ctx context.Context) (int, error) {
	events, err := s.repo.FetchUnpublished(s.batchSize)
	if err != nil {
		return 0, err
	}
	s.metrics.SetBacklog(len(events))

	dispatched := 0
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}

		if err := s.notifier.Dispatch(ctx, event); err != nil {
			s.metrics.IncFailed(string(event.EventType))
			fields := map[string]any{
				"event_id":   event.ID.String(),
				"event_type": string(event.EventType),
				"attempts":   event.AttemptCount + 1,
			}
			s.logg.Error(s.logg.WithFields(ctx, fields), "receipt dispatch failed", err)
			if markErr := s.repo.MarkFailed(event.ID, err); markErr != nil {
				return dispatched, markErr
			}
			continue
		}

		if err := s.repo.MarkPublished(event.ID); err != nil {
			return dispatched, err
		}
		s.metrics.IncPublished(string(event.EventType))
		dispatched++
	}
	return dispatched, nil
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func jitter() time.Duration {
	return time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

// logNotifier writes receipt summaries to the service log. It stands in for
// a real delivery channel while keeping dispatch observable.
type logNotifier struct {
	logg *logger.Logger
}

func (n *logNotifier) Dispatch(ctx context.Context, event models.OutboxEvent) error {
	fields := map[string]any{
		"event_id":       event.ID.String(),
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
	}
	ctx = n.logg.WithFields(ctx, fields)

	switch event.EventType {
	case enums.EventSaleCreated:
		n.logg.Info(ctx, "receipt dispatched")
	case enums.EventStockBelowMinimum:
		n.logg.Warn(ctx, "low stock notice dispatched")
	default:
		n.logg.Info(ctx, "event dispatched")
	}
	return nil
}
