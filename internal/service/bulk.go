package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatwire/chatwire/internal/messenger"
)

// BulkOutcome is the per-recipient result of a bulk send.
type BulkOutcome struct {
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// BulkResult aggregates a completed bulk send. Partial failure is part of
// the payload, never an operation-level error.
type BulkResult struct {
	Outcomes   []BulkOutcome `json:"outcomes"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
}

// BulkService sends one message to many recipients strictly sequentially,
// waiting a fixed delay between consecutive sends. The messaging network
// penalizes bursty traffic, so the throttle lives client-side. There is no
// retry on rejection and no cancellation path once iteration has started.
type BulkService struct {
	driver        messenger.Driver
	defaultDelay  time.Duration
	maxRecipients int
	logger        *slog.Logger
	sleep         func(time.Duration)
}

// NewBulkService creates a BulkService. defaultDelay applies when a caller
// passes a negative delay; maxRecipients caps one batch.
func NewBulkService(driver messenger.Driver, defaultDelay time.Duration, maxRecipients int, logger *slog.Logger) *BulkService {
	if maxRecipients <= 0 {
		maxRecipients = 100
	}
	return &BulkService{
		driver:        driver,
		defaultDelay:  defaultDelay,
		maxRecipients: maxRecipients,
		logger:        logger,
		sleep:         time.Sleep,
	}
}

// SendBulk dispatches message to each recipient in order. A failed recipient
// is recorded and the batch continues; the delay is awaited between
// consecutive sends, never after the last one. Pass a negative delay to use
// the configured default.
func (s *BulkService) SendBulk(ctx context.Context, recipients []string, message string, delay time.Duration) (*BulkResult, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", ErrValidation)
	}
	if len(recipients) > s.maxRecipients {
		return nil, fmt.Errorf("%w: at most %d recipients per batch", ErrValidation, s.maxRecipients)
	}
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if delay < 0 {
		delay = s.defaultDelay
	}

	result := &BulkResult{Outcomes: make([]BulkOutcome, 0, len(recipients))}
	for i, recipient := range recipients {
		if i > 0 && delay > 0 {
			s.sleep(delay)
		}

		outcome := BulkOutcome{Recipient: recipient, Success: true}
		if _, err := s.driver.SendText(ctx, recipient, message); err != nil {
			outcome.Success = false
			outcome.Error = err.Error()
			result.Failed++
			s.logger.Warn("bulk send failed", "recipient", recipient, "error", err)
		} else {
			result.Successful++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	s.logger.Info("bulk send finished",
		"recipients", len(recipients),
		"successful", result.Successful,
		"failed", result.Failed,
	)
	return result, nil
}
