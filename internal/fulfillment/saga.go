package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/metrics"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"go.uber.org/zap"
)

// CompensationError is returned when a checkout step failed and one or more
// of its compensating actions failed as well. It unwraps to the step's error.
type CompensationError struct {
	Cause    error
	Failures []error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("%v (compensation failed: %v)", e.Cause, errors.Join(e.Failures...))
}

func (e *CompensationError) Unwrap() error { return e.Cause }

func (e *CompensationError) Is(target error) bool { return target == orders.ErrCompensation }

type compensation struct {
	step   string
	detail string
	undo   func(ctx context.Context) error
}

// saga collects the undo actions of one seller group.
type saga struct {
	done []compensation
}

func (s *saga) record(step, detail string, undo func(ctx context.Context) error) {
	s.done = append(s.done, compensation{step: step, detail: detail, undo: undo})
}

// rollback runs every recorded action newest first. It ignores cancellation
// of ctx so a client hanging up mid-checkout still gets its stock restored.
func (s *saga) rollback(ctx context.Context, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) []error {
	if len(s.done) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var failures []error
	for i := len(s.done) - 1; i >= 0; i-- {
		c := s.done[i]
		err := c.undo(ctx)
		m.Compensation(c.step, err == nil)
		if err != nil {
			log.Error("compensation_failed", zap.String("step", c.step), zap.String("target", c.detail), zap.Error(err))
			failures = append(failures, fmt.Errorf("%s %s: %w", c.step, c.detail, err))
			continue
		}
		log.Info("compensation_applied", zap.String("step", c.step), zap.String("target", c.detail))
	}
	s.done = nil
	return failures
}

// abort compensates and folds any compensation failures into cause.
func (s *saga) abort(ctx context.Context, cause error, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) error {
	if failures := s.rollback(ctx, timeout, log, m); len(failures) > 0 {
		return &CompensationError{Cause: cause, Failures: failures}
	}
	return cause
}
