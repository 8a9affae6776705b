package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lunascript/taskflow/pkg/common/errors"
	"github.com/lunascript/taskflow/pkg/nursery"
)

func invalidExpr(expr string, err error) error {
	return fmt.Errorf("sched: %w: cron expression %q: %v", errors.ErrInvalidConfiguration, expr, err)
}

// Task is the unit of recurring work run by a Scheduler.
type Task func(ctx context.Context) error

// Scheduler parses cron expressions and spawns the resulting recurring
// tasks into a nursery, so scheduled work participates in structured
// concurrency: a failing run fails the scope, and scope shutdown stops
// every schedule.
type Scheduler struct {
	parser cron.Parser
}

// New creates a Scheduler. Expressions use six fields with seconds
// resolution plus descriptors such as "@hourly" and "@every 10s".
func New() *Scheduler {
	return &Scheduler{
		parser: cron.NewParser(
			cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
	}
}

// Validate checks expr without scheduling anything.
func (s *Scheduler) Validate(expr string) error {
	_, err := s.parser.Parse(expr)
	if err != nil {
		return invalidExpr(expr, err)
	}
	return nil
}

// Next returns the first execution time strictly after from.
func (s *Scheduler) Next(expr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(expr)
	if err != nil {
		return time.Time{}, invalidExpr(expr, err)
	}
	return schedule.Next(from), nil
}

// EntryOption configures one schedule.
type EntryOption func(*entry)

// WithMaxRuns stops the schedule after n successful runs. Zero means
// unlimited.
func WithMaxRuns(n int) EntryOption {
	return func(e *entry) { e.maxRuns = n }
}

type entry struct {
	maxRuns int
}

// Schedule parses expr and spawns a recurring task named name into n. The
// returned handle aborts the schedule without failing the scope. A task
// error propagates as a nursery failure; runs do not overlap, the next one
// is computed after the previous returns.
func (s *Scheduler) Schedule(n *nursery.Nursery, name, expr string, task Task, opts ...EntryOption) (*nursery.Handle, error) {
	schedule, err := s.parser.Parse(expr)
	if err != nil {
		return nil, invalidExpr(expr, err)
	}

	var e entry
	for _, opt := range opts {
		opt(&e)
	}

	h := n.Go(name, func(ctx context.Context) error {
		runs := 0
		for {
			next := schedule.Next(time.Now())
			if err := Sleep(ctx, time.Until(next)); err != nil {
				return err
			}
			if err := task(ctx); err != nil {
				return err
			}
			runs++
			if e.maxRuns > 0 && runs >= e.maxRuns {
				return nil
			}
		}
	})
	return h, nil
}
