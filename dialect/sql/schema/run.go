package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql"
)

// ErrOrphanedShadow is matched by a StepError that left the shadow table of
// a rebuild behind. The original table is either intact or already dropped,
// depending on the failed step.
var ErrOrphanedShadow = errors.New("sql/schema: rebuild left an orphaned shadow table")

// StepError reports the failure of a plan step.
type StepError struct {
	// Index is the position of the failed step among the executed ones.
	Index int
	Step  *Step
	// LastCompleted names the last step that succeeded, empty if none.
	LastCompleted string
	// Shadow is the shadow table left in the database, if any.
	Shadow string
	// RolledBack reports if the executed steps were rolled back.
	RolledBack bool
	Err        error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("sql/schema: step %d (%s) failed", e.Index+1, e.Step.Name)
	if e.LastCompleted != "" {
		msg += " after " + e.LastCompleted
	}
	if e.RolledBack {
		msg += ", rolled back"
	}
	if e.Shadow != "" {
		msg += fmt.Sprintf(", shadow table %q left behind", e.Shadow)
	}
	return msg + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }

// Is reports whether the error left a shadow table behind.
func (e *StepError) Is(err error) bool {
	return err == ErrOrphanedShadow && e.Shadow != ""
}

// Runner executes plans on a driver.
type Runner struct {
	drv      dialect.Driver
	tx       *bool
	observer sql.Observer
	logger   *slog.Logger
}

// RunOption configures a Runner.
type RunOption func(*Runner)

// WithTx forces running plans inside (or outside) a transaction. By default
// a transaction is used when the dialect supports transactional DDL.
func WithTx(b bool) RunOption {
	return func(r *Runner) {
		r.tx = &b
	}
}

// WithObserver registers a function called with every executed statement.
func WithObserver(o sql.Observer) RunOption {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithLogger sets the logger. Default discards.
func WithLogger(l *slog.Logger) RunOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner returns a Runner executing plans on drv.
func NewRunner(drv dialect.Driver, opts ...RunOption) *Runner {
	r := &Runner{
		drv:    drv,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the plan step by step. Derive steps are resolved against the
// results collected so far and their output runs right after them. On
// failure, a transaction is rolled back and a *StepError is returned.
// Plans are never retried.
func (r *Runner) Run(ctx context.Context, plan *Plan) (Results, error) {
	useTx := r.useTx(plan.Dialect)
	var (
		conn dialect.ExecQuerier = r.drv
		tx   dialect.Tx
	)
	if useTx {
		var err error
		if tx, err = r.drv.Tx(ctx); err != nil {
			return nil, fmt.Errorf("sql/schema: begin transaction: %w", err)
		}
		conn = tx
	}
	var (
		results   Results
		steps     = slices.Clone(plan.Steps)
		shadow    string
		completed string
		executed  int
	)
	fail := func(i int, s *Step, err error) (Results, error) {
		serr := &StepError{Index: i, Step: s, LastCompleted: completed, Err: err}
		if tx != nil {
			if rerr := tx.Rollback(); rerr != nil {
				serr.Err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
			} else {
				serr.RolledBack = true
			}
		} else {
			serr.Shadow = shadow
		}
		r.logger.ErrorContext(ctx, "alteration step failed", "table", plan.Table, "step", s.Name, "error", serr.Err)
		return results, serr
	}
	for i := 0; i < len(steps); i++ {
		s := steps[i]
		if err := ctx.Err(); err != nil {
			return fail(executed, s, err)
		}
		for _, w := range s.Warnings {
			r.logger.WarnContext(ctx, w, "table", plan.Table, "step", s.Name)
		}
		if s.Derive != nil {
			next, err := s.Derive(results)
			if err != nil {
				return fail(executed, s, err)
			}
			steps = slices.Insert(steps, i+1, next...)
			completed = s.Name
			continue
		}
		res := &Result{Step: s, Affected: -1}
		var err error
		if s.Query {
			res.Rows, err = sql.QueryMaps(ctx, conn, s.Stmt.DriverSQL(), s.Stmt.Args)
		} else {
			res.Affected, err = sql.ExecAffected(ctx, conn, s.Stmt.DriverSQL(), s.Stmt.Args)
		}
		if err != nil {
			return fail(executed, s, err)
		}
		executed++
		r.logger.DebugContext(ctx, "alteration step executed", "table", plan.Table, "step", s.Name, "query", s.Stmt.SQL)
		if r.observer != nil {
			r.observer(s.Stmt)
		}
		switch s.Name {
		case StepCreateShadow:
			shadow = s.Shadow
		case StepSwap:
			shadow = ""
		}
		completed = s.Name
		results = append(results, res)
	}
	if tx != nil {
		if err := tx.Commit(); err != nil {
			return results, fmt.Errorf("sql/schema: commit: %w", err)
		}
	}
	return results, nil
}

func (r *Runner) useTx(name string) bool {
	if r.tx != nil {
		return *r.tx
	}
	g, err := dialect.Get(name)
	return err == nil && g.TransactionalDDL
}
