package sql

import (
	"context"
	"log/slog"
	"time"

	"github.com/jarcodallo/knex/dialect"
)

// DebugDriver wraps a Driver with statement logging.
type DebugDriver struct {
	dialect.Driver
	logger        *slog.Logger
	slowThreshold time.Duration
}

// DebugOption configures the DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLogger sets the logger. Default is slog.Default().
func DebugWithLogger(l *slog.Logger) DebugOption {
	return func(d *DebugDriver) {
		d.logger = l
	}
}

// WithSlowThreshold sets the duration above which statements are logged
// as warnings. Zero disables slow statement detection.
func WithSlowThreshold(t time.Duration) DebugOption {
	return func(d *DebugDriver) {
		d.slowThreshold = t
	}
}

// NewDebugDriver wraps a Driver with debug logging.
//
// Example:
//
//	drv, _ := sql.Open("postgres", dsn)
//	debug := sql.NewDebugDriver(drv,
//	    sql.DebugWithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))),
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	)
func NewDebugDriver(drv dialect.Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{
		Driver: drv,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Query executes a query and logs it.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, "query", query, args, start, err)
	return err
}

// Exec executes a statement and logs it.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, "exec", query, args, start, err)
	return err
}

func (d *DebugDriver) record(ctx context.Context, kind, query string, args any, start time.Time, err error) {
	duration := time.Since(start)
	attrs := []any{"dialect", d.Dialect(), "query", query, "args", args, "duration", duration}
	switch {
	case err != nil:
		d.logger.ErrorContext(ctx, kind+" failed", append(attrs, "error", err)...)
	case d.slowThreshold > 0 && duration > d.slowThreshold:
		d.logger.WarnContext(ctx, "slow statement detected", attrs...)
	default:
		d.logger.DebugContext(ctx, kind, attrs...)
	}
}

// Tx starts a transaction with debug logging.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.logger.DebugContext(ctx, "begin transaction", "dialect", d.Dialect())
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, driver: d}, nil
}

// DebugTx wraps a transaction with debug logging.
type DebugTx struct {
	dialect.Tx
	driver *DebugDriver
}

// Query executes a query within the transaction and logs it.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, "tx query", query, args, start, err)
	return err
}

// Exec executes a statement within the transaction and logs it.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, "tx exec", query, args, start, err)
	return err
}

// Commit commits the transaction and logs it.
func (tx *DebugTx) Commit() error {
	tx.driver.logger.Debug("commit transaction")
	return tx.Tx.Commit()
}

// Rollback rolls back the transaction and logs it.
func (tx *DebugTx) Rollback() error {
	tx.driver.logger.Debug("rollback transaction")
	return tx.Tx.Rollback()
}

// Ensure interfaces are implemented.
var (
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)
