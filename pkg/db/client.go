package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pawcircle/pawcircle-backend/pkg/config"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
)

const txRetryDelay = 25 * time.Millisecond

// Client owns the process-wide gorm handle.
type Client struct {
	conn      *gorm.DB
	txRetries int
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens postgres, or the sqlite file at cfg.SQLitePath when useSQLite is set, and
// applies the pool limits.
func New(ctx context.Context, cfg config.DBConfig, useSQLite bool, logg *logger.Logger) (*Client, error) {
	dialector, err := openDialector(cfg, useSQLite)
	if err != nil {
		return nil, err
	}
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLog(logg, cfg.SlowQuery),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}
	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}

	if useSQLite {
		// one writer at a time, or concurrent transactions fail with SQLITE_BUSY
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	logg.Info(logg.WithField(ctx, "driver", dialector.Name()), "database connected")
	return &Client{conn: conn, txRetries: max(cfg.TxRetries, 0)}, nil
}

// NewFromConn wraps an open handle without retries.
func NewFromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func openDialector(cfg config.DBConfig, useSQLite bool) (gorm.Dialector, error) {
	switch {
	case useSQLite && cfg.SQLitePath == "":
		return nil, errors.New("sqlite path is required")
	case useSQLite:
		return sqlite.Open(cfg.SQLitePath), nil
	case cfg.DSN == "":
		return nil, errors.New("database DSN is required")
	}
	// simple protocol keeps the driver usable behind pgbouncer in transaction mode
	return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx runs fn in a transaction, committing when it returns nil. A serialization failure
// or deadlock reruns fn from scratch up to txRetries more times, so fn must not keep state
// across calls. Panics roll back and propagate.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = c.runTx(ctx, fn)
		if err == nil || attempt >= c.txRetries || !pkgerrors.Diagnose(err).Transient() {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * txRetryDelay):
		}
	}
}

func (c *Client) runTx(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
