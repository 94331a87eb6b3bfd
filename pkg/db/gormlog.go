package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pawcircle/pawcircle-backend/pkg/logger"
)

// queryLog sends gorm's query trace through the service logger. Failed and slow statements
// are warnings; everything else is debug and only emitted at gorm's Info level.
// Bind parameters are never logged since they carry shopper contact details.
type queryLog struct {
	logg  *logger.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

func newQueryLog(logg *logger.Logger, slow time.Duration) *queryLog {
	return &queryLog{logg: logg, slow: slow, level: gormlogger.Warn}
}

func (q *queryLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.level = level
	return &clone
}

func (q *queryLog) Info(ctx context.Context, msg string, args ...any) {
	q.emit(ctx, gormlogger.Info, zerolog.DebugLevel, msg, args)
}

func (q *queryLog) Warn(ctx context.Context, msg string, args ...any) {
	q.emit(ctx, gormlogger.Warn, zerolog.WarnLevel, msg, args)
}

func (q *queryLog) Error(ctx context.Context, msg string, args ...any) {
	q.emit(ctx, gormlogger.Error, zerolog.ErrorLevel, msg, args)
}

func (q *queryLog) emit(ctx context.Context, min gormlogger.LogLevel, level zerolog.Level, msg string, args []any) {
	if q.level < min {
		return
	}
	q.logg.Log(ctx, level, fmt.Sprintf(msg, args...))
}

// ParamsFilter drops bind values before gorm renders the statement for Trace.
func (q *queryLog) ParamsFilter(_ context.Context, sql string, _ ...any) (string, []any) {
	return sql, nil
}

func (q *queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && elapsed > q.slow

	var msg string
	level := zerolog.WarnLevel
	switch {
	case failed && q.level >= gormlogger.Error:
		msg = "db.query.failed"
	case slow && q.level >= gormlogger.Warn:
		msg = "db.query.slow"
	case q.level >= gormlogger.Info:
		msg, level = "db.query", zerolog.DebugLevel
	default:
		return
	}

	sql, rows := fc()
	fields := map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	}
	if failed {
		fields["error"] = err.Error()
	}
	q.logg.Log(q.logg.WithFields(ctx, fields), level, msg)
}
