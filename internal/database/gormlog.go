package database

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// zerologGorm routes GORM's logger through zerolog.
type zerologGorm struct {
	log   zerolog.Logger
	level logger.LogLevel
}

// NewGormLogger returns a GORM logger writing to log at Warn level.
func NewGormLogger(log zerolog.Logger) logger.Interface {
	return &zerologGorm{log: log, level: logger.Warn}
}

func (l *zerologGorm) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *zerologGorm) Info(_ context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		l.log.Info().Msgf(msg, data...)
	}
}

func (l *zerologGorm) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		l.log.Warn().Msgf(msg, data...)
	}
}

func (l *zerologGorm) Error(_ context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		l.log.Error().Msgf(msg, data...)
	}
}

func (l *zerologGorm) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case elapsed > slowQuery && l.level >= logger.Warn:
		sql, rows := fc()
		l.log.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case l.level >= logger.Info:
		sql, rows := fc()
		l.log.Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}
