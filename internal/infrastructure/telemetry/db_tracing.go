package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the spans opened for SQL statements.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound values in the recorded statement.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin wires otelgorm into a gorm.DB and decorates its spans
// with row counts, the table name and a slow query flag.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

const startedKey = "telemetry:started"

// hookPoint is what gorm's Before and After return for a processor.
type hookPoint interface {
	Register(name string, fn func(*gorm.DB)) error
}

// Register is a no-op unless tracing is enabled.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}
	if err := db.Use(otelgorm.NewPlugin(p.otelgormOptions()...)); err != nil {
		return err
	}

	cb := db.Callback()
	// Annotations must land before otelgorm ends the span.
	hooks := map[string][2]hookPoint{
		"create": {cb.Create().Before("gorm:create"), cb.Create().After("gorm:create").Before("otel:after:create")},
		"query":  {cb.Query().Before("gorm:query"), cb.Query().After("gorm:query").Before("otel:after:query")},
		"update": {cb.Update().Before("gorm:update"), cb.Update().After("gorm:update").Before("otel:after:update")},
		"delete": {cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete").Before("otel:after:delete")},
		"row":    {cb.Row().Before("gorm:row"), cb.Row().After("gorm:row").Before("otel:after:row")},
		"raw":    {cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw").Before("otel:after:raw")},
	}
	for op, at := range hooks {
		if err := at[0].Register("telemetry:start_"+op, markStart); err != nil {
			return err
		}
		if err := at[1].Register("telemetry:annotate_"+op, p.after); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.String("db_system", p.config.DBSystem),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.Bool("log_full_sql", p.config.LogFullSQL),
	)
	return nil
}

func (p *DBTracingPlugin) otelgormOptions() []otelgorm.Option {
	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if p.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	return opts
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startedKey, time.Now())
}

func (p *DBTracingPlugin) after(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Context == nil {
		return
	}
	span := trace.SpanFromContext(stmt.Context)
	if !span.IsRecording() {
		return
	}

	var attrs []attribute.KeyValue
	if stmt.RowsAffected >= 0 {
		attrs = append(attrs, attribute.Int64("db.rows_affected", stmt.RowsAffected))
	}
	if stmt.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", stmt.Table))
	}
	if err := db.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if v, ok := db.InstanceGet(startedKey); ok {
		if elapsed := time.Since(v.(time.Time)); elapsed > p.config.SlowQueryThresh {
			ms := elapsed.Milliseconds()
			attrs = append(attrs,
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", ms),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", ms),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
	span.SetAttributes(attrs...)
}
