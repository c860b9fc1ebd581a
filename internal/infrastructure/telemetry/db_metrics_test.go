package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func TestDBMetrics_Register(t *testing.T) {
	ctx := context.Background()
	mp, reader := setupMeter(t)
	db := setupTestDB(t)

	m, err := NewDBMetrics(mp.Meter("db.client"), DBMetricsConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Register(db))

	require.NoError(t, db.WithContext(ctx).Create(&evidenceRow{Name: "receipt.pdf"}).Error)
	require.NoError(t, db.WithContext(ctx).Create(&evidenceRow{Name: "scan.png"}).Error)
	var rows []evidenceRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	require.NoError(t, db.WithContext(ctx).Model(&evidenceRow{}).Where("id = ?", rows[0].ID).Update("name", "invoice.pdf").Error)
	var count int64
	require.NoError(t, db.WithContext(ctx).Raw("SELECT count(*) FROM evidence_rows").Scan(&count).Error)

	rm := collect(t, reader)
	assert.EqualValues(t, 2, counterValue(t, rm, "db_query_total", AttrDBOperation.String("INSERT")))
	assert.EqualValues(t, 2, counterValue(t, rm, "db_query_total", AttrDBOperation.String("SELECT")))
	assert.EqualValues(t, 1, counterValue(t, rm, "db_query_total", AttrDBOperation.String("UPDATE")))
	assert.NotNil(t, findMetric(rm, "db_query_duration_seconds"))
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	ctx := context.Background()
	mp, reader := setupMeter(t)
	m, err := NewDBMetrics(mp.Meter("db.client"), DBMetricsConfig{SlowQueryThreshold: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	m.RecordQuery(ctx, "select", "payments", 50*time.Millisecond)
	m.RecordQuery(ctx, "select", "payments", time.Millisecond)
	m.RecordQuery(ctx, "", "", 20*time.Millisecond)

	rm := collect(t, reader)
	selectOp := AttrDBOperation.String("SELECT")
	assert.EqualValues(t, 2, counterValue(t, rm, "db_query_total", selectOp))
	assert.EqualValues(t, 1, counterValue(t, rm, "db_query_total", AttrDBOperation.String("UNKNOWN")))
	assert.EqualValues(t, 1, counterValue(t, rm, "db_slow_query_total", selectOp, AttrDBTable.String("payments")))
	assert.EqualValues(t, 1, counterValue(t, rm, "db_slow_query_total",
		AttrDBOperation.String("UNKNOWN"), AttrDBTable.String("unknown")))

	h := findMetric(rm, "db_query_duration_seconds")
	require.NotNil(t, h)
	var total uint64
	for _, dp := range h.Data.(metricdata.Histogram[float64]).DataPoints {
		total += dp.Count
	}
	assert.EqualValues(t, 3, total)
}

func TestDBMetrics_PoolStats(t *testing.T) {
	mp, reader := setupMeter(t)
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)

	m, err := NewDBMetrics(mp.Meter("db.client"), DBMetricsConfig{PoolStatsInterval: time.Hour}, zaptest.NewLogger(t))
	require.NoError(t, err)
	m.StartPoolStats(context.Background(), sqlDB)
	m.Stop()
	m.Stop()

	rm := collect(t, reader)
	maxConns := findMetric(rm, "db_pool_connections_max")
	require.NotNil(t, maxConns, "pool stats are sampled once on start")
	points := maxConns.Data.(metricdata.Gauge[int64]).DataPoints
	require.Len(t, points, 1)
	assert.EqualValues(t, 4, points[0].Value)

	conns := findMetric(rm, "db_pool_connections")
	require.NotNil(t, conns)
	assert.Len(t, conns.Data.(metricdata.Gauge[int64]).DataPoints, 3, "idle, in_use and open")
}

func TestRegisterDBMetrics_Disabled(t *testing.T) {
	db := setupTestDB(t)
	for name, mp := range map[string]*MeterProvider{
		"no provider":       nil,
		"disabled provider": {},
	} {
		t.Run(name, func(t *testing.T) {
			m, err := RegisterDBMetrics(context.Background(), db, mp, DBMetricsConfig{}, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.Nil(t, m)
			m.Stop()
		})
	}
}

func TestSQLVerb(t *testing.T) {
	tests := map[string]string{
		"SELECT count(*) FROM payments":     "SELECT",
		"  insert into payments values (1)": "INSERT",
		"UPDATE payments SET status = 'x'":  "UPDATE",
		"delete from payments":              "DELETE",
		"PRAGMA foreign_keys = ON":          "OTHER",
		"":                                  "OTHER",
	}
	for query, want := range tests {
		assert.Equal(t, want, sqlVerb(query), query)
	}
}
