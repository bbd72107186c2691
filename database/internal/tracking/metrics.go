package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/spiral-modules/dbal/database/types"
)

const (
	dbMeterName = "github.com/spiral-modules/dbal"

	metricDBCalls      = "db.client.calls"
	metricDBDuration   = "db.client.operation.duration"
	metricRowsAffected = "db.rows.affected"

	metricPoolActive = "db.connection.pool.active"
	metricPoolIdle   = "db.connection.pool.idle"
	metricPoolTotal  = "db.connection.pool.total"

	metricDbSQLTable  = "db.sql.table"
	metricDbOperation = "db.operation.name"

	unknownTable = "unknown"
)

var (
	meterOnce sync.Once
	dbMeter   metric.Meter

	dbCallsCounter        metric.Int64Counter
	dbDurationHistogram   metric.Float64Histogram
	dbRowsAffectedCounter metric.Int64Counter
)

// logMetricError reports an instrument failure to stderr. Metrics are best effort.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize metric %s: %v\n", metricName, err)
	}
}

func initDBMeter() {
	dbMeter = otel.Meter(dbMeterName)

	var err error
	dbCallsCounter, err = dbMeter.Int64Counter(
		metricDBCalls,
		metric.WithDescription("Total number of database client calls"),
	)
	logMetricError(metricDBCalls, err)

	dbDurationHistogram, err = dbMeter.Float64Histogram(
		metricDBDuration,
		metric.WithDescription("Duration of database operations in milliseconds"),
		metric.WithUnit("ms"),
	)
	logMetricError(metricDBDuration, err)

	dbRowsAffectedCounter, err = dbMeter.Int64Counter(
		metricRowsAffected,
		metric.WithDescription("Number of rows affected by database operations"),
	)
	logMetricError(metricRowsAffected, err)
}

func getDBMeter() metric.Meter {
	meterOnce.Do(initDBMeter)
	return dbMeter
}

// recordDBMetrics records the call counter, the duration histogram and, for
// successful writes, the rows affected counter.
func recordDBMetrics(ctx context.Context, tc *Context, query string, duration time.Duration, rowsAffected int64, err error) {
	if getDBMeter() == nil {
		return
	}

	isError := err != nil && !errors.Is(err, sql.ErrNoRows)

	commonAttrs := []attribute.KeyValue{
		attrDBSystemName.String(systemName(tc.Dialect)),
		attribute.String(metricDbOperation, extractDBOperation(query)),
		attribute.String(metricDbSQLTable, extractTableName(query)),
	}

	if dbCallsCounter != nil {
		counterAttrs := make([]attribute.KeyValue, 0, len(commonAttrs)+1)
		counterAttrs = append(counterAttrs, commonAttrs...)
		counterAttrs = append(counterAttrs, attribute.Bool("error", isError))
		dbCallsCounter.Add(ctx, 1, metric.WithAttributes(counterAttrs...))
	}

	if dbDurationHistogram != nil {
		dbDurationHistogram.Record(ctx, float64(duration.Nanoseconds())/1e6, metric.WithAttributes(commonAttrs...))
	}

	if dbRowsAffectedCounter != nil && rowsAffected > 0 && !isError {
		dbRowsAffectedCounter.Add(ctx, rowsAffected, metric.WithAttributes(commonAttrs...))
	}
}

// Table names may be quoted with double quotes, backticks or brackets and qualified
// by a schema; the last segment is captured.
const tableIdent = "(?:[`\"\\[]?\\w+[`\"\\]]?\\.)?[`\"\\[]?(\\w+)[`\"\\]]?"

var (
	selectTableRegex = regexp.MustCompile(`(?i)\bFROM\s+` + tableIdent)
	insertTableRegex = regexp.MustCompile(`(?i)^INSERT\s+INTO\s+` + tableIdent)
	updateTableRegex = regexp.MustCompile(`(?i)^UPDATE\s+` + tableIdent)
	deleteTableRegex = regexp.MustCompile(`(?i)^DELETE\s+FROM\s+` + tableIdent)
	ddlTableRegex    = regexp.MustCompile(`(?i)^(?:CREATE|ALTER|DROP)\s+TABLE\s+(?:IF\s+(?:NOT\s+)?EXISTS\s+)?` + tableIdent)
)

// extractTableName returns the lowercase primary table of a statement, or "unknown".
// For joins the first table wins.
func extractTableName(query string) string {
	query = strings.TrimSpace(query)

	var pattern *regexp.Regexp
	switch extractDBOperation(query) {
	case "select":
		pattern = selectTableRegex
	case "insert":
		pattern = insertTableRegex
	case "update":
		pattern = updateTableRegex
	case "delete":
		pattern = deleteTableRegex
	case "create", "alter", "drop":
		pattern = ddlTableRegex
	default:
		return unknownTable
	}

	if matches := pattern.FindStringSubmatch(query); len(matches) > 1 {
		return strings.ToLower(matches[1])
	}
	return unknownTable
}

// StatsProvider is satisfied by *sql.DB.
type StatsProvider interface {
	Stats() sql.DBStats
}

// RegisterConnectionPoolMetrics registers observable gauges reporting the pool behind
// db: connections in use, idle connections and the configured maximum. The returned
// function unregisters the callback and is safe to call more than once.
func RegisterConnectionPoolMetrics(db StatsProvider, dialect types.Dialect, name string) func() {
	noop := func() {}
	meter := getDBMeter()
	if meter == nil || db == nil {
		return noop
	}

	attrs := metric.WithAttributes(
		attrDBSystemName.String(systemName(dialect)),
		attribute.String("db.client.connection.pool.name", name),
	)

	active, err := meter.Int64ObservableGauge(metricPoolActive, metric.WithDescription("Number of active database connections"))
	logMetricError(metricPoolActive, err)
	idle, err := meter.Int64ObservableGauge(metricPoolIdle, metric.WithDescription("Number of idle database connections"))
	logMetricError(metricPoolIdle, err)
	total, err := meter.Int64ObservableGauge(metricPoolTotal, metric.WithDescription("Maximum number of database connections configured"))
	logMetricError(metricPoolTotal, err)
	if active == nil || idle == nil || total == nil {
		return noop
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := db.Stats()
		o.ObserveInt64(active, int64(stats.InUse), attrs)
		o.ObserveInt64(idle, int64(stats.Idle), attrs)
		o.ObserveInt64(total, int64(stats.MaxOpenConnections), attrs)
		return nil
	}, active, idle, total)
	if err != nil {
		logMetricError("pool_metrics_callback", err)
		return noop
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := registration.Unregister(); err != nil {
				logMetricError("pool_metrics_unregister", err)
			}
		})
	}
}
