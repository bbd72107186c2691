package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/spiral-modules/dbal/database/types"
)

const (
	defaultOperation = "query"

	dbTracerName      = "github.com/spiral-modules/dbal"
	maxDBQueryAttrLen = 2000

	attrDBSystemName = attribute.Key("db.system.name")
)

// Statement describes one executed statement.
type Statement struct {
	// Query is the SQL as sent to the engine, in native placeholder form.
	Query string
	// Interpolated is the debug form with parameters inlined. Optional.
	Interpolated string
	Args         []any
	Start        time.Time
	// RowsAffected is zero for reads.
	RowsAffected int64
	// RowsRead is the number of rows a query cursor consumed before it was released.
	RowsRead int64
	Err          error
}

// Track records a completed statement. It is a no-op when tc is nil.
//
// Failures are logged at error level, statements slower than the configured threshold
// at warn level, and with profiling enabled every other statement at debug level.
// sql.ErrNoRows is not treated as a failure.
func Track(ctx context.Context, tc *Context, st Statement) {
	if tc == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	elapsed := time.Since(st.Start)

	createDBSpan(ctx, tc, st)
	recordDBMetrics(ctx, tc, st.Query, elapsed, st.RowsAffected, st.Err)

	if tc.Logger == nil {
		return
	}

	failed := st.Err != nil && !errors.Is(st.Err, sql.ErrNoRows)
	threshold := tc.Settings.SlowQueryThreshold()
	slow := threshold > 0 && elapsed > threshold
	if !failed && !slow && !tc.Settings.Profiling() {
		return
	}

	maxLen := tc.Settings.MaxQueryLength()
	fields := map[string]any{
		"dialect":     string(tc.Dialect),
		"duration_ms": elapsed.Milliseconds(),
		"query":       TruncateString(st.Query, maxLen),
	}
	if tc.Name != "" {
		fields["database"] = tc.Name
	}
	if st.Interpolated != "" && tc.Settings.Profiling() {
		fields["interpolated"] = TruncateString(st.Interpolated, maxLen)
	}
	if tc.Settings.LogQueryParameters() && len(st.Args) > 0 {
		fields["args"] = SanitizeArgs(st.Args, maxLen)
	}
	if st.RowsAffected > 0 {
		fields["rows_affected"] = st.RowsAffected
	}
	if st.RowsRead > 0 {
		fields["rows_read"] = st.RowsRead
	}

	event := tc.Logger.WithContext(ctx).WithFields(fields)
	switch {
	case failed:
		event.Error().Err(st.Err).Msg("Database statement failed")
	case slow:
		event.Warn().Msgf("Slow database statement detected (%s)", elapsed)
	default:
		event.Debug().Msg("Database statement executed")
	}
}

// TruncateString truncates value to at most maxLen runes, ending in "..." when there
// is room for it. maxLen <= 0 disables truncation.
func TruncateString(value string, maxLen int) string {
	if maxLen <= 0 {
		return value
	}
	r := []rune(value)
	if len(r) <= maxLen {
		return value
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// SanitizeArgs returns a copy of args suitable for logging: strings truncated, byte
// slices replaced by "<bytes len=N>", everything else formatted with %v and truncated.
func SanitizeArgs(args []any, maxLen int) []any {
	if len(args) == 0 {
		return nil
	}
	sanitized := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
			sanitized[i] = nil
		case string:
			sanitized[i] = TruncateString(v, maxLen)
		case []byte:
			sanitized[i] = fmt.Sprintf("<bytes len=%d>", len(v))
		default:
			sanitized[i] = TruncateString(fmt.Sprintf("%v", v), maxLen)
		}
	}
	return sanitized
}

// createDBSpan records a client span covering the statement, started at st.Start.
func createDBSpan(ctx context.Context, tc *Context, st Statement) {
	operation := extractDBOperation(st.Query)

	_, span := otel.Tracer(dbTracerName).Start(ctx, "db."+operation,
		trace.WithTimestamp(st.Start),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	attrs := []attribute.KeyValue{
		attrDBSystemName.String(systemName(tc.Dialect)),
		semconv.DBQueryText(TruncateString(st.Query, maxDBQueryAttrLen)),
	}
	if operation != defaultOperation {
		attrs = append(attrs, semconv.DBOperationName(operation))
	}
	if table := extractTableName(st.Query); table != unknownTable {
		attrs = append(attrs, semconv.DBCollectionName(table))
	}
	if tc.Name != "" {
		attrs = append(attrs, semconv.DBNamespace(tc.Name))
	}
	span.SetAttributes(attrs...)

	if st.Err != nil && !errors.Is(st.Err, sql.ErrNoRows) {
		span.RecordError(st.Err)
		span.SetStatus(codes.Error, st.Err.Error())
	}

	span.End()
}

// extractDBOperation returns the lowercase leading keyword of a statement when it is
// one of the tracked operations.
func extractDBOperation(query string) string {
	parts := strings.Fields(query)
	if len(parts) == 0 {
		return defaultOperation
	}

	operation := strings.ToLower(parts[0])
	switch operation {
	case "select", "insert", "update", "delete", "create", "drop", "alter", "truncate",
		"begin", "commit", "rollback", "savepoint", "release", "save", "pragma", "show":
		return operation
	case "with":
		return "select"
	default:
		return defaultOperation
	}
}

// systemName maps a dialect to the OpenTelemetry db.system.name value.
func systemName(d types.Dialect) string {
	switch d {
	case types.Postgres:
		return "postgresql"
	case types.SQLServer:
		return "microsoft.sql_server"
	case types.Oracle:
		return "oracle.db"
	case "":
		return "other_sql"
	default:
		return string(d)
	}
}
