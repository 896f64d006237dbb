package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// DatabaseMetrics holds Prometheus metrics for post store queries.
type DatabaseMetrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewDatabaseMetrics creates and registers database metrics on the given registry.
func NewDatabaseMetrics(reg prometheus.Registerer) *DatabaseMetrics {
	m := &DatabaseMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds, by query name or statement verb.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"statement"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of failed database queries, by query name or statement verb.",
		}, []string{"statement"}),
	}

	reg.MustRegister(m.QueryDuration, m.QueryErrors)
	return m
}

// Observe records one query. Safe on a nil receiver so stores can run without metrics.
func (m *DatabaseMetrics) Observe(sql string, start time.Time, err error) {
	if m == nil {
		return
	}
	statement := StatementVerb(sql)
	m.QueryDuration.WithLabelValues(statement).Observe(time.Since(start).Seconds())
	if err != nil {
		m.QueryErrors.WithLabelValues(statement).Inc()
	}
}

// Tracer returns a pgx.QueryTracer feeding these metrics.
func (m *DatabaseMetrics) Tracer() pgx.QueryTracer {
	return &queryTracer{metrics: m}
}

type queryTracer struct {
	metrics *DatabaseMetrics
}

type queryContextKey struct{}

type queryContext struct {
	start time.Time
	sql   string
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{start: time.Now(), sql: data.SQL})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}
	t.metrics.Observe(qctx.sql, qctx.start, data.Err)
}

// StatementVerb reduces SQL to a low-cardinality label: the query name of
// sqlc-generated statements ("-- name: GetPostByID :one"), else the leading keyword.
func StatementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) >= 3 && fields[0] == "--" && fields[1] == "name:" {
		return fields[2]
	}
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToUpper(fields[0])
}
