package internal

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/formadmin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dbStatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formadmin_db_statement_duration_seconds",
			Help:    "Time until a database statement returned its first result, by statement verb",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"verb"},
	)

	dbStatementErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formadmin_db_statement_errors_total",
			Help: "Database statements that returned an error, by statement verb",
		},
		[]string{"verb"},
	)
)

// meteredDB records statement latency and errors of the wrapped DB.
type meteredDB struct {
	formadmin.DB
}

// InstrumentDB wraps db so every statement is observed in the
// formadmin_db_statement_* metrics.
func InstrumentDB(db formadmin.DB) formadmin.DB {
	if _, ok := db.(*meteredDB); ok {
		return db
	}
	return &meteredDB{DB: db}
}

func (m *meteredDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	start := time.Now()
	rows, err := m.DB.Query(ctx, sql, args...)
	observeStatement(sql, start, err)
	return rows, err
}

func (m *meteredDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	start := time.Now()
	row := m.DB.QueryRow(ctx, sql, args...)
	observeStatement(sql, start, nil)
	return row
}

func (m *meteredDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := m.DB.Exec(ctx, sql, args...)
	observeStatement(sql, start, err)
	return tag, err
}

func observeStatement(sql string, start time.Time, err error) {
	verb := statementVerb(sql)
	dbStatementDuration.WithLabelValues(verb).Observe(time.Since(start).Seconds())
	if err != nil {
		dbStatementErrors.WithLabelValues(verb).Inc()
	}
}

// statementVerb returns the lowercased first keyword of sql, or "other".
func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "other"
	}
	switch verb := strings.ToLower(fields[0]); verb {
	case "select", "insert", "update", "delete", "with":
		return verb
	default:
		return "other"
	}
}
