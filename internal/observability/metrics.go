package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshare_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapshare_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FeedRequests counts feed queries by kind (list, following) and outcome.
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshare_feed_requests_total",
		Help: "Total number of feed queries",
	}, []string{"kind", "outcome"})

	// FavoriteMutations counts favorite ledger mutations by operation and outcome.
	FavoriteMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshare_favorite_mutations_total",
		Help: "Total number of favorite/unfavorite operations",
	}, []string{"operation", "outcome"})

	// CommentMutations counts comment add/delete operations by outcome.
	CommentMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshare_comment_mutations_total",
		Help: "Total number of comment add/delete operations",
	}, []string{"operation", "outcome"})

	// CommentRepairs counts dangling references and orphan comments fixed on read.
	CommentRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshare_comment_repairs_total",
		Help: "Comment/post inconsistencies repaired",
	}, []string{"kind"})

	// EventsPublished counts domain events handed to the configured sink.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshare_events_published_total",
		Help: "Domain events published by sink and outcome",
	}, []string{"sink", "outcome"})

	// WebSocketConnectionsTotal is the gauge of open event-stream connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapshare_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts event frames dropped for slow clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshare_websocket_backpressure_drops_total",
		Help: "Event frames dropped because a client buffer was full or closed",
	}, []string{"reason"})
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// OutcomeOf maps err to an outcome label.
func OutcomeOf(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

const queryStartKey = "snapshare:query_start"

// RegisterQueryMetrics installs GORM callbacks that feed DatabaseQueryLatency.
func RegisterQueryMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	steps := []struct {
		op  string
		reg func(name string, fn func(*gorm.DB)) error
		end func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
	}
	for _, s := range steps {
		if err := s.reg("metrics:before_"+s.op, before); err != nil {
			return err
		}
		if err := s.end("metrics:after_"+s.op, after(s.op)); err != nil {
			return err
		}
	}
	return nil
}
