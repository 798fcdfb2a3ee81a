package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"bindirectory/internal/directory/metrics"
	"bindirectory/internal/directory/models"
	"bindirectory/pkg/platform/sentinel"
)

// Lookup is the cache-aside coherency layer for BIN resolutions.
//
// Entries are JSON snapshots of the resolved institution taken at write
// time, breaker state included. A snapshot is only written for an
// institution judged reachable at that moment; any mutation that can change
// reachability or routing must call Invalidate before the cache is
// consistent again. Within the TTL a cached snapshot can go stale; the
// engine trades staleness for availability.
//
// Every KV failure is swallowed: reads degrade to a miss, writes and
// deletes to a no-op. A nil KV behaves as a cache that always misses.
type Lookup struct {
	kv      KV
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// LookupOption configures a Lookup.
type LookupOption func(*Lookup)

// WithLogger attaches a logger for swallowed cache failures.
func WithLogger(logger *slog.Logger) LookupOption {
	return func(l *Lookup) { l.logger = logger }
}

// WithMetrics attaches engine metrics.
func WithMetrics(m *metrics.Metrics) LookupOption {
	return func(l *Lookup) { l.metrics = m }
}

// NewLookup constructs the coherency layer over kv. kv may be nil.
func NewLookup(kv KV, opts ...LookupOption) *Lookup {
	l := &Lookup{kv: kv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryGet returns the cached snapshot for bin, or nil on miss. Transport
// failures are logged, counted, and reported as a miss.
func (l *Lookup) TryGet(ctx context.Context, bin string) *models.Institution {
	if l.kv == nil {
		return nil
	}

	raw, err := l.kv.Get(ctx, Key(bin))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		l.swallow(ctx, "cache get failed", bin, err)
		return nil
	}

	var snapshot models.Institution
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		// A corrupt entry is as good as a miss; drop it so the next
		// resolution rewrites it.
		l.swallow(ctx, "cache entry corrupt", bin, err)
		_ = l.kv.Del(ctx, Key(bin))
		return nil
	}
	return &snapshot
}

// Put writes the resolved snapshot with the standard TTL, best-effort.
func (l *Lookup) Put(ctx context.Context, bin string, snapshot *models.Institution) {
	if l.kv == nil || snapshot == nil {
		return
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		l.swallow(ctx, "cache marshal failed", bin, err)
		return
	}
	if err := l.kv.Set(ctx, Key(bin), raw, TTL); err != nil {
		l.swallow(ctx, "cache set failed", bin, err)
	}
}

// Invalidate deletes the entries for the given BINs, best-effort.
func (l *Lookup) Invalidate(ctx context.Context, bins ...string) {
	if l.kv == nil || len(bins) == 0 {
		return
	}

	keys := make([]string, 0, len(bins))
	for _, bin := range bins {
		keys = append(keys, Key(bin))
	}
	if err := l.kv.Del(ctx, keys...); err != nil {
		l.swallow(ctx, "cache delete failed", bins[0], err)
	}
}

func (l *Lookup) swallow(ctx context.Context, msg, bin string, err error) {
	l.metrics.RecordCacheError()
	if l.logger != nil {
		l.logger.WarnContext(ctx, msg, "bin", bin, "error", err)
	}
}
