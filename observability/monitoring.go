package observability

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// SessionStats aggregates the counters shown to the UI and logged on shutdown.
type SessionStats struct {
	InboundByKind    map[string]uint64 `json:"inbound_by_kind"`
	Outbound         uint64            `json:"outbound"`
	MalformedDropped uint64            `json:"malformed_dropped"`
	UnknownDropped   uint64            `json:"unknown_dropped"`
	StaleMessages    uint64            `json:"stale_messages"`
	Reconnects       uint64            `json:"reconnects"`
	PersistFailures  uint64            `json:"persist_failures"`
	ObserverDropped  uint64            `json:"observer_dropped"`
	LastInboundAt    time.Time         `json:"last_inbound_at"`
}

// MonitoringManager counts what happens on the session. Safe for concurrent use.
type MonitoringManager struct {
	log *slog.Logger

	mu            sync.RWMutex
	inbound       map[string]uint64
	lastInboundAt time.Time

	Outbound         uint64
	MalformedDropped uint64
	UnknownDropped   uint64
	StaleMessages    uint64
	Reconnects       uint64
	PersistFailures  uint64
	ObserverDropped  uint64
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{
		log:     log,
		inbound: make(map[string]uint64),
	}
}

func (mm *MonitoringManager) IncrInbound(kind string) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.inbound[kind]++
	mm.lastInboundAt = time.Now()
}

func (mm *MonitoringManager) IncrOutbound()        { atomic.AddUint64(&mm.Outbound, 1) }
func (mm *MonitoringManager) IncrMalformed()       { atomic.AddUint64(&mm.MalformedDropped, 1) }
func (mm *MonitoringManager) IncrUnknown()         { atomic.AddUint64(&mm.UnknownDropped, 1) }
func (mm *MonitoringManager) IncrStaleMessage()    { atomic.AddUint64(&mm.StaleMessages, 1) }
func (mm *MonitoringManager) IncrReconnect()       { atomic.AddUint64(&mm.Reconnects, 1) }
func (mm *MonitoringManager) IncrPersistFailure()  { atomic.AddUint64(&mm.PersistFailures, 1) }
func (mm *MonitoringManager) IncrObserverDropped() { atomic.AddUint64(&mm.ObserverDropped, 1) }

func (mm *MonitoringManager) GetLatest() SessionStats {
	mm.mu.RLock()
	inbound := make(map[string]uint64, len(mm.inbound))
	for k, v := range mm.inbound {
		inbound[k] = v
	}
	last := mm.lastInboundAt
	mm.mu.RUnlock()

	return SessionStats{
		InboundByKind:    inbound,
		Outbound:         atomic.LoadUint64(&mm.Outbound),
		MalformedDropped: atomic.LoadUint64(&mm.MalformedDropped),
		UnknownDropped:   atomic.LoadUint64(&mm.UnknownDropped),
		StaleMessages:    atomic.LoadUint64(&mm.StaleMessages),
		Reconnects:       atomic.LoadUint64(&mm.Reconnects),
		PersistFailures:  atomic.LoadUint64(&mm.PersistFailures),
		ObserverDropped:  atomic.LoadUint64(&mm.ObserverDropped),
		LastInboundAt:    last,
	}
}

// LogSummary writes the counters at Info level.
func (mm *MonitoringManager) LogSummary() {
	stats := mm.GetLatest()
	mm.log.Info("Session stats",
		"inbound", stats.InboundByKind,
		"outbound", stats.Outbound,
		"malformed_dropped", stats.MalformedDropped,
		"unknown_dropped", stats.UnknownDropped,
		"stale_messages", stats.StaleMessages,
		"reconnects", stats.Reconnects,
		"persist_failures", stats.PersistFailures,
	)
}
