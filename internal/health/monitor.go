// Package health probes channels and aggregates system-wide health.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/conversation-router/internal/channel"
	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
	"github.com/capitalize-ai/conversation-router/pkg/metrics"
)

// DefaultProbeTimeout bounds each individual channel probe.
const DefaultProbeTimeout = 5 * time.Second

// Monitor probes registered channels and keeps the latest snapshot.
type Monitor struct {
	channels     map[model.ChannelType]channel.Channel
	probeTimeout time.Duration
	startedAt    time.Time

	mu       sync.RWMutex
	snapshot map[model.ChannelType]model.ChannelHealthStatus

	logger *logger.Logger
}

// NewMonitor creates a monitor over the given channels.
func NewMonitor(channels []channel.Channel, probeTimeout time.Duration, log *logger.Logger) *Monitor {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	byType := make(map[model.ChannelType]channel.Channel, len(channels))
	for _, ch := range channels {
		byType[ch.Type()] = ch
	}
	return &Monitor{
		channels:     byType,
		probeTimeout: probeTimeout,
		startedAt:    time.Now(),
		snapshot:     make(map[model.ChannelType]model.ChannelHealthStatus),
		logger:       log,
	}
}

// CheckAll probes every channel concurrently. Each probe runs in its own
// goroutine with an independent timeout; a slow, failing, or panicking
// probe is converted to an offline status and never blocks or fails the
// siblings.
func (m *Monitor) CheckAll(ctx context.Context) model.SystemHealth {
	type result struct {
		channelType model.ChannelType
		status      model.ChannelHealthStatus
	}

	results := make(chan result, len(m.channels))
	var wg sync.WaitGroup

	for channelType, ch := range m.channels {
		wg.Add(1)
		go func(channelType model.ChannelType, ch channel.Channel) {
			defer wg.Done()
			results <- result{channelType, m.probe(ctx, ch)}
		}(channelType, ch)
	}

	wg.Wait()
	close(results)

	statuses := make(map[model.ChannelType]model.ChannelHealthStatus, len(m.channels))
	for r := range results {
		statuses[r.channelType] = r.status
	}

	m.mu.Lock()
	m.snapshot = statuses
	m.mu.Unlock()

	return m.aggregate(statuses)
}

// CheckChannel forces a re-check of one channel.
func (m *Monitor) CheckChannel(ctx context.Context, channelType model.ChannelType) (model.ChannelHealthStatus, error) {
	ch, ok := m.channels[channelType]
	if !ok {
		return model.ChannelHealthStatus{}, fmt.Errorf("unknown channel %q", channelType)
	}

	status := m.probe(ctx, ch)

	m.mu.Lock()
	m.snapshot[channelType] = status
	m.mu.Unlock()

	return status, nil
}

// LastStatus returns the most recent status for a channel, if any check
// has run.
func (m *Monitor) LastStatus(channelType model.ChannelType) (model.ChannelHealthStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.snapshot[channelType]
	return status, ok
}

// Snapshot returns the latest aggregate without probing.
func (m *Monitor) Snapshot() model.SystemHealth {
	m.mu.RLock()
	statuses := make(map[model.ChannelType]model.ChannelHealthStatus, len(m.snapshot))
	for k, v := range m.snapshot {
		statuses[k] = v
	}
	m.mu.RUnlock()

	return m.aggregate(statuses)
}

// probe runs one bounded health check, isolating panics and timeouts into
// an offline status.
func (m *Monitor) probe(ctx context.Context, ch channel.Channel) (status model.ChannelHealthStatus) {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	done := make(chan model.ChannelHealthStatus, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("health probe panicked",
					zap.String("channel", string(ch.Type())),
					zap.Any("panic", r),
				)
				done <- model.ChannelHealthStatus{
					Channel:     ch.Type(),
					Status:      model.HealthOffline,
					LastChecked: time.Now(),
					Errors:      []string{fmt.Sprintf("probe panic: %v", r)},
				}
			}
		}()
		done <- ch.CheckHealth(probeCtx)
	}()

	select {
	case status = <-done:
	case <-probeCtx.Done():
		status = model.ChannelHealthStatus{
			Channel:        ch.Type(),
			Status:         model.HealthOffline,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			LastChecked:    time.Now(),
			Errors:         []string{"health probe timed out"},
		}
	}

	metrics.ObserveProbe(string(ch.Type()), string(status.Status), time.Since(start).Seconds())
	return status
}

// aggregate folds per-channel statuses into the overall classification:
// healthy when all channels are healthy, critical when none are, degraded
// in between.
func (m *Monitor) aggregate(statuses map[model.ChannelType]model.ChannelHealthStatus) model.SystemHealth {
	channels := make([]model.ChannelHealthStatus, 0, len(statuses))
	healthy := 0
	for _, s := range statuses {
		channels = append(channels, s)
		if s.IsHealthy {
			healthy++
		}
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Channel < channels[j].Channel })

	overall := OverallOf(healthy, len(channels))

	return model.SystemHealth{
		Overall:       overall,
		Channels:      channels,
		Timestamp:     time.Now(),
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
	}
}

// OverallOf classifies healthy-out-of-total channel counts.
func OverallOf(healthy, total int) model.OverallHealth {
	switch {
	case total > 0 && healthy == total:
		return model.OverallHealthy
	case healthy > 0:
		return model.OverallDegraded
	default:
		return model.OverallCritical
	}
}
