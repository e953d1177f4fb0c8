// Package telemetry aggregates time-windowed usage and transfer statistics.
package telemetry

import (
	"sync"
	"time"

	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/pkg/metrics"
)

const (
	// DefaultBufferCap bounds the message ring buffer. When exceeded the
	// buffer is truncated to its most recent half.
	DefaultBufferCap = 10000

	realTimeWindow = 5 * time.Minute
)

// SatisfactionAdjustments are the per-channel tweaks applied to the
// derived satisfaction score. Business constants, not invariants.
type SatisfactionAdjustments struct {
	Human    int
	Realtime int
}

// DefaultAdjustments reflect that human resolution tends to satisfy and
// realtime voice hits more edge-case failures.
var DefaultAdjustments = SatisfactionAdjustments{Human: 10, Realtime: -5}

// Store is the in-memory usage and transfer aggregator. Appends are safe
// from any number of concurrent sessions.
type Store struct {
	mu          sync.Mutex
	messages    []model.UsageMetric
	transfers   []model.TransferRecord
	sessions    map[string]*model.SessionRecord
	bufferCap   int
	adjustments SatisfactionAdjustments
}

// NewStore creates a telemetry store.
func NewStore(bufferCap int, adjustments SatisfactionAdjustments) *Store {
	if bufferCap <= 0 {
		bufferCap = DefaultBufferCap
	}
	return &Store{
		sessions:    make(map[string]*model.SessionRecord),
		bufferCap:   bufferCap,
		adjustments: adjustments,
	}
}

// TrackMessage appends one message-level metric, truncating the buffer to
// its most recent half when the cap is exceeded.
func (s *Store) TrackMessage(entry model.UsageMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, entry)
	if len(s.messages) > s.bufferCap {
		keep := s.bufferCap / 2
		trimmed := make([]model.UsageMetric, keep)
		copy(trimmed, s.messages[len(s.messages)-keep:])
		s.messages = trimmed
	}
	metrics.SetTelemetryBufferSize(len(s.messages))
}

// TrackTransfer appends one transfer to the global ledger.
func (s *Store) TrackTransfer(entry model.TransferRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transfers = append(s.transfers, entry)
	metrics.TransfersTotal.WithLabelValues(string(entry.From), string(entry.To), string(entry.Reason)).Inc()
}

// TrackSession records a session start, or its end when EndedAt is set.
func (s *Store) TrackSession(entry model.SessionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[entry.SessionID]; ok {
		if entry.EndedAt != nil {
			existing.EndedAt = entry.EndedAt
		}
		if entry.Channel != "" {
			existing.Channel = entry.Channel
		}
		return
	}
	record := entry
	s.sessions[entry.SessionID] = &record
}

// Transfers returns a copy of the global transfer ledger.
func (s *Store) Transfers() []model.TransferRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.TransferRecord, len(s.transfers))
	copy(out, s.transfers)
	return out
}

// MessageCount returns the current ring buffer length.
func (s *Store) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Messages returns a copy of the ring buffer, oldest first.
func (s *Store) Messages() []model.UsageMetric {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.UsageMetric, len(s.messages))
	copy(out, s.messages)
	return out
}
