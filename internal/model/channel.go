package model

import (
	"time"
)

// ChannelType identifies one transport for delivering assistant responses.
type ChannelType string

const (
	// ChannelRealtime is the persistent low-latency duplex session.
	ChannelRealtime ChannelType = "realtime"
	// ChannelNormal is the stateless request/response text backend.
	ChannelNormal ChannelType = "normal"
	// ChannelHuman hands the conversation to a staff member.
	ChannelHuman ChannelType = "human"
)

// Valid reports whether t is a known channel type.
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelRealtime, ChannelNormal, ChannelHuman:
		return true
	}
	return false
}

// HealthState classifies a channel's probe outcome.
type HealthState string

const (
	HealthActive   HealthState = "active"
	HealthDegraded HealthState = "degraded"
	HealthOffline  HealthState = "offline"
)

// OverallHealth classifies the whole channel registry.
type OverallHealth string

const (
	OverallHealthy  OverallHealth = "healthy"
	OverallDegraded OverallHealth = "degraded"
	OverallCritical OverallHealth = "critical"
)

// ChannelConfig is the static per-channel configuration.
type ChannelConfig struct {
	Type         ChannelType `json:"type"`
	IsActive     bool        `json:"is_active"`
	Capabilities []string    `json:"capabilities"`
	// FallbackChannel is the single next hop tried when this channel fails.
	// Empty for the terminal channel of the chain.
	FallbackChannel ChannelType `json:"fallback_channel,omitempty"`
	// Priority orders channels along the fallback chain; a declared
	// fallback may never have a lower priority than its channel.
	Priority int           `json:"priority"`
	Timeout  time.Duration `json:"timeout"`
}

// ChannelHealthStatus is a point-in-time probe result. Each check supersedes
// the previous status; results are never merged.
type ChannelHealthStatus struct {
	Channel        ChannelType `json:"channel"`
	IsHealthy      bool        `json:"is_healthy"`
	Status         HealthState `json:"status"`
	ResponseTimeMs int64       `json:"response_time_ms"`
	LastChecked    time.Time   `json:"last_checked"`
	Errors         []string    `json:"errors,omitempty"`
	Capabilities   []string    `json:"capabilities,omitempty"`
}

// SystemHealth is the aggregate returned by the health surface.
type SystemHealth struct {
	Overall       OverallHealth         `json:"overall"`
	Channels      []ChannelHealthStatus `json:"channels"`
	Timestamp     time.Time             `json:"timestamp"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
}
