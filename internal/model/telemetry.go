package model

import (
	"time"
)

// UsageMetric is one message-level telemetry entry.
type UsageMetric struct {
	SessionID      string      `json:"session_id"`
	Channel        ChannelType `json:"channel"`
	Timestamp      time.Time   `json:"timestamp"`
	ResponseTimeMs int64       `json:"response_time_ms"`
	Success        bool        `json:"success"`
	Language       string      `json:"language,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// SessionRecord tracks one session's lifetime for usage reporting.
type SessionRecord struct {
	SessionID string      `json:"session_id"`
	Channel   ChannelType `json:"channel"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
	Language  string      `json:"language,omitempty"`
}

// ChannelUsage is the per-channel aggregate over a reporting window.
type ChannelUsage struct {
	Channel               ChannelType `json:"channel"`
	TotalMessages         int         `json:"total_messages"`
	SuccessfulMessages    int         `json:"successful_messages"`
	FailedMessages        int         `json:"failed_messages"`
	AverageResponseTimeMs int64       `json:"average_response_time_ms"`
	// PeakUsageHour is the hour bucket (0-23, UTC) with the most messages.
	PeakUsageHour int `json:"peak_usage_hour"`
	// UserSatisfactionScore is successRate*100 plus the per-channel
	// adjustment, clamped to [0,100].
	UserSatisfactionScore int `json:"user_satisfaction_score"`
}

// TransferRoute aggregates transfers for one (from,to) pair.
type TransferRoute struct {
	From              ChannelType    `json:"from"`
	To                ChannelType    `json:"to"`
	Count             int            `json:"count"`
	SuccessRate       float64        `json:"success_rate"`
	AverageDurationMs int64          `json:"average_duration_ms"`
	Reasons           map[string]int `json:"reasons"`
}

// UsageSummary is the top-line view of a reporting window.
type UsageSummary struct {
	TotalMessages  int     `json:"total_messages"`
	TotalTransfers int     `json:"total_transfers"`
	TotalSessions  int     `json:"total_sessions"`
	ActiveSessions int     `json:"active_sessions"`
	ErrorRate      float64 `json:"error_rate"`
}

// SystemMetrics is the full aggregate returned by the usage surface.
type SystemMetrics struct {
	Period       string          `json:"period"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	ChannelUsage []ChannelUsage  `json:"channel_usage"`
	Transfers    []TransferRoute `json:"transfers"`
	Sessions     []SessionRecord `json:"sessions"`
	Summary      UsageSummary    `json:"summary"`
}

// RealTimeStats is the rolling 5-minute operational snapshot.
type RealTimeStats struct {
	ActiveSessions      int                 `json:"active_sessions"`
	MessagesLast5Min    int                 `json:"messages_last_5min"`
	TransfersLast5Min   int                 `json:"transfers_last_5min"`
	ChannelDistribution map[ChannelType]int `json:"channel_distribution"`
	AverageResponseMs   int64               `json:"average_response_time_ms"`
	ErrorRate           float64             `json:"error_rate"`
	Timestamp           time.Time           `json:"timestamp"`
}
