package model

import (
	"time"
)

// TransferReason is the recorded cause of a channel switch.
type TransferReason string

const (
	ReasonManual         TransferReason = "manual"
	ReasonSendFailure    TransferReason = "send_failure"
	ReasonTimeout        TransferReason = "timeout"
	ReasonUserPreference TransferReason = "user_preference"
	ReasonStaffHandoff   TransferReason = "staff_handoff"
)

// TransferRecord is one recorded channel switch. Append-only; shared shape
// between a session's transfer history and the global telemetry ledger.
type TransferRecord struct {
	SessionID  string         `json:"session_id"`
	From       ChannelType    `json:"from"`
	To         ChannelType    `json:"to"`
	Timestamp  time.Time      `json:"timestamp"`
	Reason     TransferReason `json:"reason"`
	Success    bool           `json:"success"`
	DurationMs int64          `json:"duration_ms"`
}
