package model

import (
	"time"
)

// StaffStatus is a staff member's self-reported presence.
type StaffStatus string

const (
	StaffOnline  StaffStatus = "online"
	StaffBusy    StaffStatus = "busy"
	StaffAway    StaffStatus = "away"
	StaffOffline StaffStatus = "offline"
)

// Valid reports whether s is a known staff status.
func (s StaffStatus) Valid() bool {
	switch s {
	case StaffOnline, StaffBusy, StaffAway, StaffOffline:
		return true
	}
	return false
}

// StaffMember is one entry in the staff roster.
// IsAvailable is derived: status online and under session capacity.
type StaffMember struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Languages       []string    `json:"languages"`
	Expertise       []string    `json:"expertise"`
	CurrentSessions []string    `json:"current_sessions"`
	Status          StaffStatus `json:"status"`
	IsAvailable     bool        `json:"is_available"`
	LastActivity    time.Time   `json:"last_activity"`
}

// MatchPriority selects the sort order for staff matching.
type MatchPriority string

const (
	PrioritySpeed     MatchPriority = "speed"
	PriorityExpertise MatchPriority = "expertise"
	PriorityLanguage  MatchPriority = "language"
)

// MatchRequest asks the matcher for the best staff member for a handoff.
type MatchRequest struct {
	Language  string        `json:"language,omitempty"`
	Expertise string        `json:"expertise,omitempty"`
	Priority  MatchPriority `json:"priority,omitempty"`
}

// MatchResult is the matcher's answer. Match is nil when nobody qualifies;
// EstimatedNextAvailable and WaitTimeSeconds are then populated from the
// configured wait heuristic.
type MatchResult struct {
	Match                  *StaffMember  `json:"match"`
	Alternatives           []StaffMember `json:"alternatives,omitempty"`
	EstimatedNextAvailable *time.Time    `json:"estimated_next_available,omitempty"`
	WaitTimeSeconds        int           `json:"wait_time_seconds,omitempty"`
}

// StaffAvailability summarizes roster-wide availability counts.
type StaffAvailability struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Online    int `json:"online"`
	Busy      int `json:"busy"`
}
