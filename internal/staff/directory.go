// Package staff tracks the human-staff roster and matches handoff requests
// to available staff members.
package staff

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/conversation-router/internal/model"
	"github.com/capitalize-ai/conversation-router/pkg/logger"
)

// DefaultCapacity is the maximum concurrent sessions per staff member.
const DefaultCapacity = 3

var (
	// ErrStaffNotFound indicates an unknown staff ID.
	ErrStaffNotFound = errors.New("staff member not found")
	// ErrCapacityExceeded indicates the staff member is at session capacity.
	ErrCapacityExceeded = errors.New("staff capacity exceeded")
	// ErrAlreadyAssigned indicates the session is already assigned to that staff member.
	ErrAlreadyAssigned = errors.New("session already assigned")
	// ErrSessionNotAssigned indicates the session is not assigned to that staff member.
	ErrSessionNotAssigned = errors.New("session not assigned")
)

// Directory is the shared staff roster. All mutations take the directory
// lock so concurrent assignments cannot lose updates.
type Directory struct {
	mu       sync.RWMutex
	roster   map[string]*model.StaffMember
	capacity int

	// estimatedWait is the heuristic used when nobody is available.
	estimatedWait time.Duration

	logger *logger.Logger
}

// NewDirectory creates an empty staff directory.
func NewDirectory(capacity int, estimatedWait time.Duration, log *logger.Logger) *Directory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if estimatedWait <= 0 {
		estimatedWait = 5 * time.Minute
	}
	return &Directory{
		roster:        make(map[string]*model.StaffMember),
		capacity:      capacity,
		estimatedWait: estimatedWait,
		logger:        log,
	}
}

// Capacity returns the per-staff session capacity.
func (d *Directory) Capacity() int {
	return d.capacity
}

// Upsert adds or replaces a roster entry.
func (d *Directory) Upsert(member model.StaffMember) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if member.CurrentSessions == nil {
		member.CurrentSessions = []string{}
	}
	if member.LastActivity.IsZero() {
		member.LastActivity = time.Now()
	}
	member.IsAvailable = d.available(&member)
	d.roster[member.ID] = &member
}

// Get returns a copy of one roster entry.
func (d *Directory) Get(staffID string) (model.StaffMember, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.roster[staffID]
	if !ok {
		return model.StaffMember{}, ErrStaffNotFound
	}
	return *m, nil
}

// List returns roster entries matching the optional language/expertise
// filters. Unavailable staff are excluded unless includeUnavailable is set.
func (d *Directory) List(language, expertise string, includeUnavailable bool) []model.StaffMember {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []model.StaffMember
	for _, m := range d.roster {
		if !includeUnavailable && !m.IsAvailable {
			continue
		}
		if language != "" && !hasString(m.Languages, language) {
			continue
		}
		if expertise != "" && !hasString(m.Expertise, expertise) {
			continue
		}
		out = append(out, *m)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Availability returns roster-wide availability counts.
func (d *Directory) Availability() model.StaffAvailability {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var a model.StaffAvailability
	for _, m := range d.roster {
		a.Total++
		if m.IsAvailable {
			a.Available++
		}
		switch m.Status {
		case model.StaffOnline:
			a.Online++
		case model.StaffBusy:
			a.Busy++
		}
	}
	return a
}

// AssignSession adds a session to a staff member's active set.
func (d *Directory) AssignSession(staffID, sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.roster[staffID]
	if !ok {
		return ErrStaffNotFound
	}
	if hasString(m.CurrentSessions, sessionID) {
		return ErrAlreadyAssigned
	}
	if len(m.CurrentSessions) >= d.capacity {
		return ErrCapacityExceeded
	}

	m.CurrentSessions = append(m.CurrentSessions, sessionID)
	m.LastActivity = time.Now()
	m.IsAvailable = d.available(m)

	d.logger.Info("session assigned",
		zap.String("staff_id", staffID),
		zap.String("session_id", sessionID),
		zap.Int("load", len(m.CurrentSessions)),
	)
	return nil
}

// RemoveSession removes a session from a staff member's active set.
func (d *Directory) RemoveSession(staffID, sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.roster[staffID]
	if !ok {
		return ErrStaffNotFound
	}

	idx := -1
	for i, s := range m.CurrentSessions {
		if s == sessionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrSessionNotAssigned
	}

	m.CurrentSessions = append(m.CurrentSessions[:idx], m.CurrentSessions[idx+1:]...)
	m.LastActivity = time.Now()
	m.IsAvailable = d.available(m)
	return nil
}

// UpdateStatus sets a staff member's presence and recomputes availability.
func (d *Directory) UpdateStatus(staffID string, status model.StaffStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.roster[staffID]
	if !ok {
		return ErrStaffNotFound
	}

	m.Status = status
	m.LastActivity = time.Now()
	m.IsAvailable = d.available(m)
	return nil
}

// available computes the derived availability flag. A staff member at
// capacity is unavailable even when marked online.
func (d *Directory) available(m *model.StaffMember) bool {
	return m.Status == model.StaffOnline && len(m.CurrentSessions) < d.capacity
}

func hasString(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
