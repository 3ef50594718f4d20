package alerting

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"rtls-go-server/internal/data"
	"rtls-go-server/internal/evaluator"
)

var ErrAlertNotFound = errors.New("alert not found")

// Notifier receives every newly raised alert. The websocket hub implements
// it; a nil notifier is allowed in tests.
type Notifier interface {
	NotifyAlert(a *data.Alert)
}

// Filter narrows List results. Zero values match everything. State "active"
// matches both unread and read alerts that are not resolved.
type Filter struct {
	Severity data.AlertSeverity
	State    string
}

type activeKey struct {
	deviceID string
	kind     data.AlertType
}

// Engine owns all alert records. It deduplicates raising: while an alert of
// a given (device, type) pair is active, further raises of that pair are
// suppressed until the alert is resolved or deleted.
type Engine struct {
	mu       sync.RWMutex
	alerts   []*data.Alert // newest first
	active   map[activeKey]string
	notifier Notifier
}

func NewEngine(notifier Notifier) *Engine {
	return &Engine{
		active:   make(map[activeKey]string),
		notifier: notifier,
	}
}

// Raise appends a new alert unless an active one of the same (device, type)
// pair exists. It returns the alert and whether it was actually raised.
func (e *Engine) Raise(d *data.Device, kind data.AlertType, severity data.AlertSeverity, message string) (*data.Alert, bool) {
	e.mu.Lock()
	key := activeKey{deviceID: d.ID, kind: kind}
	if id, ok := e.active[key]; ok {
		existing := e.findLocked(id)
		e.mu.Unlock()
		return existing, false
	}

	alert := &data.Alert{
		ID:         uuid.NewString(),
		DeviceID:   d.ID,
		DeviceName: d.Name,
		Type:       kind,
		Severity:   severity,
		Message:    message,
		Zone:       d.Zone,
		Timestamp:  time.Now(),
		State:      data.AlertUnread,
	}
	e.alerts = append([]*data.Alert{alert}, e.alerts...)
	e.active[key] = alert.ID
	e.mu.Unlock()

	log.Printf("ALERT [%s/%s] %s: %s", kind, severity, d.Name, message)
	if e.notifier != nil {
		e.notifier.NotifyAlert(cloneAlert(alert))
	}
	return cloneAlert(alert), true
}

// List returns matching alerts sorted by timestamp descending.
func (e *Engine) List(f Filter) []*data.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*data.Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if !matchState(f.State, a.State) {
			continue
		}
		out = append(out, cloneAlert(a))
	}
	return out
}

func matchState(filter string, state data.AlertState) bool {
	switch filter {
	case "":
		return true
	case "active":
		return state.Active()
	default:
		return filter == string(state)
	}
}

// MarkRead moves an unread alert to read_active. Reading a resolved or
// already-read alert is a no-op.
func (e *Engine) MarkRead(id string) (*data.Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.findLocked(id)
	if a == nil {
		return nil, ErrAlertNotFound
	}
	if a.State == data.AlertUnread {
		a.State = data.AlertRead
	}
	return cloneAlert(a), nil
}

// Resolve closes an alert. Resolving an already-resolved alert is a no-op,
// not an error.
func (e *Engine) Resolve(id string) (*data.Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.findLocked(id)
	if a == nil {
		return nil, ErrAlertNotFound
	}
	if a.State != data.AlertResolved {
		a.State = data.AlertResolved
		e.releaseLocked(a)
	}
	return cloneAlert(a), nil
}

func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, a := range e.alerts {
		if a.ID == id {
			e.releaseLocked(a)
			e.alerts = append(e.alerts[:i], e.alerts[i+1:]...)
			return nil
		}
	}
	return ErrAlertNotFound
}

// PurgeResolvedOlderThan drops resolved alerts older than the retention
// window and returns how many were removed.
func (e *Engine) PurgeResolvedOlderThan(days int, now time.Time) int {
	if days <= 0 {
		return 0
	}
	cutoff := now.AddDate(0, 0, -days)

	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.alerts[:0]
	purged := 0
	for _, a := range e.alerts {
		if a.State == data.AlertResolved && a.Timestamp.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, a)
	}
	e.alerts = kept
	return purged
}

// Counts returns total, active and resolved alert counts.
func (e *Engine) Counts() (total, active, resolved int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, a := range e.alerts {
		if a.State.Active() {
			active++
		} else {
			resolved++
		}
	}
	return len(e.alerts), active, resolved
}

// Recent returns up to n active alerts, newest first.
func (e *Engine) Recent(n int) []*data.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*data.Alert, 0, n)
	for _, a := range e.alerts {
		if !a.State.Active() {
			continue
		}
		out = append(out, cloneAlert(a))
		if len(out) == n {
			break
		}
	}
	return out
}

// ProcessTransition applies the status-entry raising policy.
func (e *Engine) ProcessTransition(d *data.Device, tr evaluator.Transition) {
	if tr.Entered(data.StatusCritical) {
		e.Raise(d, data.AlertTemperature, data.SeverityCritical,
			fmt.Sprintf("Critical temperature detected (%.1f°C, threshold %.1f°C)", d.Temperature, d.TemperatureThreshold))
	}
	if tr.Entered(data.StatusOffline) {
		e.Raise(d, data.AlertOffline, data.SeverityHigh, "Device offline, no telemetry received")
	}
}

// ProcessBattery raises a low-battery alert when the level crosses below the
// threshold. Staying below does not re-raise.
func (e *Engine) ProcessBattery(d *data.Device, prevLevel, threshold int) {
	if prevLevel >= threshold && d.BatteryLevel < threshold {
		e.Raise(d, data.AlertBattery, data.SeverityMedium,
			fmt.Sprintf("Low battery level (%d%%)", d.BatteryLevel))
	}
}

// ProcessGeofence raises alerts for containment transitions, honoring each
// fence's alertOnExit/alertOnEntry flags. With overlapping fences, a raise
// is attempted per affected fence; the (device, type) dedup keeps at most
// one geofence alert active per device.
func (e *Engine) ProcessGeofence(d *data.Device, exited, entered []*data.Geofence) {
	for _, g := range exited {
		if g.AlertOnExit {
			e.Raise(d, data.AlertGeofence, data.SeverityHigh,
				fmt.Sprintf("Device left safety zone %q", g.Name))
		}
	}
	for _, g := range entered {
		if g.AlertOnEntry {
			e.Raise(d, data.AlertGeofence, data.SeverityHigh,
				fmt.Sprintf("Device entered safety zone %q", g.Name))
		}
	}
}

// Restore replaces all alert records, used by configuration import.
func (e *Engine) Restore(alerts []*data.Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.alerts = make([]*data.Alert, 0, len(alerts))
	e.active = make(map[activeKey]string)
	for _, a := range alerts {
		copied := cloneAlert(a)
		e.alerts = append(e.alerts, copied)
		if copied.State.Active() {
			key := activeKey{deviceID: copied.DeviceID, kind: copied.Type}
			if _, ok := e.active[key]; !ok {
				e.active[key] = copied.ID
			}
		}
	}
}

func (e *Engine) findLocked(id string) *data.Alert {
	for _, a := range e.alerts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// releaseLocked frees the dedup slot if this alert holds it.
func (e *Engine) releaseLocked(a *data.Alert) {
	key := activeKey{deviceID: a.DeviceID, kind: a.Type}
	if e.active[key] == a.ID {
		delete(e.active, key)
	}
}

func cloneAlert(a *data.Alert) *data.Alert {
	copied := *a
	return &copied
}
