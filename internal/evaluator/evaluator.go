package evaluator

import (
	"math"
	"time"

	"rtls-go-server/internal/data"
)

// Config holds the evaluation thresholds. A zero WarningMargin disables the
// warning band, which reproduces the plain online/critical behaviour.
type Config struct {
	WarningMargin       float64       // °C below the critical threshold
	LowBatteryThreshold int           // percent
	OfflineAfter        time.Duration // staleness window
}

// Transition is the prior -> new status pair of one evaluation.
type Transition struct {
	From data.DeviceStatus
	To   data.DeviceStatus
}

func (t Transition) Changed() bool {
	return t.From != t.To
}

// Entered reports whether this transition moved the device into s.
func (t Transition) Entered(s data.DeviceStatus) bool {
	return t.To == s && t.From != s
}

// Evaluation is the derived view of one device.
type Evaluation struct {
	Status     data.DeviceStatus
	InGeofence bool
	Containing []*data.Geofence
	Transition Transition
}

// Evaluate derives status and geofence containment for a device. It is a
// pure function: the caller persists the result and decides about alerts.
//
// Order: offline (explicit flag or stale telemetry) wins and freezes the
// containment flag; otherwise containment is tested against active fences
// and thermal status against the per-device threshold (strict > for
// critical, a margin band below it for warning).
func (c Config) Evaluate(d *data.Device, fences []*data.Geofence, now time.Time) Evaluation {
	ev := Evaluation{Transition: Transition{From: d.Status}}

	if d.Status == data.StatusOffline || (c.OfflineAfter > 0 && now.Sub(d.LastUpdate) > c.OfflineAfter) {
		ev.Status = data.StatusOffline
		ev.InGeofence = d.InGeofence // retain last computed value
		ev.Transition.To = ev.Status
		return ev
	}

	ev.Containing = ContainingFences(d.Latitude, d.Longitude, fences)
	ev.InGeofence = len(ev.Containing) > 0

	switch {
	case d.Temperature > d.TemperatureThreshold:
		ev.Status = data.StatusCritical
	case c.WarningMargin > 0 && d.Temperature > d.TemperatureThreshold-c.WarningMargin:
		ev.Status = data.StatusWarning
	default:
		ev.Status = data.StatusOnline
	}
	ev.Transition.To = ev.Status
	return ev
}

// ContainingFences returns the active fences whose circle contains the
// position. The boundary is inclusive: a device at exactly radius meters
// counts as inside.
func ContainingFences(lat, lng float64, fences []*data.Geofence) []*data.Geofence {
	var containing []*data.Geofence
	for _, g := range fences {
		if !g.IsActive {
			continue
		}
		if Distance(lat, lng, g.Center.Latitude, g.Center.Longitude) <= g.Radius {
			containing = append(containing, g)
		}
	}
	return containing
}

const earthRadiusMeters = 6371000.0

// Distance is the great-circle (haversine) distance in meters.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	const deg = math.Pi / 180

	dLat := (lat2 - lat1) * deg
	dLng := (lng2 - lng1) * deg

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*deg)*math.Cos(lat2*deg)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
