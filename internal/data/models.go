package data

import "time"

// DeviceStatus is the derived state of a tracked sensor.
type DeviceStatus string

const (
	StatusOnline   DeviceStatus = "online"
	StatusWarning  DeviceStatus = "warning"
	StatusCritical DeviceStatus = "critical"
	StatusOffline  DeviceStatus = "offline"
)

func (s DeviceStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusWarning, StatusCritical, StatusOffline:
		return true
	}
	return false
}

// Device is a tracked GPS/temperature sensor and its last known telemetry.
// Status and InGeofence are derived by the evaluator, never set by clients
// directly (except toggling offline/online).
type Device struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	MACAddress           string       `json:"macAddress"`
	Latitude             float64      `json:"latitude"`
	Longitude            float64      `json:"longitude"`
	Temperature          float64      `json:"temperature"`
	TemperatureThreshold float64      `json:"temperatureThreshold"`
	BatteryLevel         int          `json:"batteryLevel"`
	SignalStrength       int          `json:"signalStrength"`
	Zone                 string       `json:"zone,omitempty"`
	Firmware             string       `json:"firmware,omitempty"`
	Status               DeviceStatus `json:"status"`
	InGeofence           bool         `json:"isInGeofence"`
	LastUpdate           time.Time    `json:"lastUpdate"`
}

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geofence is a named circular safety zone. Inactive fences are excluded
// from containment evaluation.
type Geofence struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Center       Coordinates `json:"center"`
	Radius       float64     `json:"radius"` // meters
	AlertOnEntry bool        `json:"alertOnEntry"`
	AlertOnExit  bool        `json:"alertOnExit"`
	IsActive     bool        `json:"isActive"`
	Color        string      `json:"color,omitempty"`
}

type AlertType string

const (
	AlertTemperature AlertType = "temperature"
	AlertGeofence    AlertType = "geofence"
	AlertBattery     AlertType = "battery"
	AlertOffline     AlertType = "offline"
)

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertState is the alert lifecycle: unread_active -> read_active -> resolved.
type AlertState string

const (
	AlertUnread   AlertState = "unread_active"
	AlertRead     AlertState = "read_active"
	AlertResolved AlertState = "resolved"
)

// Active reports whether the alert has not been resolved yet.
func (s AlertState) Active() bool {
	return s == AlertUnread || s == AlertRead
}

// Alert records a detected anomaly. The record itself is immutable once
// raised; only State changes over its lifecycle.
type Alert struct {
	ID         string        `json:"id"`
	DeviceID   string        `json:"deviceId"`
	DeviceName string        `json:"deviceName"`
	Type       AlertType     `json:"type"`
	Severity   AlertSeverity `json:"severity"`
	Message    string        `json:"message"`
	Zone       string        `json:"zone,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	State      AlertState    `json:"state"`
}

// TelemetryReading is a single ingested measurement. Optional fields are
// pointers so a partial reading only touches what it carries.
type TelemetryReading struct {
	Timestamp      time.Time
	Temperature    *float64
	Latitude       *float64
	Longitude      *float64
	BatteryLevel   *int
	SignalStrength *int
}

// TemperatureSample is one point of the analytics temperature history.
type TemperatureSample struct {
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"deviceId"`
	Value     float64   `json:"value"`
}

// SystemSettings holds the runtime-tunable console options.
type SystemSettings struct {
	TemperatureUnit             string  `json:"temperatureUnit" mapstructure:"temperature_unit"`
	DefaultTemperatureThreshold float64 `json:"defaultTemperatureThreshold" mapstructure:"default_temperature_threshold"`
	UpdateInterval              int     `json:"updateInterval" mapstructure:"update_interval"` // seconds
	AlertRetention              int     `json:"alertRetention" mapstructure:"alert_retention"` // days
	EnableSoundAlerts           bool    `json:"enableSoundAlerts" mapstructure:"enable_sound_alerts"`
	EnableDesktopNotifications  bool    `json:"enableDesktopNotifications" mapstructure:"enable_desktop_notifications"`
	MapProvider                 string  `json:"mapProvider" mapstructure:"map_provider"`
	Language                    string  `json:"language" mapstructure:"language"`
}

// SystemStats is the read-only dashboard aggregation.
type SystemStats struct {
	TotalDevices       int      `json:"totalDevices"`
	OnlineDevices      int      `json:"onlineDevices"`
	WarningDevices     int      `json:"warningDevices"`
	CriticalDevices    int      `json:"criticalDevices"`
	OfflineDevices     int      `json:"offlineDevices"`
	TotalAlerts        int      `json:"totalAlerts"`
	ActiveAlerts       int      `json:"activeAlerts"`
	ResolvedAlerts     int      `json:"resolvedAlerts"`
	AverageTemperature float64  `json:"averageTemperature"`
	SystemUptime       string   `json:"systemUptime"`
	RecentAlerts       []*Alert `json:"recentAlerts"`
}

// AnalyticsData backs the analytics screen of the mobile console.
type AnalyticsData struct {
	TotalDevices       int                  `json:"totalDevices"`
	ActiveDevices      int                  `json:"activeDevices"`
	OfflineDevices     int                  `json:"offlineDevices"`
	CriticalAlerts     int                  `json:"criticalAlerts"`
	AverageTemperature float64              `json:"averageTemperature"`
	DevicesByStatus    map[DeviceStatus]int `json:"devicesByStatus"`
	TemperatureHistory []TemperatureSample  `json:"temperatureHistory"`
}
