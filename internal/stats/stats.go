package stats

import (
	"fmt"
	"math"
	"time"

	"rtls-go-server/internal/alerting"
	"rtls-go-server/internal/data"
	"rtls-go-server/internal/history"
	"rtls-go-server/internal/registry"
)

const recentAlertCap = 5

// Facade is the read-only aggregation layer the console dashboards poll.
type Facade struct {
	devices   *registry.DeviceRegistry
	engine    *alerting.Engine
	history   *history.Buffer
	startedAt time.Time
}

func NewFacade(devices *registry.DeviceRegistry, engine *alerting.Engine, hist *history.Buffer) *Facade {
	return &Facade{
		devices:   devices,
		engine:    engine,
		history:   hist,
		startedAt: time.Now(),
	}
}

func (f *Facade) GetStats() data.SystemStats {
	devices := f.devices.List()
	byStatus := countByStatus(devices)
	total, active, resolved := f.engine.Counts()

	return data.SystemStats{
		TotalDevices:       len(devices),
		OnlineDevices:      byStatus[data.StatusOnline],
		WarningDevices:     byStatus[data.StatusWarning],
		CriticalDevices:    byStatus[data.StatusCritical],
		OfflineDevices:     byStatus[data.StatusOffline],
		TotalAlerts:        total,
		ActiveAlerts:       active,
		ResolvedAlerts:     resolved,
		AverageTemperature: averageTemperature(devices),
		SystemUptime:       formatUptime(time.Since(f.startedAt)),
		RecentAlerts:       f.engine.Recent(recentAlertCap),
	}
}

func (f *Facade) GetAnalytics(historyLimit int) data.AnalyticsData {
	devices := f.devices.List()
	byStatus := countByStatus(devices)

	criticalAlerts := len(f.engine.List(alerting.Filter{Severity: data.SeverityCritical, State: "active"}))

	return data.AnalyticsData{
		TotalDevices:       len(devices),
		ActiveDevices:      byStatus[data.StatusOnline],
		OfflineDevices:     byStatus[data.StatusOffline],
		CriticalAlerts:     criticalAlerts,
		AverageTemperature: averageTemperature(devices),
		DevicesByStatus:    byStatus,
		TemperatureHistory: f.history.Recent(historyLimit),
	}
}

func countByStatus(devices []*data.Device) map[data.DeviceStatus]int {
	byStatus := map[data.DeviceStatus]int{
		data.StatusOnline:   0,
		data.StatusWarning:  0,
		data.StatusCritical: 0,
		data.StatusOffline:  0,
	}
	for _, d := range devices {
		byStatus[d.Status]++
	}
	return byStatus
}

// averageTemperature returns 0 for an empty fleet, never NaN.
func averageTemperature(devices []*data.Device) float64 {
	if len(devices) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range devices {
		sum += d.Temperature
	}
	return math.Round(sum/float64(len(devices))*10) / 10
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
