package settings

import (
	"fmt"
	"sync"

	"rtls-go-server/internal/data"
)

// Patch carries only the settings fields a client wants to change.
type Patch struct {
	TemperatureUnit             *string  `json:"temperatureUnit"`
	DefaultTemperatureThreshold *float64 `json:"defaultTemperatureThreshold"`
	UpdateInterval              *int     `json:"updateInterval"`
	AlertRetention              *int     `json:"alertRetention"`
	EnableSoundAlerts           *bool    `json:"enableSoundAlerts"`
	EnableDesktopNotifications  *bool    `json:"enableDesktopNotifications"`
	MapProvider                 *string  `json:"mapProvider"`
	Language                    *string  `json:"language"`
}

// Store guards the mutable system settings. The simulator re-reads the
// update interval and retention each tick, so changes apply without restart.
type Store struct {
	mu      sync.RWMutex
	current data.SystemSettings
}

func NewStore(initial data.SystemSettings) *Store {
	return &Store{current: initial}
}

func (s *Store) Get() data.SystemSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Update(p Patch) (data.SystemSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	if p.TemperatureUnit != nil {
		if *p.TemperatureUnit != "celsius" && *p.TemperatureUnit != "fahrenheit" {
			return s.current, fmt.Errorf("invalid temperature unit %q", *p.TemperatureUnit)
		}
		next.TemperatureUnit = *p.TemperatureUnit
	}
	if p.DefaultTemperatureThreshold != nil {
		next.DefaultTemperatureThreshold = *p.DefaultTemperatureThreshold
	}
	if p.UpdateInterval != nil {
		if *p.UpdateInterval < 1 {
			return s.current, fmt.Errorf("update interval must be at least 1 second, got %d", *p.UpdateInterval)
		}
		next.UpdateInterval = *p.UpdateInterval
	}
	if p.AlertRetention != nil {
		if *p.AlertRetention < 1 {
			return s.current, fmt.Errorf("alert retention must be at least 1 day, got %d", *p.AlertRetention)
		}
		next.AlertRetention = *p.AlertRetention
	}
	if p.EnableSoundAlerts != nil {
		next.EnableSoundAlerts = *p.EnableSoundAlerts
	}
	if p.EnableDesktopNotifications != nil {
		next.EnableDesktopNotifications = *p.EnableDesktopNotifications
	}
	if p.MapProvider != nil {
		next.MapProvider = *p.MapProvider
	}
	if p.Language != nil {
		next.Language = *p.Language
	}

	s.current = next
	return next, nil
}

// Replace swaps the whole settings block, used by configuration import.
func (s *Store) Replace(next data.SystemSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
}
