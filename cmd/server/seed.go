package main

import (
	"log"

	"rtls-go-server/internal/data"
	"rtls-go-server/internal/registry"
)

// seedDemoFleet loads the demonstration sensors and zones so a fresh
// install shows live data right away. Disabled with demo: false.
func seedDemoFleet(devices *registry.DeviceRegistry, fences *registry.GeofenceRegistry) {
	demoDevices := []data.Device{
		{
			Name:                 "Main Office Sensor",
			MACAddress:           "00:1B:44:11:3A:B7",
			Latitude:             52.5200,
			Longitude:            13.4050,
			Temperature:          22.5,
			TemperatureThreshold: 25.0,
			SignalStrength:       -45,
			Zone:                 "Zone A",
			Firmware:             "2.1.3",
		},
		{
			Name:                 "North Warehouse Sensor",
			MACAddress:           "00:1B:44:11:3A:B8",
			Latitude:             52.5300,
			Longitude:            13.3900,
			Temperature:          28.3,
			TemperatureThreshold: 25.0,
			SignalStrength:       -52,
			Zone:                 "Zone B",
			Firmware:             "2.1.3",
		},
		{
			Name:                 "West Parking Sensor",
			MACAddress:           "00:1B:44:11:3A:B9",
			Latitude:             52.5150,
			Longitude:            13.4100,
			Temperature:          19.8,
			TemperatureThreshold: 25.0,
			SignalStrength:       -38,
			Zone:                 "Zone A",
			Firmware:             "2.1.2",
		},
		{
			Name:                 "Server Room Sensor",
			MACAddress:           "00:1B:44:11:3A:C0",
			Latitude:             52.5250,
			Longitude:            13.4200,
			Temperature:          16.2,
			TemperatureThreshold: 20.0,
			SignalStrength:       0,
			Zone:                 "Zone C",
			Firmware:             "2.0.8",
		},
		{
			Name:                 "East Production Sensor",
			MACAddress:           "00:1B:44:11:3A:C1",
			Latitude:             52.5180,
			Longitude:            13.4250,
			Temperature:          24.1,
			TemperatureThreshold: 30.0,
			SignalStrength:       -41,
			Zone:                 "Zone B",
			Firmware:             "2.1.3",
		},
	}

	demoFences := []data.Geofence{
		{
			Name:         "Secure Zone A",
			Description:  "Main zone with controlled access",
			Center:       data.Coordinates{Latitude: 52.5200, Longitude: 13.4050},
			Radius:       500,
			AlertOnEntry: true,
			AlertOnExit:  true,
			IsActive:     true,
			Color:        "#0066CC",
		},
		{
			Name:        "Warehouse B Perimeter",
			Description: "Sensitive storage area",
			Center:      data.Coordinates{Latitude: 52.5300, Longitude: 13.3900},
			Radius:      300,
			AlertOnExit: true,
			IsActive:    true,
			Color:       "#FF6B35",
		},
		{
			Name:         "Critical Zone C",
			Description:  "Restricted access, server room",
			Center:       data.Coordinates{Latitude: 52.5250, Longitude: 13.4200},
			Radius:       200,
			AlertOnEntry: true,
			AlertOnExit:  true,
			IsActive:     false,
			Color:        "#E74C3C",
		},
	}

	for _, d := range demoDevices {
		if _, err := devices.Create(d); err != nil {
			log.Printf("Seed: device %q: %v", d.Name, err)
		}
	}
	for _, g := range demoFences {
		if _, err := fences.Create(g); err != nil {
			log.Printf("Seed: geofence %q: %v", g.Name, err)
		}
	}

	log.Printf("Seeded demo fleet: %d devices, %d geofences", len(demoDevices), len(demoFences))
}
