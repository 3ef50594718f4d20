package registry

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"rtls-go-server/internal/data"
)

// GeofenceRegistry owns the safety zones.
type GeofenceRegistry struct {
	mu     sync.RWMutex
	fences map[string]*data.Geofence
}

func NewGeofenceRegistry() *GeofenceRegistry {
	return &GeofenceRegistry{fences: make(map[string]*data.Geofence)}
}

// GeofencePatch carries a partial geofence update.
type GeofencePatch struct {
	Name         *string           `json:"name"`
	Description  *string           `json:"description"`
	Center       *data.Coordinates `json:"center"`
	Radius       *float64          `json:"radius"`
	AlertOnEntry *bool             `json:"alertOnEntry"`
	AlertOnExit  *bool             `json:"alertOnExit"`
	IsActive     *bool             `json:"isActive"`
	Color        *string           `json:"color"`
}

func (r *GeofenceRegistry) Create(g data.Geofence) (*data.Geofence, error) {
	if err := validateGeofence(&g); err != nil {
		return nil, err
	}

	g.ID = uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.fences[g.ID] = &g
	return cloneGeofence(&g), nil
}

func (r *GeofenceRegistry) Get(id string) (*data.Geofence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.fences[id]
	if !ok {
		return nil, ErrGeofenceNotFound
	}
	return cloneGeofence(g), nil
}

func (r *GeofenceRegistry) List() []*data.Geofence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*data.Geofence, 0, len(r.fences))
	for _, g := range r.fences {
		out = append(out, cloneGeofence(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListActive returns only the fences that participate in containment
// evaluation.
func (r *GeofenceRegistry) ListActive() []*data.Geofence {
	all := r.List()
	active := all[:0]
	for _, g := range all {
		if g.IsActive {
			active = append(active, g)
		}
	}
	return active
}

func (r *GeofenceRegistry) Update(id string, p GeofencePatch) (*data.Geofence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.fences[id]
	if !ok {
		return nil, ErrGeofenceNotFound
	}

	if p.Name != nil {
		if *p.Name == "" {
			return nil, invalid("name", "must not be empty")
		}
		g.Name = *p.Name
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Center != nil {
		if err := validateLatitude(p.Center.Latitude); err != nil {
			return nil, err
		}
		if err := validateLongitude(p.Center.Longitude); err != nil {
			return nil, err
		}
		g.Center = *p.Center
	}
	if p.Radius != nil {
		if *p.Radius <= 0 {
			return nil, invalid("radius", "must be positive")
		}
		g.Radius = *p.Radius
	}
	if p.AlertOnEntry != nil {
		g.AlertOnEntry = *p.AlertOnEntry
	}
	if p.AlertOnExit != nil {
		g.AlertOnExit = *p.AlertOnExit
	}
	if p.IsActive != nil {
		g.IsActive = *p.IsActive
	}
	if p.Color != nil {
		g.Color = *p.Color
	}

	return cloneGeofence(g), nil
}

func (r *GeofenceRegistry) SetActive(id string, active bool) (*data.Geofence, error) {
	return r.Update(id, GeofencePatch{IsActive: &active})
}

func (r *GeofenceRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.fences[id]; !ok {
		return ErrGeofenceNotFound
	}
	delete(r.fences, id)
	return nil
}

// Restore replaces all fences, used by configuration import.
func (r *GeofenceRegistry) Restore(fences []*data.Geofence) error {
	for _, g := range fences {
		if g.ID == "" {
			return invalid("id", "must not be empty")
		}
		if err := validateGeofence(g); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.fences = make(map[string]*data.Geofence, len(fences))
	for _, g := range fences {
		r.fences[g.ID] = cloneGeofence(g)
	}
	return nil
}

func validateGeofence(g *data.Geofence) error {
	if g.Name == "" {
		return invalid("name", "must not be empty")
	}
	if err := validateLatitude(g.Center.Latitude); err != nil {
		return err
	}
	if err := validateLongitude(g.Center.Longitude); err != nil {
		return err
	}
	if g.Radius <= 0 {
		return invalid("radius", "must be positive")
	}
	return nil
}

func cloneGeofence(g *data.Geofence) *data.Geofence {
	copied := *g
	return &copied
}
