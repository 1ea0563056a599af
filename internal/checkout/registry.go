package checkout

import "sync"

// Registry keeps one orchestrator per vehicle so the single-flight guard holds
// across every caller that can trigger a purchase of that vehicle.
type Registry struct {
	deps Dependencies

	mu        sync.Mutex
	byVehicle map[string]*Orchestrator
}

func NewRegistry(deps Dependencies) *Registry {
	return &Registry{
		deps:      deps,
		byVehicle: make(map[string]*Orchestrator),
	}
}

func (r *Registry) For(vehicleID string) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byVehicle[vehicleID]
	if !ok {
		o = NewOrchestrator(vehicleID, r.deps)
		r.byVehicle[vehicleID] = o
	}
	return o
}

func (r *Registry) Lookup(vehicleID string) (*Orchestrator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byVehicle[vehicleID]
	return o, ok
}

// Release closes the vehicle's orchestrator when its view goes away. The next
// For call starts from a fresh Idle orchestrator.
func (r *Registry) Release(vehicleID string) {
	r.mu.Lock()
	o, ok := r.byVehicle[vehicleID]
	delete(r.byVehicle, vehicleID)
	r.mu.Unlock()

	if ok {
		o.Close()
	}
}

// ReleaseAll is used at logout so no attempt outlives the session that started it.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	all := r.byVehicle
	r.byVehicle = make(map[string]*Orchestrator)
	r.mu.Unlock()

	for _, o := range all {
		o.Close()
	}
}
