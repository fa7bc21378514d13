package server

import (
	"log/slog"
	"sync"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/ledger"
	"github.com/EternisAI/agent-registry/internal/ownership"
)

const (
	KindOwnership = "ownership"
	KindUsage     = "usage"
)

// ServiceName is the health service name of a registry instance.
func ServiceName(kind string, addr account.Address) string {
	return kind + "/" + addr.Hex()
}

// StatusTracker keeps health status in step with registry pause state.
type StatusTracker struct {
	health *health.Server

	mu       sync.Mutex
	services map[account.Address]string
}

func NewStatusTracker(h *health.Server) *StatusTracker {
	return &StatusTracker{
		health:   h,
		services: make(map[account.Address]string),
	}
}

// Track registers a registry instance and sets its initial status.
func (t *StatusTracker) Track(kind string, addr account.Address, serving bool) {
	name := ServiceName(kind, addr)

	t.mu.Lock()
	t.services[addr] = name
	t.mu.Unlock()

	t.set(name, serving)
}

// Attach follows Paused and Unpaused events committed on l.
func (t *StatusTracker) Attach(l *ledger.Ledger) {
	l.Subscribe(t.handle)
}

func (t *StatusTracker) handle(e ledger.Event) {
	if e.Name != ownership.EventPaused && e.Name != ownership.EventUnpaused {
		return
	}

	t.mu.Lock()
	name, ok := t.services[e.Contract]
	t.mu.Unlock()
	if !ok {
		return
	}

	t.set(name, e.Name == ownership.EventUnpaused)
}

func (t *StatusTracker) set(name string, serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	t.health.SetServingStatus(name, status)
	slog.Debug("Health status updated", "service", name, "status", status.String())
}
