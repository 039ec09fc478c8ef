package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// HealthReport is the per-dependency status of the service.
type HealthReport struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
}

// HealthChecker probes the embedding provider and the vector index.
type HealthChecker struct {
	embedder domain.Embedder
	index    domain.VectorIndex
	timeout  time.Duration
}

// NewHealthChecker bounds each probe by timeout.
func NewHealthChecker(embedder domain.Embedder, index domain.VectorIndex, timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HealthChecker{embedder: embedder, index: index, timeout: timeout}
}

// Check runs a trial embedding and a trial search concurrently.
func (h *HealthChecker) Check(ctx context.Context) HealthReport {
	probes := map[string]func(context.Context) error{
		"embedding": func(ctx context.Context) error {
			_, err := h.embedder.Embed(ctx, "test")
			return err
		},
		"vector_store": func(ctx context.Context) error {
			_, err := h.index.Search(ctx, make([]float32, h.embedder.Dimension()), 1, domain.SearchFilters{})
			return err
		},
	}

	var mu sync.Mutex
	services := make(map[string]string, len(probes))
	var g errgroup.Group
	for name, probe := range probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()
			status := StatusHealthy
			if probe(pctx) != nil {
				status = StatusUnhealthy
			}
			mu.Lock()
			services[name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusHealthy
	for _, st := range services {
		if st != StatusHealthy {
			overall = StatusDegraded
		}
	}
	return HealthReport{Status: overall, Services: services, Timestamp: time.Now().UTC()}
}
