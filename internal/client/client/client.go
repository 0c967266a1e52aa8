package client

import (
	"context"

	"github.com/papersson/code-bot/internal/api"
)

// Client is the sync engine's view of the server.
type Client interface {
	// Sync performs one POST /sync exchange.
	Sync(ctx context.Context, req *api.SyncRequest) (*api.SyncResponse, error)

	// Ping reports whether the server is reachable and serving.
	Ping(ctx context.Context) error

	Close() error
}

// Service pairs the HTTP sync transport with the gRPC health probe.
type Service struct {
	*HTTPClient
	health *HealthClient
}

// NewService dials the health endpoint lazily and prepares the HTTP client.
func NewService(syncURL, healthAddr string, opts ...HTTPOption) (*Service, error) {
	hc, err := NewHealthClient(healthAddr)
	if err != nil {
		return nil, err
	}
	return &Service{HTTPClient: NewHTTPClient(syncURL, opts...), health: hc}, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.health.Ping(ctx)
}

func (s *Service) Close() error {
	return s.health.Close()
}
