//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NATSContainer wraps a single-node NATS server.
type NATSContainer struct {
	container testcontainers.Container
	url       string
}

// NewNATSContainer starts nats-server and waits for the client port.
func NewNATSContainer(ctx context.Context) (*NATSContainer, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start NATS container: %w", err)
	}

	url, err := endpoint(ctx, container, "4222", "nats")
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, err
	}
	return &NATSContainer{container: container, url: url}, nil
}

// GetURL returns the client URL, e.g. "nats://localhost:32772".
func (c *NATSContainer) GetURL(t *testing.T) string {
	t.Helper()
	if c.url == "" {
		t.Fatal("nats URL is empty")
	}
	return c.url
}

// Terminate stops and removes the container.
func (c *NATSContainer) Terminate(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}
