//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// Redpanda wraps a disposable Kafka-compatible broker.
type Redpanda struct {
	Container testcontainers.Container
	Brokers   []string
}

// NewRedpanda starts a Redpanda container and returns its seed broker.
func NewRedpanda(t *testing.T) *Redpanda {
	t.Helper()
	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.1.2")
	if err != nil {
		t.Fatalf("start redpanda container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	seed, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		t.Fatalf("redpanda seed broker: %v", err)
	}

	return &Redpanda{Container: container, Brokers: []string{seed}}
}
