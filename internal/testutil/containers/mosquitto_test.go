//go:build integration

//nolint:misspell // Mosquitto is the official Eclipse project name
package containers

import (
	"context"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMosquittoContainer_PublishReading(t *testing.T) {
	ctx := context.Background()

	container, err := NewMosquittoContainer(ctx, nil)
	require.NoError(t, err, "failed to create Mosquitto container")
	defer func() {
		assert.NoError(t, container.Terminate(ctx), "failed to terminate container")
	}()

	subscriber, err := container.CreateClient("subscriber")
	require.NoError(t, err)
	defer subscriber.Disconnect(250)

	received := make(chan string, 1)
	token := subscriber.Subscribe("gearguard/telemetry/+/+", 1, func(_ mqtt.Client, msg mqtt.Message) {
		received <- msg.Topic() + "=" + string(msg.Payload())
	})
	require.True(t, token.WaitTimeout(5*time.Second), "subscribe timeout")
	require.NoError(t, token.Error())

	publisher, err := container.CreateClient("publisher")
	require.NoError(t, err)
	defer publisher.Disconnect(250)

	require.NoError(t, container.PublishReading(publisher, "gearguard/telemetry/eq1/temperature", "85.2"))

	select {
	case got := <-received:
		assert.Equal(t, "gearguard/telemetry/eq1/temperature=85.2", got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for published reading")
	}
}

func TestMosquittoContainer_TerminateTwice(t *testing.T) {
	ctx := context.Background()

	container, err := NewMosquittoContainer(ctx, &MosquittoConfig{ImageTag: "2.0"})
	require.NoError(t, err)
	require.NoError(t, container.HealthCheck())

	require.NoError(t, container.Terminate(ctx))
	assert.Error(t, container.HealthCheck(), "broker is gone after terminate")
}
