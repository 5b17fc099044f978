//go:build integration

//nolint:misspell // Mosquitto is the official Eclipse project name
package containers

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const anonymousMosquittoConf = `listener 1883
allow_anonymous true
`

// MosquittoContainer wraps an Eclipse Mosquitto broker that accepts anonymous clients.
type MosquittoContainer struct {
	container  testcontainers.Container
	brokerURL  string
	configFile string
}

// MosquittoConfig holds configuration for Mosquitto container creation.
type MosquittoConfig struct {
	// Image tag (default: "2.0")
	ImageTag string
}

// NewMosquittoContainer starts a broker and waits until a client can connect.
// If config is nil the 2.0 image is used.
func NewMosquittoContainer(ctx context.Context, config *MosquittoConfig) (*MosquittoContainer, error) {
	tag := "2.0"
	if config != nil && config.ImageTag != "" {
		tag = config.ImageTag
	}

	configFile, err := writeTempFile("mosquitto-*.conf", anonymousMosquittoConf)
	if err != nil {
		return nil, fmt.Errorf("failed to create mosquitto config: %w", err)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "eclipse-mosquitto:" + tag,
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-test.conf"},
			Files: []testcontainers.ContainerFile{{
				HostFilePath:      configFile,
				ContainerFilePath: "/mosquitto-test.conf",
				FileMode:          0o644,
			}},
			WaitingFor: wait.ForLog("mosquitto version").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		_ = os.Remove(configFile)
		return nil, fmt.Errorf("failed to start Mosquitto container: %w", err)
	}

	mc := &MosquittoContainer{container: container, configFile: configFile}
	mc.brokerURL, err = endpoint(ctx, container, "1883", "tcp")
	if err == nil {
		err = mc.HealthCheck()
	}
	if err != nil {
		_ = mc.Terminate(context.Background())
		return nil, err
	}
	return mc, nil
}

// GetBrokerURL returns the broker URL, e.g. "tcp://localhost:32771".
func (c *MosquittoContainer) GetBrokerURL(t *testing.T) string {
	t.Helper()
	if c.brokerURL == "" {
		t.Fatal("broker URL is empty")
	}
	return c.brokerURL
}

// HealthCheck connects and disconnects a throwaway client.
func (c *MosquittoContainer) HealthCheck() error {
	client, err := c.CreateClient("healthcheck", func(o *mqtt.ClientOptions) { o.SetAutoReconnect(false) })
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	client.Disconnect(250)
	return nil
}

// CreateClient connects a new client to this broker. The caller disconnects it.
func (c *MosquittoContainer) CreateClient(clientID string, opts ...func(*mqtt.ClientOptions)) (mqtt.Client, error) {
	mqttOpts := mqtt.NewClientOptions()
	mqttOpts.AddBroker(c.brokerURL)
	mqttOpts.SetClientID(clientID)
	mqttOpts.SetConnectTimeout(10 * time.Second)
	mqttOpts.SetAutoReconnect(true)
	for _, opt := range opts {
		opt(mqttOpts)
	}

	client := mqtt.NewClient(mqttOpts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect timeout for client %s", clientID)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect client: %w", token.Error())
	}
	return client, nil
}

// PublishReading sends one sensor payload to topic and waits for the broker to accept it.
func (c *MosquittoContainer) PublishReading(client mqtt.Client, topic, payload string) error {
	token := client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	return token.Error()
}

// Terminate stops the container and removes the generated config file.
func (c *MosquittoContainer) Terminate(ctx context.Context) error {
	var err error
	if c.container != nil {
		if termErr := c.container.Terminate(ctx); termErr != nil {
			err = fmt.Errorf("failed to terminate container: %w", termErr)
		}
	}
	if c.configFile != "" {
		_ = os.Remove(c.configFile)
	}
	return err
}

// endpoint builds scheme://host:port for an exposed container port.
func endpoint(ctx context.Context, container testcontainers.Container, port, scheme string) (string, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return "", fmt.Errorf("failed to get mapped port %s: %w", port, err)
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, strconv.Itoa(mapped.Int()))), nil
}

func writeTempFile(pattern, content string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
