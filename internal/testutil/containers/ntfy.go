//go:build integration

package containers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NtfyContainer wraps an ntfy server without authentication.
type NtfyContainer struct {
	container testcontainers.Container
	baseURL   string
}

// NtfyMessage is one message from the ntfy JSON stream.
type NtfyMessage struct {
	ID       string `json:"id"`
	Event    string `json:"event"`
	Topic    string `json:"topic"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// NewNtfyContainer starts binwiederhier/ntfy with an in-memory cache so that
// published messages can be polled back.
func NewNtfyContainer(ctx context.Context) (*NtfyContainer, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "binwiederhier/ntfy:latest",
			ExposedPorts: []string{"80/tcp"},
			Cmd:          []string{"serve", "--cache-file=/tmp/ntfy/cache.db"},
			Tmpfs:        map[string]string{"/tmp/ntfy": "rw"},
			WaitingFor:   wait.ForHTTP("/v1/health").WithPort("80/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start ntfy container: %w", err)
	}

	nc := &NtfyContainer{container: container}
	nc.baseURL, err = endpoint(ctx, container, "80", "http")
	if err != nil {
		_ = nc.Terminate(context.Background())
		return nil, err
	}
	return nc, nil
}

// Host returns host:port, the form shoutrrr ntfy URLs expect.
func (c *NtfyContainer) Host() string {
	return strings.TrimPrefix(c.baseURL, "http://")
}

// ShoutrrrURL returns a plain-HTTP shoutrrr URL for topic.
func (c *NtfyContainer) ShoutrrrURL(topic string) string {
	return fmt.Sprintf("ntfy://%s/%s?scheme=http", c.Host(), topic)
}

// PollMessages returns every cached message on topic.
func (c *NtfyContainer) PollMessages(ctx context.Context, topic string) ([]NtfyMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json?poll=1", c.baseURL, topic), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll messages: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll request failed with status %d", resp.StatusCode)
	}

	var messages []NtfyMessage
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg NtfyMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, fmt.Errorf("failed to parse message JSON: %w", err)
		}
		if msg.Event != "" && msg.Event != "message" {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, scanner.Err()
}

// Terminate stops the container.
func (c *NtfyContainer) Terminate(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}
