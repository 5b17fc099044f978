// Package mqtt bridges sensor telemetry published over MQTT into the trigger engine.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	defaultTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds
	ingestTimeout     = 5 * time.Second
)

// Ingester is the engine surface the bridge drives.
type Ingester interface {
	Ingest(ctx context.Context, reading cbm.Reading) (*cbm.IngestResult, error)
}

// ConnectionObserver is told about connection state changes.
type ConnectionObserver interface {
	SetMQTTConnected(connected bool)
}

// Bridge subscribes to <prefix>/<equipment>/<parameter> and ingests every message.
type Bridge struct {
	settings conf.MQTTSettings
	ingester Ingester
	observer ConnectionObserver
	log      logger.Logger

	mu     sync.Mutex
	client paho.Client
	ctx    context.Context
	cancel context.CancelFunc

	// newClient is replaced in tests.
	newClient func(*paho.ClientOptions) paho.Client
}

// NewBridge creates a disconnected bridge. observer may be nil.
func NewBridge(settings *conf.MQTTSettings, ingester Ingester, observer ConnectionObserver, log logger.Logger) *Bridge {
	if log == nil {
		log = logger.Global()
	}
	return &Bridge{
		settings:  *settings,
		ingester:  ingester,
		observer:  observer,
		log:       log.Module("mqtt"),
		newClient: paho.NewClient,
	}
}

// SubscriptionTopic is the wildcard filter the bridge subscribes to.
func (b *Bridge) SubscriptionTopic() string {
	return strings.TrimSuffix(b.settings.TopicPrefix, "/") + "/+/+"
}

// Start connects to the broker. Subscriptions are (re)established on every connect,
// so auto-reconnects resume delivery without intervention.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return errors.NewStd("mqtt bridge already started")
	}

	timeout := b.settings.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	clientID := b.settings.ClientID
	if clientID == "" {
		clientID = "gearguard-" + uuid.NewString()[:8]
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(b.settings.Broker)
	opts.SetClientID(clientID)
	opts.SetUsername(b.settings.Username)
	opts.SetPassword(b.settings.Password)
	opts.SetConnectTimeout(timeout)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(b.onConnectionLost)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	client := b.newClient(opts)
	token := client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		cancel()
		return errors.New(fmt.Errorf("mqtt connect cancelled: %w", ctx.Err())).
			Component("mqtt").Category(errors.CategoryMQTT).Build()
	case <-time.After(timeout):
		cancel()
		return errors.Newf("mqtt connect to %s timed out after %s", b.settings.Broker, timeout).
			Component("mqtt").Category(errors.CategoryMQTT).Build()
	}
	if err := token.Error(); err != nil {
		cancel()
		return errors.New(fmt.Errorf("mqtt connect to %s failed: %w", b.settings.Broker, err)).
			Component("mqtt").Category(errors.CategoryMQTT).Context("broker", b.settings.Broker).Build()
	}

	b.client = client
	b.ctx, b.cancel = runCtx, cancel
	return nil
}

func (b *Bridge) onConnect(client paho.Client) {
	topic := b.SubscriptionTopic()
	token := client.Subscribe(topic, b.settings.QoS, b.handleMessage)
	if !token.WaitTimeout(defaultTimeout) || token.Error() != nil {
		b.log.Error("failed to subscribe to telemetry topic",
			logger.String("topic", topic),
			logger.Error(token.Error()))
		return
	}
	if b.observer != nil {
		b.observer.SetMQTTConnected(true)
	}
	b.log.Info("mqtt bridge connected",
		logger.String("broker", b.settings.Broker),
		logger.String("topic", topic))
}

func (b *Bridge) onConnectionLost(_ paho.Client, err error) {
	if b.observer != nil {
		b.observer.SetMQTTConnected(false)
	}
	b.log.Warn("mqtt connection lost", logger.Error(err))
}

// Stop disconnects from the broker. Safe to call when not started.
func (b *Bridge) Stop() {
	b.mu.Lock()
	client, cancel := b.client, b.cancel
	b.client, b.cancel = nil, nil
	b.mu.Unlock()
	if client == nil {
		return
	}
	client.Unsubscribe(b.SubscriptionTopic()).WaitTimeout(time.Second)
	client.Disconnect(disconnectQuiesce)
	cancel()
	if b.observer != nil {
		b.observer.SetMQTTConnected(false)
	}
	b.log.Info("mqtt bridge stopped")
}

// IsConnected reports whether the underlying client is connected.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client != nil && b.client.IsConnected()
}

func (b *Bridge) baseContext() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

// handleMessage ingests one sensor message. Malformed messages are logged and dropped.
func (b *Bridge) handleMessage(_ paho.Client, msg paho.Message) {
	reading, err := ParseMessage(b.settings.TopicPrefix, msg.Topic(), msg.Payload())
	if err != nil {
		b.log.Warn("dropping malformed telemetry message",
			logger.String("topic", msg.Topic()),
			logger.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(b.baseContext(), ingestTimeout)
	defer cancel()
	result, err := b.ingester.Ingest(ctx, reading)
	if err != nil {
		b.log.Warn("telemetry rejected",
			logger.String("topic", msg.Topic()),
			logger.String("category", string(errors.CategoryOf(err))),
			logger.Error(err))
		return
	}
	if result.IsAnomaly {
		b.log.Debug("anomalous reading from mqtt",
			logger.String("equipment_id", reading.EquipmentID),
			logger.Int("tickets_created", len(result.TicketsCreated)))
	}
}

// payload is the JSON message form. A bare number is also accepted.
type payload struct {
	Value      *float64  `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// ParseMessage builds a reading from a topic below prefix and its payload.
func ParseMessage(prefix, topic string, body []byte) (cbm.Reading, error) {
	equipmentID, parameter, err := ParseTopic(prefix, topic)
	if err != nil {
		return cbm.Reading{}, err
	}
	value, observedAt, err := ParsePayload(body)
	if err != nil {
		return cbm.Reading{}, err
	}
	return cbm.Reading{EquipmentID: equipmentID, Parameter: parameter, Value: value, ObservedAt: observedAt}, nil
}

// ParseTopic splits <prefix>/<equipment>/<parameter>.
func ParseTopic(prefix, topic string) (equipmentID, parameter string, err error) {
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	rest, ok := strings.CutPrefix(topic, prefix)
	if !ok {
		return "", "", fmt.Errorf("topic %q is outside prefix %q", topic, prefix)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("topic %q must be %s<equipment>/<parameter>", topic, prefix)
	}
	return parts[0], parts[1], nil
}

// ParsePayload accepts "85.2" or {"value": 85.2, "observed_at": "2025-06-01T08:00:00Z"}.
func ParsePayload(body []byte) (value float64, observedAt time.Time, err error) {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return 0, time.Time{}, fmt.Errorf("empty payload")
	}
	if strings.HasPrefix(text, "{") {
		var p payload
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return 0, time.Time{}, fmt.Errorf("invalid json payload: %w", err)
		}
		if p.Value == nil {
			return 0, time.Time{}, fmt.Errorf("payload has no value")
		}
		return *p.Value, p.ObservedAt, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid numeric payload %q: %w", text, err)
	}
	return v, time.Time{}, nil
}
