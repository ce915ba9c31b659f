package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish in time.
var ErrPublishTimeout = errors.New("publish timed out")

// Dispatcher delivers a recorded notification to the user. Delivery is
// at-least-once; consumers deduplicate on the notification id.
type Dispatcher interface {
	Dispatch(ctx context.Context, n models.Notification) error
}

// Event is the payload published for a notification.
type Event struct {
	EventID        string                  `json:"event_id"`
	NotificationID string                  `json:"notification_id"`
	UserID         string                  `json:"user_id"`
	Type           models.NotificationType `json:"type"`
	Title          string                  `json:"title"`
	Message        string                  `json:"message"`
	Data           map[string]interface{}  `json:"data,omitempty"`
	ScheduledFor   *time.Time              `json:"scheduled_for,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

// NewEvent builds the event for n with a fresh event id.
func NewEvent(n models.Notification) Event {
	return Event{
		EventID:        uuid.NewString(),
		NotificationID: n.ID.Hex(),
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Data:           n.Data,
		ScheduledFor:   n.ScheduledFor,
		CreatedAt:      n.CreatedAt,
	}
}

// Topic returns the per-user notification topic under prefix.
func Topic(prefix, userID string) string {
	return fmt.Sprintf("%s/users/%s/notifications", prefix, userID)
}

// publisher is the subset of mqtt.Client used for dispatch.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTDispatcher publishes notifications to an MQTT broker with QoS 1.
type MQTTDispatcher struct {
	client  publisher
	prefix  string
	timeout time.Duration
}

// MQTTConfig configures the MQTT dispatcher.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Timeout     time.Duration
}

// NewMQTTDispatcher connects to the broker and returns a dispatcher.
func NewMQTTDispatcher(cfg MQTTConfig) (*MQTTDispatcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			log.WithField("broker", cfg.Broker).Info("Connected to MQTT broker")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return newMQTTDispatcher(client, cfg.TopicPrefix, cfg.Timeout), nil
}

func newMQTTDispatcher(client publisher, prefix string, timeout time.Duration) *MQTTDispatcher {
	return &MQTTDispatcher{client: client, prefix: prefix, timeout: timeout}
}

// Dispatch publishes n to the user's topic and waits for the broker ack.
func (d *MQTTDispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(NewEvent(n))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	token := d.client.Publish(Topic(d.prefix, n.UserID), 1, false, payload)
	if !token.WaitTimeout(d.timeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// Close disconnects from the broker.
func (d *MQTTDispatcher) Close() {
	if c, ok := d.client.(mqtt.Client); ok {
		c.Disconnect(250)
	}
}

// LogDispatcher writes notifications to the log. It is used when no broker
// is configured.
type LogDispatcher struct{}

// Dispatch logs n.
func (LogDispatcher) Dispatch(_ context.Context, n models.Notification) error {
	log.WithFields(log.Fields{
		"notification_id": n.ID.Hex(),
		"user_id":         n.UserID,
		"type":            n.Type,
		"title":           n.Title,
	}).Info("Notification dispatched")
	return nil
}
