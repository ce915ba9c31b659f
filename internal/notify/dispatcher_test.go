package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/propdocs-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeToken implements mqtt.Token.
type fakeToken struct {
	done bool
	err  error
}

func (t *fakeToken) Wait() bool                     { return t.done }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.done {
		close(ch)
	}
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(mqtt.Token)
}

func testNotification() models.Notification {
	return models.Notification{
		ID:      primitive.NewObjectID(),
		UserID:  "user-1",
		Type:    models.NotificationMaintenanceDue,
		Title:   "Maintenance due",
		Message: "Flush water heater is due in 7 days",
	}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "propdocs/users/u1/notifications", Topic("propdocs", "u1"))
}

func TestNewEvent(t *testing.T) {
	n := testNotification()
	e := NewEvent(n)

	_, err := uuid.Parse(e.EventID)
	assert.NoError(t, err)
	assert.Equal(t, n.ID.Hex(), e.NotificationID)
	assert.Equal(t, n.UserID, e.UserID)
	assert.NotEqual(t, e.EventID, NewEvent(n).EventID)
}

func TestMQTTDispatcher_Dispatch(t *testing.T) {
	n := testNotification()

	t.Run("publishes with QoS 1", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", "propdocs/users/user-1/notifications", byte(1), false, mock.Anything).
			Return(&fakeToken{done: true})

		d := newMQTTDispatcher(pub, "propdocs", time.Second)
		require.NoError(t, d.Dispatch(context.Background(), n))

		payload := pub.Calls[0].Arguments.Get(3).([]byte)
		var e Event
		require.NoError(t, json.Unmarshal(payload, &e))
		assert.Equal(t, n.ID.Hex(), e.NotificationID)
		assert.Equal(t, models.NotificationMaintenanceDue, e.Type)
		pub.AssertExpectations(t)
	})

	t.Run("timeout", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&fakeToken{done: false})

		d := newMQTTDispatcher(pub, "propdocs", time.Millisecond)
		assert.ErrorIs(t, d.Dispatch(context.Background(), n), ErrPublishTimeout)
	})

	t.Run("broker error", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&fakeToken{done: true, err: errors.New("not authorized")})

		d := newMQTTDispatcher(pub, "propdocs", time.Second)
		assert.EqualError(t, d.Dispatch(context.Background(), n), "not authorized")
	})

	t.Run("cancelled context", func(t *testing.T) {
		pub := new(MockPublisher)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		d := newMQTTDispatcher(pub, "propdocs", time.Second)
		assert.ErrorIs(t, d.Dispatch(ctx, n), context.Canceled)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLogDispatcher(t *testing.T) {
	assert.NoError(t, LogDispatcher{}.Dispatch(context.Background(), testNotification()))
}
