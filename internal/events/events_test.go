package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStreamPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer c.Close()

	ctx := context.Background()
	p := NewRedisStreamPublisher(c, "kamp:occupancy")
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, p.Publish(ctx, Event{Type: WorkerCreated, CampID: "c1", RoomID: "r1", WorkerID: "w1", At: at}))
	require.NoError(t, p.Publish(ctx, Event{Type: RoomsImported, CampID: "c1", Count: 3, At: at}))

	msgs, err := c.XRange(ctx, "kamp:occupancy", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, WorkerCreated, msgs[0].Values["event_type"])
	assert.Equal(t, "c1", msgs[0].Values["camp_id"])

	var got Event
	require.NoError(t, json.Unmarshal([]byte(msgs[1].Values["data"].(string)), &got))
	assert.Equal(t, RoomsImported, got.Type)
	assert.Equal(t, 3, got.Count)
}

func TestMQTTPublisher_Topic(t *testing.T) {
	p := NewMQTTPublisherWithClient(nil, "kamp/occupancy", 1)
	assert.Equal(t, "kamp/occupancy/c1/room.deleted", p.Topic(Event{Type: RoomDeleted, CampID: "c1"}))
}

// fakeToken completes when done is closed.
type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(completed bool, err error) *fakeToken {
	tk := &fakeToken{done: make(chan struct{}), err: err}
	if completed {
		close(tk.done)
	}
	return tk
}

func (tk *fakeToken) Wait() bool { <-tk.done; return true }
func (tk *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-tk.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (tk *fakeToken) Done() <-chan struct{} { return tk.done }
func (tk *fakeToken) Error() error          { return tk.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes; other mqtt.Client methods are not used.
type fakeClient struct {
	mqtt.Client
	token mqtt.Token
	sent  []published
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return c.token
}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{token: newFakeToken(true, nil)}
	p := NewMQTTPublisherWithClient(client, "kamp/occupancy", 1)

	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, p.Publish(context.Background(), Event{Type: WorkerMoved, CampID: "c1", RoomID: "r2", FromRoom: "r1", WorkerID: "w1", At: at}))

	require.Len(t, client.sent, 1)
	msg := client.sent[0]
	assert.Equal(t, "kamp/occupancy/c1/worker.moved", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.False(t, msg.retained)

	var got Event
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, WorkerMoved, got.Type)
	assert.Equal(t, "r1", got.FromRoom)
	assert.Equal(t, "r2", got.RoomID)
	assert.True(t, at.Equal(got.At))
}

func TestMQTTPublisher_PublishError(t *testing.T) {
	client := &fakeClient{token: newFakeToken(true, errors.New("not connected"))}
	p := NewMQTTPublisherWithClient(client, "kamp/occupancy", 0)

	err := p.Publish(context.Background(), Event{Type: RoomCreated, CampID: "c1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kamp/occupancy/c1/room.created")
	assert.Contains(t, err.Error(), "not connected")
}

func TestMQTTPublisher_PublishContextCanceled(t *testing.T) {
	client := &fakeClient{token: newFakeToken(false, nil)}
	p := NewMQTTPublisherWithClient(client, "kamp/occupancy", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, Event{Type: RoomDeleted, CampID: "c1"})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, client.sent, 1)
	assert.Equal(t, byte(2), client.sent[0].qos)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{Type: RoomCreated}))
}
