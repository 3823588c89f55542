package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
)

// 占用变更事件类型
const (
	RoomCreated     = "room.created"
	RoomUpdated     = "room.updated"
	RoomDeleted     = "room.deleted"
	WorkerCreated   = "worker.created"
	WorkerMoved     = "worker.moved"
	WorkerUpdated   = "worker.updated"
	WorkerDeleted   = "worker.deleted"
	RoomsImported   = "rooms.imported"
	WorkersImported = "workers.imported"
	CampReconciled  = "camp.reconciled"
)

// Event is published after a committed occupancy change.
type Event struct {
	Type     string    `json:"type"`
	CampID   string    `json:"campId"`
	RoomID   string    `json:"roomId,omitempty"`
	FromRoom string    `json:"fromRoomId,omitempty"`
	WorkerID string    `json:"workerId,omitempty"`
	Count    int       `json:"count,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// RedisStreamPublisher XADD 到 Redis Streams，字段与 owl 系列服务一致：
// event_type / camp_id / data(JSON)
type RedisStreamPublisher struct {
	c      *redis.Client
	stream string
}

func NewRedisStreamPublisher(c *redis.Client, stream string) *RedisStreamPublisher {
	return &RedisStreamPublisher{c: c, stream: stream}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = p.c.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_type": e.Type,
			"camp_id":    e.CampID,
			"data":       string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}
	return nil
}

// MQTTPublisher 发布到 {prefix}/{campID}/{type}
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	qos    byte
}

// MQTTOptions 连接参数
type MQTTOptions struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// NewMQTTPublisher connects to the broker and returns a publisher.
func NewMQTTPublisher(o MQTTOptions) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return NewMQTTPublisherWithClient(client, o.TopicPrefix, o.QoS), nil
}

func NewMQTTPublisherWithClient(client mqtt.Client, prefix string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, qos: qos}
}

func (p *MQTTPublisher) Topic(e Event) string {
	return fmt.Sprintf("%s/%s/%s", p.prefix, e.CampID, e.Type)
}

func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	topic := p.Topic(e)
	token := p.client.Publish(topic, p.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

// Close 断开连接
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
