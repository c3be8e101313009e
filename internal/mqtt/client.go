// Package mqtt implements the device Accessor over an MQTT connection to
// the home-automation host. Entity states arrive as retained JSON on
// status topics and feed a live cache; writes publish to set topics.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/durosity/lighttools/internal/device"
	"github.com/durosity/lighttools/internal/eventbus"
)

// Options configures the MQTT accessor.
type Options struct {
	BrokerURL      string // e.g. tcp://localhost:1883
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string // default "lighttools"
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
}

func (o *Options) applyDefaults() {
	if o.TopicPrefix == "" {
		o.TopicPrefix = "lighttools"
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.ClientID == "" {
		o.ClientID = "lighttools"
	}
}

// Client is an MQTT-backed Accessor. Reads are served from the cache of
// retained status messages; an entity with no retained state yet reads
// as unreachable.
type Client struct {
	opts   Options
	client pahomqtt.Client
	bus    *eventbus.Bus // optional, receives value_changed events

	mu    sync.RWMutex
	cache map[string]device.Value
}

// Connect establishes the broker connection and subscribes to all entity
// status topics. bus may be nil.
func Connect(opts Options, bus *eventbus.Bus) (*Client, error) {
	opts.applyDefaults()

	c := &Client{
		opts:  opts,
		bus:   bus,
		cache: make(map[string]device.Value),
	}

	pahoOpts := pahomqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(false)

	if opts.Username != "" {
		pahoOpts.SetUsername(opts.Username)
		pahoOpts.SetPassword(opts.Password)
	}

	// Resubscribe after every (re)connect so the retained states replay
	// into the cache.
	pahoOpts.SetOnConnectHandler(func(client pahomqtt.Client) {
		log.Info().Str("broker", opts.BrokerURL).Msg("MQTT connected")
		topic := c.statusWildcard()
		token := client.Subscribe(topic, 1, c.handleStatus)
		if token.WaitTimeout(opts.WriteTimeout) && token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to subscribe to status topics")
		}
	})
	pahoOpts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost, reconnecting")
	})

	c.client = pahomqtt.NewClient(pahoOpts)
	token := c.client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect: timeout after %v", opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return c, nil
}

// ReadValue returns the cached live value of an entity.
func (c *Client) ReadValue(_ context.Context, entityID string) (device.Value, error) {
	c.mu.RLock()
	value, ok := c.cache[entityID]
	c.mu.RUnlock()

	if !ok {
		return device.Value{}, fmt.Errorf("%s: %w", entityID, device.ErrUnreachable)
	}
	return value, nil
}

// WriteValue publishes a set command for the entity. The cache is not
// updated here; the host echoes the new state on the status topic.
func (c *Client) WriteValue(_ context.Context, entityID string, value device.Value) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", entityID, err)
	}

	topic := c.setTopic(entityID)
	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(c.opts.WriteTimeout) {
		return fmt.Errorf("publish %s: timeout after %v", topic, c.opts.WriteTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishState announces the derived state of one of our virtual devices
// (scene controllers, relay pairs) on a retained state topic.
func (c *Client) PublishState(kind, id, state string) {
	topic := fmt.Sprintf("%s/%s/%s/state", c.opts.TopicPrefix, kind, id)
	token := c.client.Publish(topic, 1, true, []byte(state))
	if token.WaitTimeout(c.opts.WriteTimeout) && token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to publish state")
	}
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(uint(time.Second.Milliseconds()))
	log.Debug().Msg("MQTT disconnected")
}

// handleStatus decodes a retained entity status and updates the cache.
func (c *Client) handleStatus(_ pahomqtt.Client, msg pahomqtt.Message) {
	entityID, ok := ParseStatusTopic(c.opts.TopicPrefix, msg.Topic())
	if !ok {
		log.Debug().Str("topic", msg.Topic()).Msg("Ignoring message on unexpected topic")
		return
	}

	var value device.Value
	if err := json.Unmarshal(msg.Payload(), &value); err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("Invalid status payload")
		return
	}
	if !value.Kind.Valid() {
		log.Warn().Str("topic", msg.Topic()).Str("kind", string(value.Kind)).Msg("Unknown entity kind")
		return
	}

	c.mu.Lock()
	prev, had := c.cache[entityID]
	c.cache[entityID] = value
	c.mu.Unlock()

	if c.bus != nil && (!had || prev != value) {
		c.bus.Publish(eventbus.Event{
			Type: eventbus.EventTypeValueChanged,
			Data: map[string]interface{}{
				"entity_id": entityID,
				"value":     value,
			},
		})
	}
}

func (c *Client) statusWildcard() string {
	return c.opts.TopicPrefix + "/status/#"
}

func (c *Client) setTopic(entityID string) string {
	return c.opts.TopicPrefix + "/set/" + entityID
}
