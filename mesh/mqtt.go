package mesh

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MessageHandler is called for every scanner report received over MQTT.
// cloud is nil when the payload could not be decoded.
type MessageHandler func(scannerID string, cloud PointCloud, err error)

// MQTTClient manages the broker connection and the scanner report subscriptions
type MQTTClient struct {
	client         mqtt.Client
	config         *Config
	messageHandler MessageHandler
	isConnected    bool
	mu             sync.RWMutex
	logger         zerolog.Logger
}

// InitMQTT connects to the broker and subscribes to every scanner topic.
// If neither MQTT_BROKER nor mqtt.broker is set, MQTT is disabled and this
// returns nil, nil.
func InitMQTT(config *Config, handler MessageHandler) (*MQTTClient, error) {
	broker := envOr("MQTT_BROKER", "")
	if broker == "" && config != nil {
		broker = config.MQTT.Broker
	}

	logger := log.With().Str("component", "mqtt").Logger()
	if broker == "" {
		logger.Info().Msg("MQTT disabled: no broker configured")
		return nil, nil
	}

	if config == nil || len(config.Scanners) == 0 {
		return nil, fmt.Errorf("MQTT enabled but no scanner configuration provided")
	}

	client := &MQTTClient{
		config:         config,
		messageHandler: handler,
		logger:         logger,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(envOr("MQTT_CLIENT_ID", orDefault(config.MQTT.ClientID, defaultClientID)))

	if username := envOr("MQTT_USERNAME", config.MQTT.Username); username != "" {
		opts.SetUsername(username)
		opts.SetPassword(envOr("MQTT_PASSWORD", config.MQTT.Password))
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false)
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	return client, nil
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		c.logger.Info().Msg("connecting to MQTT broker")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				c.logger.Info().Msg("connected to MQTT broker")
				c.setConnected(true)
				return
			}
			c.logger.Warn().Err(token.Error()).Msg("MQTT connection failed")
		} else {
			c.logger.Warn().Msg("MQTT connection timeout")
		}

		c.logger.Info().Dur("retryIn", retryDelay).Msg("retrying MQTT connection")
		time.Sleep(retryDelay)
		retryDelay = min(retryDelay*2, maxRetryDelay)
	}
}

// onConnect subscribes to every configured scanner topic
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.logger.Info().Msg("MQTT connected, subscribing to scanner topics")
	c.setConnected(true)

	for _, sc := range c.config.Scanners {
		if sc.Topic == "" {
			c.logger.Warn().Str("scanner", sc.ID).Msg("scanner has no topic configured")
			continue
		}

		token := client.Subscribe(sc.Topic, 0, c.createMessageHandler(sc.ID))
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			c.logger.Error().Err(token.Error()).Str("topic", sc.Topic).Msg("subscribe failed")
			continue
		}
		c.logger.Info().Str("topic", sc.Topic).Str("scanner", sc.ID).Msg("subscribed")
	}
}

// Resubscribe registers the scanner topic handlers on the wrapped client.
// Clients built by InitMQTT do this on every (re)connect.
func (c *MQTTClient) Resubscribe() {
	c.onConnect(c.client)
}

func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	c.logger.Warn().Err(err).Msg("MQTT connection interrupted, auto-reconnect will retry")
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	c.logger.Info().Msg("MQTT reconnecting")
}

// createMessageHandler decodes report payloads for a specific scanner's topic
func (c *MQTTClient) createMessageHandler(scannerID string) mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		c.logger.Debug().
			Str("scanner", scannerID).
			Str("topic", msg.Topic()).
			Int("bytes", len(payload)).
			Msg("received scanner report")

		cloud, err := DecodeReportPayload(payload)
		if err != nil {
			c.logger.Error().Err(err).Str("scanner", scannerID).Msg("decoding scanner report")
		}
		if c.messageHandler != nil {
			c.messageHandler(scannerID, cloud, err)
		}
	}
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.logger.Info().Msg("disconnecting from MQTT broker")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetScannerByTopic returns the scanner ID subscribed to topic
func (c *MQTTClient) GetScannerByTopic(topic string) (string, bool) {
	for _, sc := range c.config.Scanners {
		if sc.Topic == topic {
			return sc.ID, true
		}
	}
	return "", false
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock wraps a provided mqtt.Client
func newMQTTClientWithMock(client mqtt.Client, config *Config, handler MessageHandler) *MQTTClient {
	return &MQTTClient{
		client:         client,
		config:         config,
		messageHandler: handler,
		logger:         log.With().Str("component", "mqtt").Logger(),
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
