package mqtt

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client manages the broker connection for the feature ingest side.
// Subscribing and publishing live in Subscriber and Publisher.
type Client struct {
	client mqtt.Client
	config ClientConfig
}

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// NewClient connects to the broker. Paho's auto-reconnect keeps the
// ingest side alive across broker restarts; subscriptions are restored
// on reconnect.
func NewClient(config ClientConfig) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetOnConnectHandler(connectHandler)
	opts.SetConnectionLostHandler(connectLostHandler)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Println("MQTT Client: Connected to broker:", config.Broker)

	return &Client{
		client: client,
		config: config,
	}, nil
}

// GetNativeClient returns the underlying paho MQTT client for use by
// Subscriber and Publisher.
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close closes the MQTT client connection
func (c *Client) Close() {
	c.client.Disconnect(250)
	log.Println("MQTT Client: Disconnected")
}

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Println("MQTT: Connection established")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Printf("MQTT: Connection lost: %v", err)
}
