// Package mqtt publishes player status and receives remote commands. Without
// a broker host every call is a no-op, so the player works stand-alone.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Config holds MQTT connection settings. Any certificate switches to TLS.
type Config struct {
	Host       string `yaml:"host" env:"HOST"`
	Port       int    `yaml:"port" env:"PORT"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

const (
	keepAlive     = 30 * time.Second
	quiesceMillis = 250
)

// Handlers are called from paho's goroutines.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()
	OnMessage    func(topic string, payload []byte)
}

// Client is a paho client that remembers its subscriptions.
type Client struct {
	client   paho.Client // nil when disabled
	clientID string
	handlers Handlers

	mu     sync.Mutex
	topics []string
}

// New creates a client. An empty host gives a disabled client.
func New(cfg Config, clientID string, handlers Handlers) (*Client, error) {
	c := &Client{clientID: clientID, handlers: handlers}
	if cfg.Host == "" {
		log.Println("No MQTT host, running stand-alone")
		return c, nil
	}

	broker, tlsConfig, err := brokerURL(cfg)
	if err != nil {
		return nil, err
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetTLSConfig(tlsConfig)
	opts.SetKeepAlive(keepAlive)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(func(paho.Client) { c.connected() })
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) { c.lost(err) })
	opts.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) { c.deliver(msg) })
	c.client = paho.NewClient(opts)

	routePahoLogs()
	log.Printf("MQTT broker %s as %s", broker, clientID)

	return c, nil
}

// routePahoLogs sends paho's own error, critical and warning output to
// stdout next to ours.
func routePahoLogs() {
	paho.ERROR = log.New(os.Stdout, "[MQTT ERROR] ", 0)
	paho.CRITICAL = log.New(os.Stdout, "[MQTT CRIT] ", 0)
	paho.WARN = log.New(os.Stdout, "[MQTT WARN] ", 0)
}

// brokerURL picks ssl:// on 8883 when certificates are configured and
// tcp:// on 1883 otherwise.
func brokerURL(cfg Config) (string, *tls.Config, error) {
	if cfg.CACert == "" && cfg.ClientCert == "" {
		port := cfg.Port
		if port == 0 {
			port = 1883
		}
		return fmt.Sprintf("tcp://%s:%d", cfg.Host, port), nil, nil
	}

	port := cfg.Port
	if port == 0 {
		port = 8883
	}
	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return "", nil, fmt.Errorf("build TLS config: %w", err)
	}
	return fmt.Sprintf("ssl://%s:%d", cfg.Host, port), tlsConfig, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	conf := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CACert != "" {
		pem, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CACert)
		}
		conf.RootCAs = pool
	}

	if cfg.ClientCert == "" || cfg.ClientKey == "" {
		return conf, nil
	}
	pair, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load client key pair: %w", err)
	}
	conf.Certificates = append(conf.Certificates, pair)
	return conf, nil
}

// Connect blocks until the broker accepts the connection. A disabled client
// reports itself connected straight away.
func (c *Client) Connect() error {
	if c.client == nil {
		if c.handlers.OnConnect != nil {
			c.handlers.OnConnect()
		}
		return nil
	}
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Disconnect gives in-flight work quiesceMillis to finish.
func (c *Client) Disconnect() {
	if c.client != nil {
		c.client.Disconnect(quiesceMillis)
	}
}

// Subscribe subscribes now and again after every reconnect.
func (c *Client) Subscribe(topic string) error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	if !slices.Contains(c.topics, topic) {
		c.topics = append(c.topics, topic)
	}
	c.mu.Unlock()

	return c.subscribe(topic)
}

func (c *Client) subscribe(topic string) error {
	token := c.client.Subscribe(topic, 0, nil)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Publish sends payload with QoS 0 without waiting.
func (c *Client) Publish(topic, payload string) {
	if c.IsEnabled() {
		c.client.Publish(topic, 0, false, payload)
	}
}

// PublishJSON encodes v and publishes it.
func (c *Client) PublishJSON(topic string, v any) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}
	c.client.Publish(topic, 0, false, data)
	return nil
}

// IsEnabled reports whether a broker is configured.
func (c *Client) IsEnabled() bool {
	return c.client != nil
}

// ClientID returns the id used on the broker and in topic names.
func (c *Client) ClientID() string {
	return c.clientID
}

func (c *Client) connected() {
	topics := c.subscriptions()
	log.Printf("MQTT up, restoring %d subscriptions", len(topics))
	for _, topic := range topics {
		if err := c.subscribe(topic); err != nil {
			log.Printf("MQTT resubscribe: %v", err)
		}
	}

	if c.handlers.OnConnect != nil {
		c.handlers.OnConnect()
	}
}

func (c *Client) lost(err error) {
	log.Printf("MQTT down: %v", err)
	if c.handlers.OnDisconnect != nil {
		c.handlers.OnDisconnect()
	}
}

func (c *Client) deliver(msg paho.Message) {
	if c.handlers.OnMessage != nil {
		c.handlers.OnMessage(msg.Topic(), msg.Payload())
	}
}

func (c *Client) subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.topics...)
}
