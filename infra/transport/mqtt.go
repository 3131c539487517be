// Package transport connects the conversation handler to the outside world.
// The MQTT gateway bridges a WhatsApp-style chat relay: inbound messages
// arrive on a per-phone topic, replies and notifications go back out the
// same way.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/fletescerealeros/fletes/core/conversation"
	"github.com/fletescerealeros/fletes/infra/logger"
)

const (
	inboundTopic      = "fletes/inbound/+"
	outboundTopicBase = "fletes/outbound/"
)

// Config defines the connection parameters for the MQTT gateway.
type Config struct {
	Broker     string      `json:"broker"`
	ClientID   string      `json:"client_id"`
	Username   string      `json:"username"`
	Password   string      `json:"password"`
	UseTLS     bool        `json:"use_tls"`
	ClientCert string      `json:"client_cert"`
	ClientKey  string      `json:"client_key"`
	CABundle   string      `json:"ca_bundle"`
	QoS        byte        `json:"qos"`
	MaxRetries int         `json:"max_retries"`
	BackoffMS  int         `json:"backoff_ms"`
	TLSConfig  *tls.Config `json:"-"`
}

// inboundPayload is the relay's wire format. A bare-text payload is also
// accepted and treated as the message body.
type inboundPayload struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type outboundPayload struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
	TS    int64  `json:"timestamp"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTGateway routes chat traffic between the broker and the handler.
type MQTTGateway struct {
	cli        pahoClient
	handler    *conversation.Handler
	log        logger.Logger
	qos        byte
	maxRetries int
	backoff    time.Duration
}

// NewMQTTGateway connects to the broker and subscribes to the inbound
// topic. Messages are handled sequentially in paho's callback goroutine.
func NewMQTTGateway(cfg Config, h *conversation.Handler) (*MQTTGateway, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_gateway")
	g := &MQTTGateway{
		handler:    h,
		log:        log,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if g.maxRetries <= 0 {
		g.maxRetries = 3
	}
	if g.backoff <= 0 {
		g.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(inboundTopic, g.qos, g.onMessage); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	g.cli = c
	return g, nil
}

// NewClientOptions builds paho client options from Config. An empty client
// id gets a uuid suffix so parallel instances never clash.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "fletes-" + uuid.NewString()
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in Config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (g *MQTTGateway) onMessage(_ paho.Client, msg paho.Message) {
	phone := phoneFromTopic(msg.Topic())
	if phone == "" {
		g.log.Warnf("inbound message on unexpected topic %s", msg.Topic())
		return
	}

	var in inboundPayload
	if err := json.Unmarshal(msg.Payload(), &in); err != nil {
		in = inboundPayload{Text: string(msg.Payload())}
	}
	if strings.TrimSpace(in.Text) == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := g.handler.Handle(ctx, conversation.Inbound{Phone: phone, Name: in.Name, Text: in.Text})
	if err != nil {
		g.log.Errorf("handle message from %s: %v", phone, err)
		return
	}

	if res.Reply != "" {
		g.send(phone, res.Reply)
	}
	for _, n := range res.Notifications {
		g.send(n.Phone, n.Text)
	}
}

func (g *MQTTGateway) send(phone, text string) {
	payload, err := json.Marshal(outboundPayload{Phone: phone, Text: text, TS: time.Now().UnixMilli()})
	if err != nil {
		g.log.Errorf("marshal outbound for %s: %v", phone, err)
		return
	}
	topic := outboundTopicBase + phone
	var publishErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		token := g.cli.Publish(topic, g.qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			g.log.Debugf("sent message to %s", topic)
			return
		}
		g.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(g.backoff * time.Duration(1<<attempt))
	}
}

// Disconnect gracefully closes the MQTT connection.
func (g *MQTTGateway) Disconnect() {
	if g.cli != nil && g.cli.IsConnected() {
		g.cli.Disconnect(250)
	}
}

func phoneFromTopic(topic string) string {
	i := strings.LastIndex(topic, "/")
	if i < 0 || i == len(topic)-1 {
		return ""
	}
	return topic[i+1:]
}
