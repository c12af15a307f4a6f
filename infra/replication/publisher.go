// Package replication emits the cross-boundary "timetable updated"
// notification over MQTT. A read-only instance of the constraint model
// (for example a presentation-only process) subscribes to the topic and
// rebuilds its copy from each retained snapshot.
package replication

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/timetable"
	"github.com/HGFantasy/TPF2-Timetables-sub001/infra/logger"
)

// Config defines the connection parameters for the snapshot publisher.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Topic    string `json:"topic"`
	QoS      byte   `json:"qos"`
	Retain   bool   `json:"retain"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "timetables-" + uuid.NewString()[:8]
	}
	if c.Topic == "" {
		c.Topic = "timetables/updated"
	}
}

// Validate checks mandatory fields when replication is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("replication broker is required")
	}
	return nil
}

// UpdateMessage is the wire form of one replication event.
type UpdateMessage struct {
	ID        string             `json:"id"`
	EmittedAt int64              `json:"emitted_at"`
	Snapshot  timetable.Snapshot `json:"snapshot"`
	Settings  map[string]any     `json:"settings,omitempty"`
}

// Publisher publishes snapshots with Eclipse Paho. Messages are
// retained by default so late subscribers converge immediately.
type Publisher struct {
	cli      paho.Client
	topic    string
	qos      byte
	retain   bool
	settings map[string]any
	log      logger.Logger
}

// NewPublisher connects to the broker. settings are attached verbatim
// to every emitted update so the consumer shares the operator's
// configuration.
func NewPublisher(cfg Config, settings map[string]any) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.New("replication")
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(paho.Client) { log.Infof("replication broker connected") }
	opts.OnConnectionLost = func(_ paho.Client, err error) { log.Errorf("connection lost: %v", err) }
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Publisher{
		cli:      cli,
		topic:    cfg.Topic,
		qos:      cfg.QoS,
		retain:   cfg.Retain,
		settings: settings,
		log:      log,
	}, nil
}

// PublishUpdate emits one serialized snapshot.
func (p *Publisher) PublishUpdate(snap timetable.Snapshot) error {
	msg := UpdateMessage{
		ID:        uuid.NewString(),
		EmittedAt: time.Now().Unix(),
		Snapshot:  snap,
		Settings:  p.settings,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	token := p.cli.Publish(p.topic, p.qos, p.retain, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish update: %w", token.Error())
	}
	p.log.Debugf("published timetable update %s (%d lines)", msg.ID, len(snap.Lines))
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.cli.Disconnect(250)
}

// MockNotifier records published snapshots for tests.
type MockNotifier struct {
	Updates []timetable.Snapshot
	Err     error
}

// PublishUpdate appends the snapshot or returns the configured error.
func (m *MockNotifier) PublishUpdate(snap timetable.Snapshot) error {
	if m.Err != nil {
		return m.Err
	}
	m.Updates = append(m.Updates, snap)
	return nil
}
