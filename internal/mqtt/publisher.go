// Package mqtt mirrors operational events to an MQTT broker. The
// publisher is optional; when no broker is configured the rest of the
// system runs unchanged.
package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/lark-ai/lark/internal/config"
	"github.com/lark-ai/lark/internal/events"
)

// Publisher forwards bus events to the broker under
// <prefix>/events/<source>/<kind>, and maintains a retained
// availability topic at <prefix>/availability.
type Publisher struct {
	cfg    config.MQTTConfig
	bus    *events.Bus
	logger *slog.Logger
	cm     *autopaho.ConnectionManager
}

// New creates a Publisher but does not connect. Call [Publisher.Run]
// to start.
func New(cfg config.MQTTConfig, bus *events.Bus, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{cfg: cfg, bus: bus, logger: logger}
}

func (p *Publisher) availabilityTopic() string {
	return p.cfg.TopicPrefix + "/availability"
}

func (p *Publisher) eventTopic(e events.Event) string {
	return fmt.Sprintf("%s/events/%s/%s", p.cfg.TopicPrefix, e.Source, e.Kind)
}

// Run connects to the broker and forwards bus events until ctx is
// cancelled. Reconnects are handled by autopaho; events published
// while disconnected are dropped.
func (p *Publisher) Run(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	clientID := p.cfg.ClientID
	if clientID == "" {
		clientID = "lark"
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   p.availabilityTopic(),
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.logger.Info("mqtt connected", "broker", p.cfg.Broker)
			p.publishAvailability(ctx, cm, "online")
		},
		OnConnectError: func(err error) {
			p.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: clientID,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	sub := p.bus.Subscribe(256)
	defer p.bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			p.publishAvailability(context.Background(), cm, "offline")
			return nil
		case e, ok := <-sub:
			if !ok {
				return nil
			}
			p.publishEvent(ctx, cm, e)
		}
	}
}

func (p *Publisher) publishEvent(ctx context.Context, cm *autopaho.ConnectionManager, e events.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("marshal mqtt event", "error", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = cm.Publish(pubCtx, &paho.Publish{
		Topic:   p.eventTopic(e),
		Payload: payload,
		QoS:     0,
	})
	if err != nil {
		p.logger.Debug("mqtt publish failed", "topic", p.eventTopic(e), "error", err)
	}
}

func (p *Publisher) publishAvailability(ctx context.Context, cm *autopaho.ConnectionManager, state string) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := cm.Publish(pubCtx, &paho.Publish{
		Topic:   p.availabilityTopic(),
		Payload: []byte(state),
		QoS:     1,
		Retain:  true,
	})
	if err != nil {
		p.logger.Debug("mqtt availability publish failed", "error", err)
	}
}
