// Package mqtt publishes establishment status events to an MQTT broker so
// that duty boards and kiosks can follow them without polling.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	qos            = 1
	connectTimeout = 10 * time.Second
	quiesceMillis  = 250
)

// Client is the subset of paho.Client used by Publisher.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

type Config struct {
	BrokerURL string
	ClientID  string
	Topic     string
}

// Publisher sends each status payload twice: on the base topic, and retained
// on <topic>/<establishmentId> so new subscribers get the current status.
type Publisher struct {
	client Client
	topic  string
	logger zerolog.Logger
}

// Connect dials the broker. paho reconnects on its own after the first
// successful connection.
func Connect(cfg Config, logger zerolog.Logger) (*Publisher, error) {
	logger = logger.With().Str("component", "mqtt").Logger()
	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn().Err(err).Msg("mqtt connection lost")
		}).
		SetOnConnectHandler(func(paho.Client) {
			logger.Info().Str("broker", cfg.BrokerURL).Msg("mqtt connected")
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timed out", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.BrokerURL, err)
	}
	return NewPublisher(client, cfg.Topic, logger), nil
}

func NewPublisher(client Client, topic string, logger zerolog.Logger) *Publisher {
	return &Publisher{client: client, topic: topic, logger: logger}
}

type routing struct {
	EstablishmentID int64 `json:"establishmentId"`
}

// NotifyAll publishes payload and waits for the broker acknowledgements or
// for ctx to end.
func (p *Publisher) NotifyAll(ctx context.Context, payload []byte) error {
	var r routing
	_ = json.Unmarshal(payload, &r)

	tokens := []paho.Token{p.client.Publish(p.topic, qos, false, payload)}
	if r.EstablishmentID != 0 {
		topic := p.topic + "/" + strconv.FormatInt(r.EstablishmentID, 10)
		tokens = append(tokens, p.client.Publish(topic, qos, true, payload))
	}

	var errs []error
	for _, t := range tokens {
		select {
		case <-t.Done():
			if err := t.Error(); err != nil {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			return fmt.Errorf("mqtt publish: %w", ctx.Err())
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	p.logger.Debug().Int64("establishment_id", r.EstablishmentID).Msg("status published")
	return nil
}

func (p *Publisher) Close() {
	p.client.Disconnect(quiesceMillis)
}
