package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"gitlab.com/yelinaung/subday/internal/logger"
)

// RoutingKey is the topic due-soon notices are published under.
const RoutingKey = "subscription.due_soon"

// Publisher is the part of an AMQP channel the dispatcher needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPDispatcher publishes notices as JSON to a topic exchange.
type AMQPDispatcher struct {
	conn     *amqp.Connection
	channel  Publisher
	exchange string
}

// NewAMQPDispatcher creates a dispatcher on an already opened channel.
func NewAMQPDispatcher(channel Publisher, exchange string) *AMQPDispatcher {
	return &AMQPDispatcher{channel: channel, exchange: exchange}
}

// DialAMQP connects to the broker and declares the exchange.
func DialAMQP(rawURL, exchange string) (*AMQPDispatcher, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}

	d := NewAMQPDispatcher(channel, exchange)
	d.conn = conn
	return d, nil
}

// Dispatch implements Dispatcher.
func (d *AMQPDispatcher) Dispatch(ctx context.Context, n Notice) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	err = d.channel.PublishWithContext(ctx,
		d.exchange, // exchange
		RoutingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish notice: %w", err)
	}

	logger.Log.Debug().
		Str("exchange", d.exchange).
		Str("routing_key", RoutingKey).
		Str("user", logger.HashUserID(n.UID)).
		Msg("Published notice")
	return nil
}

// Close closes the connection opened by DialAMQP.
func (d *AMQPDispatcher) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("invalid AMQP URL: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	if u.Path == "" {
		clean += "/"
	}
	return clean, nil
}
