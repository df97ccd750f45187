package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitConfig holds connection settings for the RabbitMQ client.
type RabbitConfig struct {
	URL               string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HeartbeatTimeout  time.Duration
}

func (c *RabbitConfig) applyDefaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 60 * time.Second
	}
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = 10 * time.Second
	}
}

// RabbitClient is a reconnecting wrapper around a single AMQP connection
// and channel. Publish and Consume survive broker restarts.
type RabbitClient struct {
	config RabbitConfig
	log    *slog.Logger

	mu              sync.RWMutex
	conn            *amqp.Connection
	ch              *amqp.Channel
	notifyConnClose chan *amqp.Error
	isReconnecting  bool
	isClosed        bool
}

func NewRabbitClient(config RabbitConfig, log *slog.Logger) (*RabbitClient, error) {
	config.applyDefaults()

	client := &RabbitClient{config: config, log: log}
	if err := client.connect(); err != nil {
		return nil, err
	}

	go client.watchConnection()
	return client, nil
}

func (r *RabbitClient) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Info("connecting to rabbitmq", "url", maskAMQPURL(r.config.URL))

	conn, err := amqp.DialConfig(r.config.URL, amqp.Config{
		Heartbeat: r.config.HeartbeatTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	r.conn = conn
	r.ch = ch
	r.notifyConnClose = make(chan *amqp.Error)
	r.conn.NotifyClose(r.notifyConnClose)
	r.isReconnecting = false
	return nil
}

func (r *RabbitClient) watchConnection() {
	r.mu.RLock()
	if r.isClosed {
		r.mu.RUnlock()
		return
	}
	notifyClose := r.notifyConnClose
	r.mu.RUnlock()

	if err := <-notifyClose; err != nil {
		r.log.Warn("rabbitmq connection closed, reconnecting", "error", err)
		r.reconnect()
	}
}

func (r *RabbitClient) reconnect() {
	r.mu.Lock()
	r.isReconnecting = true
	r.mu.Unlock()

	backoff := r.config.ReconnectDelay
	for {
		r.mu.RLock()
		closed := r.isClosed
		r.mu.RUnlock()
		if closed {
			return
		}

		if err := r.connect(); err == nil {
			r.log.Info("rabbitmq reconnected")
			go r.watchConnection()
			return
		}

		time.Sleep(backoff)
		backoff *= 2
		if backoff > r.config.MaxReconnectDelay {
			backoff = r.config.MaxReconnectDelay
		}
	}
}

// DeclareQueue declares a durable queue with the given name.
func (r *RabbitClient) DeclareQueue(name string) (amqp.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.ch == nil {
		return amqp.Queue{}, fmt.Errorf("channel is not initialized")
	}
	return r.ch.QueueDeclare(name, true, false, false, false, nil)
}

// Publish sends a JSON message to the named queue via the default exchange.
func (r *RabbitClient) Publish(ctx context.Context, queueName string, body []byte) error {
	r.mu.RLock()
	if r.isReconnecting || r.ch == nil {
		r.mu.RUnlock()
		return fmt.Errorf("connection is not available")
	}
	ch := r.ch
	r.mu.RUnlock()

	return ch.PublishWithContext(ctx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
}

// Consume delivers messages from the named queue to handler until ctx is
// cancelled. A handler error nacks and requeues the message.
func (r *RabbitClient) Consume(ctx context.Context, queueName string, handler func(body []byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		r.mu.RLock()
		if r.isReconnecting || r.ch == nil {
			r.mu.RUnlock()
			time.Sleep(time.Second)
			continue
		}
		ch := r.ch
		r.mu.RUnlock()

		msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
		if err != nil {
			r.log.Error("failed to register a consumer", "queue", queueName, "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

	deliveries:
		for {
			select {
			case <-ctx.Done():
				return nil
			case d, ok := <-msgs:
				if !ok {
					break deliveries // channel closed, wait for reconnect
				}
				if err := handler(d.Body); err != nil {
					r.log.Error("error handling message", "queue", queueName, "error", err)
					d.Nack(false, true)
				} else {
					d.Ack(false)
				}
			}
		}

		time.Sleep(r.config.ReconnectDelay)
	}
}

func (r *RabbitClient) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.isClosed = true
	if r.ch != nil {
		r.ch.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

func (r *RabbitClient) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn != nil && !r.conn.IsClosed() && !r.isReconnecting
}

func maskAMQPURL(url string) string {
	if parts := strings.Split(url, "@"); len(parts) > 1 {
		prefixParts := strings.Split(parts[0], "://")
		if len(prefixParts) == 2 {
			return prefixParts[0] + "://***:***@" + parts[1]
		}
	}
	return url
}
