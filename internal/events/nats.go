package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/errdefs"
)

// Config configures the NATS publisher. An empty URL disables publishing.
type Config struct {
	URL           string        `koanf:"url"`
	Name          string        `koanf:"name"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// Enabled reports whether a NATS URL is configured.
func (c Config) Enabled() bool { return c.URL != "" }

// NATSPublisher publishes events as JSON on core NATS.
type NATSPublisher struct {
	nc     *nats.Conn
	owned  bool
	logger *zap.Logger
}

// New returns a NATSPublisher when cfg is enabled and Nop otherwise.
func New(cfg Config, logger *zap.Logger) (Publisher, error) {
	if !cfg.Enabled() {
		return Nop{}, nil
	}
	return Connect(cfg, logger)
}

// Connect dials NATS and returns a publisher owning the connection.
func Connect(cfg Config, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "tutord"
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 5
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w: %w", cfg.URL, errdefs.ErrUpstreamUnavailable, err)
	}

	p := NewNATSPublisher(nc, logger)
	p.owned = true
	return p, nil
}

// NewNATSPublisher publishes on an existing connection. Close leaves the
// connection open.
func NewNATSPublisher(nc *nats.Conn, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{nc: nc, logger: logger}
}

// Publish implements Publisher. Missing ID and Timestamp are filled in.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event.Type, err)
	}

	subject := Subject(event.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	p.logger.Debug("published event",
		zap.String("subject", subject),
		zap.String("session.id", event.SessionID),
	)
	return nil
}

// Flush waits until the server has processed all published events.
func (p *NATSPublisher) Flush(ctx context.Context) error {
	return p.nc.FlushWithContext(ctx)
}

// Close drains the connection if the publisher owns it.
func (p *NATSPublisher) Close() error {
	if !p.owned || p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

// Subscribe decodes events on subject (wildcards allowed) and passes them
// to fn until the subscription is removed.
func Subscribe(nc *nats.Conn, subject string, fn func(Event)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var e Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return
		}
		fn(e)
	})
}
