package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// JetStream subjects.
const (
	SubjectSSR   = "airsuck.ssr"
	SubjectAIS   = "airsuck.ais"
	SubjectState = "airsuck.state"

	StreamName = "AIRSUCK"
)

// Publisher is the part of nats.JetStreamContext the sink uses.
type Publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATS publishes envelopes to JetStream. Envelopes carrying track state
// additionally publish that state on SubjectState.
type NATS struct {
	conn   *nats.Conn
	js     Publisher
	logger *logrus.Logger
}

// NewNATS connects to url and makes sure the stream exists.
func NewNATS(url string, logger *logrus.Logger) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name("airsuck"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectSSR, SubjectAIS, SubjectState},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil && !strings.Contains(err.Error(), "stream name already in use") {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	logger.WithField("url", url).Info("Connected to NATS")
	return &NATS{conn: nc, js: js, logger: logger}, nil
}

// NewNATSWithPublisher creates a sink on an existing publisher.
func NewNATSWithPublisher(js Publisher, logger *logrus.Logger) *NATS {
	return &NATS{js: js, logger: logger}
}

func (n *NATS) Write(ctx context.Context, env Envelope) error {
	subject := SubjectSSR
	if env.Type == TypeAIS {
		subject = SubjectAIS
	}
	if err := n.publish(ctx, subject, env); err != nil {
		return err
	}

	if env.State != nil {
		if err := n.publish(ctx, SubjectState, env.State); err != nil {
			return err
		}
	}
	return nil
}

func (n *NATS) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if _, err := n.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (n *NATS) Close() error {
	if n.conn != nil {
		if err := n.conn.Drain(); err != nil {
			n.logger.WithError(err).Warn("Failed to drain NATS connection")
			n.conn.Close()
		}
	}
	return nil
}
