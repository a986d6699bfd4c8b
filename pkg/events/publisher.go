// Package events publishes device-lifecycle CloudEvents to a NATS
// JetStream stream for consumers outside this process. It is optional:
// a relay plane with no NATS configuration simply never constructs a
// Publisher and no events leave the process.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brewlink/relay/pkg/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// CloudEvent is a minimal CloudEvents 1.0 envelope.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject"`
	Time            time.Time   `json:"time"`
	Data            interface{} `json:"data"`
}

// DeviceLifecycleData is the payload of a device_online/device_offline
// CloudEvent.
type DeviceLifecycleData struct {
	DeviceID  string    `json:"deviceId"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes device-lifecycle CloudEvents to a JetStream
// stream. The zero value is not usable; construct with Connect.
type Publisher struct {
	js     jetstream.JetStream
	stream string
	log    logger.Logger
}

// Connect dials natsURL, ensures streamName exists with a
// "device.lifecycle.*" subject, and returns a Publisher plus the
// underlying connection (the caller owns closing it).
func Connect(ctx context.Context, natsURL, streamName string, log logger.Logger) (*Publisher, *nats.Conn, error) {
	if log == nil {
		log = logger.NewTestLogger()
	}

	nc, err := nats.Connect(natsURL,
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Warn().Err(err).Msg("nats connection error")
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.Info().Str("url", conn.ConnectedUrl()).Msg("reconnected to nats")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}

	if _, err := js.Stream(ctx, streamName); err != nil {
		streamConfig := jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{"device.lifecycle.*"},
		}

		if _, err := js.CreateOrUpdateStream(ctx, streamConfig); err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("create or get stream %s: %w", streamName, err)
		}
	}

	return &Publisher{js: js, stream: streamName, log: log}, nc, nil
}

// PublishDeviceOnline publishes a device.lifecycle.online event.
func (p *Publisher) PublishDeviceOnline(ctx context.Context, deviceID string, at time.Time) {
	p.publishLifecycle(ctx, "device.lifecycle.online", "online", deviceID, at)
}

// PublishDeviceOffline publishes a device.lifecycle.offline event.
func (p *Publisher) PublishDeviceOffline(ctx context.Context, deviceID string, at time.Time) {
	p.publishLifecycle(ctx, "device.lifecycle.offline", "offline", deviceID, at)
}

// publishTimeout bounds a single JetStream publish so one slow or
// unreachable broker can't wedge the worker goroutine indefinitely.
const publishTimeout = 5 * time.Second

func (p *Publisher) publishLifecycle(ctx context.Context, subject, state, deviceID string, at time.Time) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	event := CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.NewString(),
		Source:          "brewlink/relay",
		Type:            "link.brew." + state,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            at,
		Data:            DeviceLifecycleData{DeviceID: deviceID, State: state, Timestamp: at},
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("device_id", deviceID).Msg("failed to marshal device lifecycle event")
		return
	}

	if _, err := p.js.Publish(ctx, subject, eventBytes); err != nil {
		p.log.Warn().Err(err).Str("device_id", deviceID).Str("subject", subject).Msg("failed to publish device lifecycle event")
	}
}
