package events

import (
	"context"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type natsConn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publishes activities on a NATS subject.
type NATSPublisher struct {
	conn    natsConn
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher connects to url and publishes on subject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("taskboard"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.WithField("url", c.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc, nc: nc, subject: subject}, nil
}

// Publish sends payload on the configured subject. The context is unused:
// NATS publishes are buffered by the client.
func (p *NATSPublisher) Publish(_ context.Context, payload []byte) error {
	return p.conn.Publish(p.subject, payload)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
