package notify

import (
	"context"
	"encoding/json"
	"fmt"

	stan "github.com/nats-io/stan.go"
)

// StanNotifier publishes relist outcome events to a NATS Streaming subject
// so downstream consumers (inventory sync, analytics) can react to listing
// id changes.
type StanNotifier struct {
	conn    stan.Conn
	subject string
}

// NewStanNotifier connects to the NATS Streaming cluster.
func NewStanNotifier(clusterID, clientID, natsURL, subject string) (*StanNotifier, error) {
	sc, err := stan.Connect(clusterID, clientID, stan.NatsURL(natsURL))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats streaming: %w", err)
	}
	return &StanNotifier{conn: sc, subject: subject}, nil
}

// SendOutcome publishes the event as JSON.
func (s *StanNotifier) SendOutcome(_ context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling outcome event: %w", err)
	}
	if err := s.conn.Publish(s.subject, b); err != nil {
		return fmt.Errorf("publishing outcome event: %w", err)
	}
	return nil
}

// Close shuts down the streaming connection.
func (s *StanNotifier) Close() error {
	return s.conn.Close()
}
