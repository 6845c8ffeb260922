// Package bridge connects the in-process event bus to external systems.
//
// The NATS bridge is a Bare component: the framework only brackets it with
// Setup and Cleanup, everything in between runs on goroutines the bridge
// owns. Inbound NATS messages become bus events, and bus events staged on
// the bridge's input queues are published to NATS subjects.
package bridge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/c360/fieldbus/component"
	"github.com/c360/fieldbus/errors"
	"github.com/c360/fieldbus/field"
)

// defaultFlushInterval is how often outbound queues are drained to NATS.
const defaultFlushInterval = 10 * time.Millisecond

// Config maps NATS subjects to bus keys and back.
type Config struct {
	// URL is the NATS server address ("nats://127.0.0.1:4222").
	URL string `yaml:"url"`

	// Inbound maps NATS subjects to bus keys: every message received on
	// the subject is pushed onto the bus under the key, payload as-is.
	Inbound map[string]string `yaml:"inbound"`

	// Outbound maps bus keys to NATS subjects: every event delivered to
	// the bridge under the key is published to the subject.
	Outbound map[string]string `yaml:"outbound"`

	// FlushInterval is the outbound poll period. Defaults to 10ms.
	FlushInterval time.Duration `yaml:"flush_interval"`
}

func (c Config) validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "bridge", "validate",
			"url required")
	}
	if len(c.Inbound)+len(c.Outbound) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "bridge", "validate",
			"at least one inbound or outbound mapping required")
	}
	seen := make(map[string]struct{})
	for _, key := range c.Inbound {
		if _, dup := seen[key]; dup {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "bridge", "validate",
				"duplicate bus key "+key)
		}
		seen[key] = struct{}{}
	}
	for key := range c.Outbound {
		if _, dup := seen[key]; dup {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "bridge", "validate",
				"bus key "+key+" mapped both inbound and outbound")
		}
		seen[key] = struct{}{}
	}
	return nil
}

// publisher is the subset of *nats.Conn the outbound pumps use.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATS bridges the bus to a NATS server. Payloads cross the bridge as raw
// bytes; components on either side own the encoding.
type NATS struct {
	component.Base
	cfg      Config
	identity string

	// outputs push inbound NATS payloads onto the bus, one per bus key.
	outputs map[string]*field.Output[[]byte]
	// inputs collect outbound bus events, one queue per bus key.
	inputs map[string]*field.InputQueue[[]byte]

	conn   *nats.Conn
	pub    publisher
	subs   []*nats.Subscription
	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewNATS creates a NATS bridge component. The id should come from the
// application's IDSequence like any other component id.
func NewNATS(id string, cfg Config) (*NATS, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}

	b := &NATS{
		Base:     component.NewBase(id),
		cfg:      cfg,
		identity: "fieldbus-" + uuid.NewString(),
		outputs:  make(map[string]*field.Output[[]byte]),
		inputs:   make(map[string]*field.InputQueue[[]byte]),
	}
	for _, key := range cfg.Inbound {
		b.outputs[key] = field.NewOutput[[]byte](key)
	}
	for key := range cfg.Outbound {
		b.inputs[key] = field.NewInputQueue[[]byte](key)
	}
	return b, nil
}

// Kind implements component.Component.
func (b *NATS) Kind() component.Kind { return component.KindBare }

// Fields implements component.SubComponent. Field names reuse the bus keys.
func (b *NATS) Fields() component.FieldSet {
	fs := component.FieldSet{
		Inputs:  make(map[string]field.Input, len(b.inputs)),
		Outputs: make(map[string]field.Emitter, len(b.outputs)),
	}
	for key, in := range b.inputs {
		fs.Inputs[key] = in
	}
	for key, out := range b.outputs {
		fs.Outputs[key] = out
	}
	return fs
}

// Setup connects, subscribes the inbound subjects and starts one pump
// goroutine per outbound mapping.
func (b *NATS) Setup(ctx context.Context) error {
	conn, err := nats.Connect(b.cfg.URL, nats.Name(b.identity))
	if err != nil {
		return errors.WrapTransient(err, b.ID(), "Setup", "nats connect")
	}
	b.conn = conn
	b.pub = conn

	for subject, key := range b.cfg.Inbound {
		out := b.outputs[key]
		sub, err := conn.Subscribe(subject, func(m *nats.Msg) {
			out.Push(m.Data)
		})
		if err != nil {
			conn.Close()
			return errors.WrapTransient(err, b.ID(), "Setup", "subscribe "+subject)
		}
		b.subs = append(b.subs, sub)
	}

	groupCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.group, groupCtx = errgroup.WithContext(groupCtx)
	for key, subject := range b.cfg.Outbound {
		in := b.inputs[key]
		b.group.Go(func() error {
			return b.pump(groupCtx, in, subject)
		})
	}
	return nil
}

// pump drains one outbound queue to its subject until the context ends.
func (b *NATS) pump(ctx context.Context, in *field.InputQueue[[]byte], subject string) error {
	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// The last flush still reports failures: its error comes
			// back out of Cleanup via the errgroup.
			return b.flush(in, subject)
		case <-ticker.C:
			if err := b.flush(in, subject); err != nil {
				return err
			}
		}
	}
}

func (b *NATS) flush(in *field.InputQueue[[]byte], subject string) error {
	for {
		data, ok := in.PopValue()
		if !ok {
			return nil
		}
		if err := b.pub.Publish(subject, data); err != nil {
			return errors.WrapTransient(err, b.ID(), "pump", "publish "+subject)
		}
	}
}

// Cleanup stops the pumps, drains the subscriptions and closes the
// connection. Pump errors surface here and escalate like any other
// component failure.
func (b *NATS) Cleanup(context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	var pumpErr error
	if b.group != nil {
		pumpErr = b.group.Wait()
	}
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	if b.conn != nil {
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
		}
	}
	return pumpErr
}
