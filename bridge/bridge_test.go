package bridge

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/fieldbus/component"
	"github.com/c360/fieldbus/errors"
	"github.com/c360/fieldbus/event"
)

func TestNewNATSValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "missing url",
			cfg:  Config{Inbound: map[string]string{"telemetry.raw": "frames"}},
		},
		{
			name: "no mappings",
			cfg:  Config{URL: "nats://127.0.0.1:4222"},
		},
		{
			name: "duplicate inbound bus key",
			cfg: Config{
				URL: "nats://127.0.0.1:4222",
				Inbound: map[string]string{
					"telemetry.a": "frames",
					"telemetry.b": "frames",
				},
			},
		},
		{
			name: "bus key mapped both ways",
			cfg: Config{
				URL:      "nats://127.0.0.1:4222",
				Inbound:  map[string]string{"telemetry.raw": "frames"},
				Outbound: map[string]string{"frames": "telemetry.out"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNATS("Bridge0", tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestNATSFields(t *testing.T) {
	b, err := NewNATS("Bridge0", Config{
		URL:      "nats://127.0.0.1:4222",
		Inbound:  map[string]string{"telemetry.raw": "frames"},
		Outbound: map[string]string{"detections": "telemetry.detections"},
	})
	require.NoError(t, err)

	assert.Equal(t, component.KindBare, b.Kind())
	assert.Equal(t, "Bridge0", b.ID())

	fs := b.Fields()
	require.Contains(t, fs.Outputs, "frames")
	require.Contains(t, fs.Inputs, "detections")
	assert.Equal(t, "frames", fs.Outputs["frames"].Key())
	assert.Equal(t, "detections", fs.Inputs["detections"].Key())
}

type recordingPublisher struct {
	published map[string][][]byte
	err       error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	if p.published == nil {
		p.published = make(map[string][][]byte)
	}
	p.published[subject] = append(p.published[subject], data)
	return nil
}

func outboundBridge(t *testing.T) *NATS {
	t.Helper()
	b, err := NewNATS("Bridge0", Config{
		URL:      "nats://127.0.0.1:4222",
		Outbound: map[string]string{"detections": "telemetry.detections"},
	})
	require.NoError(t, err)
	return b
}

func TestPumpFlushesQueueInOrder(t *testing.T) {
	b := outboundBridge(t)
	pub := &recordingPublisher{}
	b.pub = pub

	in := b.inputs["detections"]
	in.Set(event.New("detections", []byte("one")))
	in.Set(event.New("detections", []byte("two")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, b.pump(ctx, in, "telemetry.detections"))

	require.Len(t, pub.published["telemetry.detections"], 2)
	assert.Equal(t, []byte("one"), pub.published["telemetry.detections"][0])
	assert.Equal(t, []byte("two"), pub.published["telemetry.detections"][1])
	assert.Equal(t, 0, in.Len())
}

func TestPumpFinalFlushReportsError(t *testing.T) {
	b := outboundBridge(t)
	pubErr := goerrors.New("connection gone")
	b.pub = &recordingPublisher{err: pubErr}

	in := b.inputs["detections"]
	in.Set(event.New("detections", []byte("one")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A publish failure during the shutdown flush must surface, not be
	// dropped on the floor.
	err := b.pump(ctx, in, "telemetry.detections")
	require.Error(t, err)
	assert.ErrorIs(t, err, pubErr)
	assert.True(t, errors.IsTransient(err))
}

func TestNATSRegistersAsBare(t *testing.T) {
	b, err := NewNATS("Bridge0", Config{
		URL:     "nats://127.0.0.1:4222",
		Inbound: map[string]string{"telemetry.raw": "frames"},
	})
	require.NoError(t, err)

	// A bridge passes kind validation: its queue inputs are not
	// double-buffered, so the registry accepts it as Bare.
	_, err = component.NewRegistry().Register(b)
	require.NoError(t, err)
}
