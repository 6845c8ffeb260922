package field

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/fieldbus/event"
)

func TestAveragingRequiresCountOrInterval(t *testing.T) {
	_, err := NewAveraging[Scalar]("out")
	require.Error(t, err)

	_, err = NewAveraging[Scalar]("out", WithCount(4))
	require.NoError(t, err)

	_, err = NewAveraging[Scalar]("out", WithInterval(time.Second))
	require.NoError(t, err)
}

func TestAveragingByCount(t *testing.T) {
	var got []event.Event
	o, err := NewAveraging[Scalar]("out", WithCount(4))
	require.NoError(t, err)
	o.Bind(event.SinkFunc(func(e event.Event) { got = append(got, e) }))

	for i := 0; i < 8; i++ {
		o.Push(Scalar(i))
	}

	require.Len(t, got, 2)
	assert.Equal(t, Scalar(1.5), got[0].Value)
	assert.Equal(t, Scalar(5.5), got[1].Value)
	assert.Equal(t, 0, o.Pending())
}

func TestAveragingByInterval(t *testing.T) {
	var got []event.Event
	o, err := NewAveraging[Scalar]("out", WithInterval(30*time.Millisecond))
	require.NoError(t, err)
	o.Bind(event.SinkFunc(func(e event.Event) { got = append(got, e) }))

	o.Push(2)
	o.Push(4)
	assert.Empty(t, got, "no emission before interval elapses")

	time.Sleep(50 * time.Millisecond)
	o.Push(6)

	require.Len(t, got, 1)
	assert.Equal(t, Scalar(4), got[0].Value)
}

func TestAveragingNoEmissionWithoutPush(t *testing.T) {
	var got []event.Event
	o, err := NewAveraging[Scalar]("out", WithInterval(10*time.Millisecond))
	require.NoError(t, err)
	o.Bind(event.SinkFunc(func(e event.Event) { got = append(got, e) }))

	o.Push(1)
	time.Sleep(30 * time.Millisecond)

	// The interval has long elapsed, but the check only happens inside Push.
	assert.Empty(t, got)
}

func TestAveragingWhicheverFirst(t *testing.T) {
	var got []event.Event
	o, err := NewAveraging[Scalar]("out", WithCount(100), WithInterval(20*time.Millisecond))
	require.NoError(t, err)
	o.Bind(event.SinkFunc(func(e event.Event) { got = append(got, e) }))

	o.Push(1)
	time.Sleep(40 * time.Millisecond)
	o.Push(3)

	require.Len(t, got, 1, "interval emission must not wait for count")
	assert.Equal(t, Scalar(2), got[0].Value)
}
