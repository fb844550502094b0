package endpoint

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/internal/testutil"
)

type reading struct {
	Sensor string  `msgpack:"sensor"`
	Value  float64 `msgpack:"value"`
}

type doubleRequest struct {
	N int `msgpack:"n"`
}

type doubleResponse struct {
	N int `msgpack:"n"`
}

func typeSupport(t *testing.T) *core.TypeSupport {
	t.Helper()
	ts, err := core.TypeSupportFor[reading]()
	require.NoError(t, err)
	return ts
}

func TestPublisherSubscriptionRoundTrip(t *testing.T) {
	ft := testutil.NewFakeTransport("sensor")
	ts := typeSupport(t)

	var got []reading
	sh, err := ft.CreateSubscription("readings", ts, core.SensorDataQoS(),
		Decode(ts, func(m reading, _ core.MessageInfo) { got = append(got, m) }, nil), core.SubscriptionOptions{})
	require.NoError(t, err)
	sub := NewSubscription[reading](sh)

	ph, err := ft.CreatePublisher("readings", ts, core.SensorDataQoS(), core.PublisherOptions{})
	require.NoError(t, err)
	pub := NewPublisher[reading](ph, ts)

	require.NoError(t, pub.Publish(reading{Sensor: "imu", Value: 0.5}))
	assert.Equal(t, []reading{{Sensor: "imu", Value: 0.5}}, got)
	assert.Equal(t, "/readings", pub.TopicName())
	assert.Equal(t, ts.Name, pub.TypeName())
	assert.Equal(t, 1, pub.SubscriptionCount())
	assert.Equal(t, 1, sub.PublisherCount())

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Equal(t, 0, pub.SubscriptionCount())

	require.NoError(t, pub.Close())
	assert.ErrorIs(t, pub.Publish(reading{}), ErrClosed)
	assert.ErrorIs(t, pub.Publish(reading{}), core.ErrClosed)
	assert.Equal(t, 2, ft.ClosedHandles())
}

func TestDecodeReportsBadPayload(t *testing.T) {
	ts := typeSupport(t)
	var decodeErr error
	cb := Decode(ts, func(reading, core.MessageInfo) { t.Fatal("callback must not run") }, func(err error) { decodeErr = err })
	cb(&core.SerializedMessage{TypeName: ts.Name, Data: []byte{0xc1}}, core.MessageInfo{})
	assert.Error(t, decodeErr)
}

func TestGenericPublisher(t *testing.T) {
	ft := testutil.NewFakeTransport("sensor")
	ts := typeSupport(t)

	var got []*core.SerializedMessage
	sh, err := ft.CreateSubscription("readings", ts, core.SystemDefaultsQoS(),
		func(m *core.SerializedMessage, _ core.MessageInfo) { got = append(got, m) }, core.SubscriptionOptions{})
	require.NoError(t, err)
	gsub := NewGenericSubscription(sh)
	assert.Equal(t, ts.Name, gsub.TypeName())

	ph, err := ft.CreatePublisher("readings", ts, core.SystemDefaultsQoS(), core.PublisherOptions{})
	require.NoError(t, err)
	gpub := NewGenericPublisher(ph)

	sm, err := ts.Serialize(reading{Sensor: "gps"})
	require.NoError(t, err)
	require.NoError(t, gpub.Publish(sm))
	require.NoError(t, gpub.Publish(&core.SerializedMessage{Data: sm.Data}))
	require.Len(t, got, 2)
	assert.Equal(t, ts.Name, got[1].TypeName)

	err = gpub.Publish(&core.SerializedMessage{TypeName: "other/msg/Type", Data: sm.Data})
	assert.ErrorIs(t, err, core.ErrTypeConflict)
	assert.ErrorIs(t, gpub.Publish(nil), core.ErrInvalidArgument)
	runtime.KeepAlive(gsub)
}

func TestTimer(t *testing.T) {
	ft := testutil.NewFakeTransport("sensor")
	calls := 0
	h, err := ft.CreateTimer(ft.Clock(), 100*time.Millisecond, func() { calls++ }, core.TimerOptions{Autostart: true})
	require.NoError(t, err)
	tm := NewTimer(h, core.ClockROSTime)
	fake := ft.Timers()[0]

	assert.Equal(t, 100*time.Millisecond, tm.Period())
	assert.True(t, fake.Fire())

	tm.Cancel()
	assert.True(t, tm.IsCanceled())
	assert.Negative(t, tm.TimeUntilTrigger())
	assert.False(t, fake.Fire())

	tm.Reset()
	assert.True(t, fake.Fire())
	assert.Equal(t, 2, calls)

	require.NoError(t, tm.Close())
	assert.False(t, fake.Fire())
}

func TestClientService(t *testing.T) {
	ft := testutil.NewFakeTransport("calc")
	sts, err := core.ServiceTypeSupportFor[doubleRequest, doubleResponse]()
	require.NoError(t, err)

	sh, err := ft.CreateService("double", sts, core.ServicesQoS(), Handle(sts, func(_ context.Context, req doubleRequest) (doubleResponse, error) {
		if req.N < 0 {
			return doubleResponse{}, fmt.Errorf("negative input")
		}
		return doubleResponse{N: 2 * req.N}, nil
	}), core.ServiceOptions{})
	require.NoError(t, err)
	srv := NewService[doubleRequest, doubleResponse](sh)

	ch, err := ft.CreateClient("double", sts, core.ServicesQoS(), core.ClientOptions{})
	require.NoError(t, err)
	cli := NewClient[doubleRequest, doubleResponse](ch, sts)

	ctx := context.Background()
	require.NoError(t, cli.WaitForService(ctx, time.Millisecond))
	resp, err := cli.Call(ctx, doubleRequest{N: 21})
	require.NoError(t, err)
	assert.Equal(t, 42, resp.N)

	_, err = cli.Call(ctx, doubleRequest{N: -1})
	assert.Error(t, err)

	require.NoError(t, srv.Close())
	assert.False(t, cli.ServiceIsReady())

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.True(t, errors.Is(cli.WaitForService(waitCtx, time.Millisecond), context.DeadlineExceeded))

	require.NoError(t, cli.Close())
	_, err = cli.Call(ctx, doubleRequest{N: 1})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStatisticsCollector(t *testing.T) {
	ft := testutil.NewFakeTransport("sensor")
	clk := ft.ManualClock()
	start := clk.Now()
	c := NewStatisticsCollector("/sensor", "/readings", clk)

	for i := 0; i < 3; i++ {
		sent := clk.Now()
		clk.Advance(10 * time.Millisecond)
		c.Observe(core.MessageInfo{SourceTimestamp: sent})
	}

	metrics := c.Snapshot()
	require.Len(t, metrics, 2)

	period := metrics[0]
	assert.Equal(t, MetricMessagePeriod, period.MetricsSource)
	assert.Equal(t, "/sensor", period.MeasurementSource)
	assert.Equal(t, start, period.WindowStart)
	assert.Equal(t, 2.0, stat(period, StatSampleCount))
	assert.InDelta(t, 10.0, stat(period, StatAverage), 1e-9)

	age := metrics[1]
	assert.Equal(t, 3.0, stat(age, StatSampleCount))
	assert.InDelta(t, 10.0, stat(age, StatMaximum), 1e-9)
	assert.InDelta(t, 0.0, stat(age, StatStdDev), 1e-9)

	next := c.Snapshot()
	assert.Equal(t, 0.0, stat(next[0], StatSampleCount))
}

func stat(m core.MetricsMessage, kind string) float64 {
	for _, dp := range m.Statistics {
		if dp.Kind == kind {
			return dp.Value
		}
	}
	return -1
}
