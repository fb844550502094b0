package inproc_test

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nodemesh/clock"
	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/node"
	"github.com/hupe1980/nodemesh/transport/inproc"
)

type chatter struct {
	Data string
}

type pose struct {
	X, Y float64
}

type addRequest struct {
	A, B int
}

type addResponse struct {
	Sum int
}

func newDomain(t *testing.T) *inproc.Context {
	t.Helper()
	domain := inproc.NewContext()
	t.Cleanup(func() { _ = domain.Close() })
	return domain
}

func newNode(t *testing.T, domain *inproc.Context, name string) (*node.LifecycleNode, *inproc.Node) {
	t.Helper()
	tn, err := domain.NewNode(name)
	require.NoError(t, err)
	n, err := node.New(node.WithTransport(tn))
	require.NoError(t, err)
	return n, tn
}

func TestTypedRoundTrip(t *testing.T) {
	domain := newDomain(t)
	talker, _ := newNode(t, domain, "talker")
	listener, _ := newNode(t, domain, "listener")

	received := make(chan chatter, 1)
	sub, err := node.CreateSubscription(listener, "/chatter", core.KeepLast(10), func(m chatter) { received <- m })
	require.NoError(t, err)
	pub, err := node.CreatePublisher[chatter](talker, "chatter", core.KeepLast(10))
	require.NoError(t, err)
	assert.Equal(t, "/chatter", pub.TopicName())
	assert.Equal(t, 1, pub.SubscriptionCount())
	assert.Equal(t, 1, sub.PublisherCount())

	require.NoError(t, talker.ActivateEntities())
	require.NoError(t, listener.ActivateEntities())
	require.NoError(t, pub.Publish(chatter{Data: "hello"}))

	select {
	case m := <-received:
		assert.Equal(t, "hello", m.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	runtime.KeepAlive(sub)
}

func TestGenericRoundTrip(t *testing.T) {
	domain := newDomain(t)
	talker, _ := newNode(t, domain, "talker")
	listener, _ := newNode(t, domain, "listener")

	ts, err := core.TypeSupportFor[pose]()
	require.NoError(t, err)

	received := make(chan *core.SerializedMessage, 1)
	gsub, err := node.CreateGenericSubscription(listener, "pose", ts.Name, core.SensorDataQoS(), func(m *core.SerializedMessage) { received <- m })
	require.NoError(t, err)
	gpub, err := node.CreateGenericPublisher(talker, "pose", ts.Name, core.SensorDataQoS())
	require.NoError(t, err)
	require.NoError(t, talker.ActivateEntities())

	sm, err := ts.Serialize(pose{X: 1.5, Y: -2})
	require.NoError(t, err)
	require.NoError(t, gpub.Publish(sm))

	select {
	case m := <-received:
		assert.Equal(t, ts.Name, m.TypeName)
		var p pose
		require.NoError(t, ts.Unmarshal(m.Data, &p))
		assert.Equal(t, pose{X: 1.5, Y: -2}, p)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	assert.Equal(t, "/pose", gsub.TopicName())
}

func TestServiceCall(t *testing.T) {
	domain := newDomain(t)
	server, _ := newNode(t, domain, "adder")
	caller, _ := newNode(t, domain, "caller")

	cli, err := node.CreateClient[addRequest, addResponse](caller, "add", core.ServicesQoS())
	require.NoError(t, err)

	_, err = cli.Call(context.Background(), addRequest{A: 1, B: 2})
	assert.ErrorIs(t, err, inproc.ErrServiceUnavailable)

	srv, err := node.CreateService(server, "add", func(_ context.Context, req addRequest) (addResponse, error) {
		if req.A < 0 {
			return addResponse{}, errors.New("negative operand")
		}
		return addResponse{Sum: req.A + req.B}, nil
	}, core.ServicesQoS())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, cli.WaitForService(ctx, 10*time.Millisecond))

	resp, err := cli.Call(ctx, addRequest{A: 40, B: 2})
	require.NoError(t, err)
	assert.Equal(t, 42, resp.Sum)

	_, err = cli.Call(ctx, addRequest{A: -1})
	var remote *inproc.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "/add", remote.Service)
	assert.Equal(t, "negative operand", remote.Message)

	_, err = node.CreateService(caller, "/add", func(context.Context, addRequest) (addResponse, error) {
		return addResponse{}, nil
	}, core.ServicesQoS())
	assert.ErrorIs(t, err, core.ErrNameConflict)

	require.NoError(t, srv.Close())
	assert.False(t, cli.ServiceIsReady())
}

func TestConstructionErrors(t *testing.T) {
	domain := newDomain(t)
	n, tn := newNode(t, domain, "talker")

	pub, err := node.CreatePublisher[chatter](n, "shared", core.KeepLast(1))
	require.NoError(t, err)

	t.Run("type conflict", func(t *testing.T) {
		_, err := node.CreatePublisher[pose](n, "shared", core.KeepLast(1))
		var tce *core.TransportConstructionError
		require.True(t, errors.As(err, &tce))
		assert.Equal(t, core.KindPublisher, tce.Kind)
		assert.ErrorIs(t, err, core.ErrTypeConflict)

		_, err = node.CreateSubscription(n, "shared", core.KeepLast(1), func(pose) {})
		assert.ErrorIs(t, err, core.ErrTypeConflict)
		assert.Equal(t, 1, n.Registry().Len())
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := node.CreatePublisher[chatter](n, "bad name!", core.KeepLast(1))
		var tce *core.TransportConstructionError
		require.True(t, errors.As(err, &tce))
		assert.ErrorIs(t, err, core.ErrInvalidName)
	})

	t.Run("unknown generic type", func(t *testing.T) {
		_, err := node.CreateGenericPublisher(n, "raw", "unknown_msgs/msg/Nothing", core.KeepLast(1))
		var tce *core.TransportConstructionError
		require.True(t, errors.As(err, &tce))
		assert.Equal(t, "unknown_msgs/msg/Nothing", tce.TypeName)
		assert.ErrorIs(t, err, core.ErrUnsupportedType)
	})

	t.Run("type released with its last endpoint", func(t *testing.T) {
		require.NoError(t, pub.Close())
		assert.NotContains(t, tn.TopicNamesAndTypes(), "/shared")
		other, err := node.CreatePublisher[pose](n, "shared", core.KeepLast(1))
		require.NoError(t, err)
		assert.Equal(t, []string{core.TypeNameOf[pose]()}, tn.TopicNamesAndTypes()["/shared"])
		require.NoError(t, other.Close())
	})
}

func TestTimer(t *testing.T) {
	domain := newDomain(t)
	tn, err := domain.NewNode("ticker")
	require.NoError(t, err)

	mc := clock.NewManual(time.Unix(100, 0))
	var fired atomic.Int32
	h, err := tn.CreateTimer(mc, time.Second, func() { fired.Add(1) }, core.TimerOptions{Autostart: true})
	require.NoError(t, err)
	assert.Equal(t, time.Second, h.TimeUntilTrigger())

	mc.Advance(time.Second)
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	h.Cancel()
	assert.True(t, h.IsCanceled())
	assert.Equal(t, time.Duration(-1), h.TimeUntilTrigger())
	mc.Advance(5 * time.Second)
	assert.Never(t, func() bool { return fired.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	h.Reset()
	mc.Advance(time.Second)
	assert.Eventually(t, func() bool { return fired.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, h.Close())

	_, err = tn.CreateTimer(mc, 0, func() {}, core.TimerOptions{})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestMutuallyExclusiveCallbackGroup(t *testing.T) {
	domain := newDomain(t)
	tn, err := domain.NewNode("worker")
	require.NoError(t, err)

	group := &core.CallbackGroup{Name: "exclusive"}
	mc := clock.NewManual(time.Unix(0, 0))
	var running, overlaps, calls atomic.Int32
	cb := func() {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		calls.Add(1)
	}
	for range 3 {
		_, err := tn.CreateTimer(mc, time.Millisecond, cb, core.TimerOptions{Autostart: true, CallbackGroup: group})
		require.NoError(t, err)
	}
	mc.Advance(time.Millisecond)
	assert.Eventually(t, func() bool { return calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, overlaps.Load())
}

func TestIgnoreLocalPublications(t *testing.T) {
	domain := newDomain(t)
	n, _ := newNode(t, domain, "echo")
	other, _ := newNode(t, domain, "other")

	received := make(chan chatter, 2)
	sub, err := node.CreateSubscription(n, "/loop", core.KeepLast(10), func(m chatter) { received <- m }, func(o *core.SubscriptionOptions) {
		o.IgnoreLocalPublications = true
	})
	require.NoError(t, err)
	local, err := node.CreatePublisher[chatter](n, "/loop", core.KeepLast(10))
	require.NoError(t, err)
	remote, err := node.CreatePublisher[chatter](other, "/loop", core.KeepLast(10))
	require.NoError(t, err)
	require.NoError(t, n.ActivateEntities())
	require.NoError(t, other.ActivateEntities())

	require.NoError(t, local.Publish(chatter{Data: "self"}))
	require.NoError(t, remote.Publish(chatter{Data: "peer"}))

	select {
	case m := <-received:
		assert.Equal(t, "peer", m.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	assert.Never(t, func() bool { return len(received) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	runtime.KeepAlive(sub)
}

func TestNodeAndContextClose(t *testing.T) {
	domain := inproc.NewContext()
	n, tn := newNode(t, domain, "talker")

	pub, err := node.CreatePublisher[chatter](n, "a", core.KeepLast(1))
	require.NoError(t, err)
	gsub, err := node.CreateGenericSubscription(n, "b", core.TypeNameOf[chatter](), core.KeepLast(1), func(*core.SerializedMessage) {})
	require.NoError(t, err)
	assert.Len(t, domain.TopicNames(), 2)

	require.NoError(t, tn.Close())
	assert.Empty(t, domain.TopicNames())
	runtime.KeepAlive(pub)
	runtime.KeepAlive(gsub)

	require.NoError(t, domain.Close())
	_, err = domain.NewNode("late")
	assert.ErrorIs(t, err, core.ErrClosed)
}

func TestSubscriptionClose_DropsQueuedMessages(t *testing.T) {
	domain := newDomain(t)
	talker, _ := newNode(t, domain, "talker")
	listener, _ := newNode(t, domain, "listener")

	entered := make(chan struct{})
	release := make(chan struct{})
	var delivered atomic.Int32
	sub, err := node.CreateSubscription(listener, "chatter", core.KeepLast(10), func(chatter) {
		if delivered.Add(1) == 1 {
			close(entered)
			<-release
		}
	})
	require.NoError(t, err)
	pub, err := node.CreatePublisher[chatter](talker, "chatter", core.KeepLast(10))
	require.NoError(t, err)
	require.NoError(t, talker.ActivateEntities())
	require.NoError(t, listener.ActivateEntities())

	require.NoError(t, pub.Publish(chatter{Data: "first"}))
	require.NoError(t, pub.Publish(chatter{Data: "second"}))

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	require.NoError(t, sub.Close())
	close(release)

	assert.Never(t, func() bool { return delivered.Load() > 1 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestNewNode_ValidatesNames(t *testing.T) {
	domain := newDomain(t)
	_, err := domain.NewNode("9lives")
	assert.ErrorIs(t, err, core.ErrInvalidName)

	_, err = domain.NewNode("arm", func(o *inproc.NodeOptions) { o.Namespace = "robot" })
	assert.ErrorIs(t, err, core.ErrInvalidName)

	tn, err := domain.NewNode("arm", func(o *inproc.NodeOptions) { o.Namespace = "/robot" })
	require.NoError(t, err)
	assert.Equal(t, "/robot/arm", tn.FullyQualifiedName())
	resolved, err := tn.ResolveTopicName("~/state")
	require.NoError(t, err)
	assert.Equal(t, "/robot/arm/state", resolved)
}
