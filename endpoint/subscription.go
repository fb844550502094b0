package endpoint

import "github.com/hupe1980/nodemesh/core"

// Subscription receives messages of type M from one topic.
type Subscription[M any] struct {
	handle core.SubscriptionHandle
	closer *closer
}

// NewSubscription wraps a transport subscription handle. The handle is
// closed by Close or once the subscription becomes unreachable.
func NewSubscription[M any](h core.SubscriptionHandle) *Subscription[M] {
	s := &Subscription[M]{handle: h}
	s.closer = track(s, h.Close)
	return s
}

func (s *Subscription[M]) TopicName() string   { return s.handle.TopicName() }
func (s *Subscription[M]) TypeName() string    { return s.handle.TypeName() }
func (s *Subscription[M]) QoS() core.QoS       { return s.handle.QoS() }
func (s *Subscription[M]) PublisherCount() int { return s.handle.PublisherCount() }

// Close releases the transport handle. Messages the transport has not
// started dispatching are dropped; a callback already running when Close is
// called may still complete after it returns.
func (s *Subscription[M]) Close() error {
	return s.closer.Close()
}

// Decode adapts a typed callback to the transport's serialized callback.
// Messages that fail to decode are passed to onError (if non-nil) and
// dropped.
func Decode[M any](ts *core.TypeSupport, callback func(M, core.MessageInfo), onError func(error)) core.SerializedCallback {
	return func(msg *core.SerializedMessage, info core.MessageInfo) {
		var m M
		if err := ts.Unmarshal(msg.Data, &m); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		callback(m, info)
	}
}

// GenericSubscription receives opaque serialized messages.
type GenericSubscription struct {
	handle core.SubscriptionHandle
	closer *closer
}

// NewGenericSubscription wraps a transport subscription handle.
func NewGenericSubscription(h core.SubscriptionHandle) *GenericSubscription {
	s := &GenericSubscription{handle: h}
	s.closer = track(s, h.Close)
	return s
}

func (s *GenericSubscription) TopicName() string   { return s.handle.TopicName() }
func (s *GenericSubscription) TypeName() string    { return s.handle.TypeName() }
func (s *GenericSubscription) QoS() core.QoS       { return s.handle.QoS() }
func (s *GenericSubscription) PublisherCount() int { return s.handle.PublisherCount() }

// Close releases the transport handle.
func (s *GenericSubscription) Close() error {
	return s.closer.Close()
}
