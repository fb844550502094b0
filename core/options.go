package core

import "time"

// CallbackGroup groups callbacks for scheduling. The core never interprets it;
// transports may use it to serialize callbacks of a mutually exclusive group.
type CallbackGroup struct {
	Name      string
	Reentrant bool
}

// IntraProcessSetting selects intra-process delivery.
type IntraProcessSetting int

const (
	IntraProcessNodeDefault IntraProcessSetting = iota
	IntraProcessEnable
	IntraProcessDisable
)

// PublisherOptions are passed through to the transport unchanged.
type PublisherOptions struct {
	CallbackGroup *CallbackGroup
	IntraProcess  IntraProcessSetting
	// Allocator is an opaque transport specific allocation hint.
	Allocator any
}

// MessageMemoryStrategy hands out receive buffers to the transport.
type MessageMemoryStrategy interface {
	Borrow(size int) []byte
	Return(buf []byte)
}

// DefaultMemoryStrategy allocates a fresh buffer per message.
type DefaultMemoryStrategy struct{}

// Borrow allocates size bytes.
func (DefaultMemoryStrategy) Borrow(size int) []byte { return make([]byte, size) }

// Return drops the buffer.
func (DefaultMemoryStrategy) Return([]byte) {}

// TopicStatisticsOptions configures periodic publication of subscription
// statistics.
type TopicStatisticsOptions struct {
	Enabled       bool
	PublishTopic  string
	PublishPeriod time.Duration
}

// DefaultTopicStatisticsOptions returns disabled statistics publishing to
// /statistics once per second.
func DefaultTopicStatisticsOptions() TopicStatisticsOptions {
	return TopicStatisticsOptions{PublishTopic: "/statistics", PublishPeriod: time.Second}
}

// SubscriptionOptions are passed through to the transport unchanged, except
// TopicStatistics which the factory acts on.
type SubscriptionOptions struct {
	CallbackGroup           *CallbackGroup
	IntraProcess            IntraProcessSetting
	IgnoreLocalPublications bool
	// MemoryStrategy is threaded to the transport; nil selects DefaultMemoryStrategy.
	MemoryStrategy  MessageMemoryStrategy
	TopicStatistics TopicStatisticsOptions
	Allocator       any
}

// TimerOptions configure a timer.
type TimerOptions struct {
	CallbackGroup *CallbackGroup
	// Autostart starts the timer immediately; otherwise it is created canceled.
	Autostart bool
}

// ClientOptions configure a remote-call client.
type ClientOptions struct {
	CallbackGroup *CallbackGroup
}

// ServiceOptions configure a remote-call server.
type ServiceOptions struct {
	CallbackGroup *CallbackGroup
}
