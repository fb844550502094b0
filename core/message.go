package core

import "time"

// SerializedMessage is an opaque, already encoded payload.
type SerializedMessage struct {
	TypeName string
	Data     []byte
}

// Len returns the payload size in bytes.
func (m *SerializedMessage) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Data)
}

// MessageInfo carries delivery metadata alongside a received message.
type MessageInfo struct {
	PublisherGID      string
	SequenceNumber    uint64
	SourceTimestamp   time.Time
	ReceivedTimestamp time.Time
	FromIntraProcess  bool
}

// StatisticDataPoint is one measured statistic.
type StatisticDataPoint struct {
	Kind  string  `msgpack:"kind"`
	Value float64 `msgpack:"value"`
}

// MetricsMessage is published by subscriptions with topic statistics enabled.
type MetricsMessage struct {
	MeasurementSource string               `msgpack:"measurement_source"`
	MetricsSource     string               `msgpack:"metrics_source"`
	Unit              string               `msgpack:"unit"`
	WindowStart       time.Time            `msgpack:"window_start"`
	WindowStop        time.Time            `msgpack:"window_stop"`
	Statistics        []StatisticDataPoint `msgpack:"statistics"`
}

// MessageTypeName implements Named.
func (MetricsMessage) MessageTypeName() string { return "statistics_msgs/msg/MetricsMessage" }
