package core

import (
	"fmt"
	"time"
)

// HistoryPolicy controls how many samples are retained.
type HistoryPolicy int

const (
	HistorySystemDefault HistoryPolicy = iota
	HistoryKeepLast
	HistoryKeepAll
)

// ReliabilityPolicy controls delivery guarantees.
type ReliabilityPolicy int

const (
	ReliabilitySystemDefault ReliabilityPolicy = iota
	ReliabilityReliable
	ReliabilityBestEffort
)

// DurabilityPolicy controls whether late joiners receive past samples.
type DurabilityPolicy int

const (
	DurabilitySystemDefault DurabilityPolicy = iota
	DurabilityTransientLocal
	DurabilityVolatile
)

// LivelinessPolicy controls how publisher liveliness is asserted.
type LivelinessPolicy int

const (
	LivelinessSystemDefault LivelinessPolicy = iota
	LivelinessAutomatic
	LivelinessManualByTopic
)

// Profile is the legacy, plain-struct QoS form. Older call sites pass a
// Profile directly; new code uses QoS.
type Profile struct {
	History                      HistoryPolicy
	Depth                        int
	Reliability                  ReliabilityPolicy
	Durability                   DurabilityPolicy
	Deadline                     time.Duration
	Lifespan                     time.Duration
	Liveliness                   LivelinessPolicy
	LivelinessLeaseDuration      time.Duration
	AvoidROSNamespaceConventions bool
}

// Legacy profiles.
var (
	ProfileDefault = Profile{
		History:     HistoryKeepLast,
		Depth:       10,
		Reliability: ReliabilityReliable,
		Durability:  DurabilityVolatile,
	}
	ProfileSensorData = Profile{
		History:     HistoryKeepLast,
		Depth:       5,
		Reliability: ReliabilityBestEffort,
		Durability:  DurabilityVolatile,
	}
	ProfileServicesDefault = Profile{
		History:     HistoryKeepLast,
		Depth:       10,
		Reliability: ReliabilityReliable,
		Durability:  DurabilityVolatile,
	}
	ProfileParameterEvents = Profile{
		History:     HistoryKeepLast,
		Depth:       1000,
		Reliability: ReliabilityReliable,
		Durability:  DurabilityVolatile,
	}
	ProfileSystemDefault = Profile{
		History: HistorySystemDefault,
	}
)

// QoS is the quality of service specification of a channel. It is an opaque
// value for the core and is handed to the transport unchanged. Builder
// methods return modified copies.
type QoS struct {
	profile Profile
}

// KeepLast returns the default QoS with keep-last history of the given depth.
func KeepLast(depth int) QoS {
	p := ProfileDefault
	p.History = HistoryKeepLast
	p.Depth = depth
	return QoS{profile: p}
}

// KeepAll returns the default QoS with keep-all history.
func KeepAll() QoS {
	p := ProfileDefault
	p.History = HistoryKeepAll
	p.Depth = 0
	return QoS{profile: p}
}

// QoSFromProfile adopts a legacy profile. A keep-last profile with zero depth
// is normalized to depth 1.
func QoSFromProfile(p Profile) QoS {
	if p.History == HistoryKeepLast && p.Depth <= 0 {
		p.Depth = 1
	}
	return QoS{profile: p}
}

// Preset QoS values.
func SystemDefaultsQoS() QoS  { return QoS{profile: ProfileSystemDefault} }
func SensorDataQoS() QoS      { return QoSFromProfile(ProfileSensorData) }
func ServicesQoS() QoS        { return QoSFromProfile(ProfileServicesDefault) }
func ParameterEventsQoS() QoS { return QoSFromProfile(ProfileParameterEvents) }

// Profile returns the legacy profile form.
func (q QoS) Profile() Profile { return q.profile }

func (q QoS) History() HistoryPolicy             { return q.profile.History }
func (q QoS) Depth() int                         { return q.profile.Depth }
func (q QoS) Reliability() ReliabilityPolicy     { return q.profile.Reliability }
func (q QoS) Durability() DurabilityPolicy       { return q.profile.Durability }
func (q QoS) Deadline() time.Duration            { return q.profile.Deadline }
func (q QoS) Lifespan() time.Duration            { return q.profile.Lifespan }
func (q QoS) Liveliness() LivelinessPolicy       { return q.profile.Liveliness }
func (q QoS) LeaseDuration() time.Duration       { return q.profile.LivelinessLeaseDuration }
func (q QoS) AvoidROSNamespaceConventions() bool { return q.profile.AvoidROSNamespaceConventions }

// Reliable sets reliable delivery.
func (q QoS) Reliable() QoS {
	q.profile.Reliability = ReliabilityReliable
	return q
}

// BestEffort sets best-effort delivery.
func (q QoS) BestEffort() QoS {
	q.profile.Reliability = ReliabilityBestEffort
	return q
}

// TransientLocal retains samples for late-joining subscriptions.
func (q QoS) TransientLocal() QoS {
	q.profile.Durability = DurabilityTransientLocal
	return q
}

// DurabilityVolatile drops samples for late joiners.
func (q QoS) DurabilityVolatile() QoS {
	q.profile.Durability = DurabilityVolatile
	return q
}

// WithDeadline sets the expected maximum period between samples.
func (q QoS) WithDeadline(d time.Duration) QoS {
	q.profile.Deadline = d
	return q
}

// WithLifespan sets the maximum age of a delivered sample.
func (q QoS) WithLifespan(d time.Duration) QoS {
	q.profile.Lifespan = d
	return q
}

// String renders a compact description for logs.
func (q QoS) String() string {
	hist := "system_default"
	switch q.profile.History {
	case HistoryKeepLast:
		hist = fmt.Sprintf("keep_last(%d)", q.profile.Depth)
	case HistoryKeepAll:
		hist = "keep_all"
	}
	rel := "system_default"
	switch q.profile.Reliability {
	case ReliabilityReliable:
		rel = "reliable"
	case ReliabilityBestEffort:
		rel = "best_effort"
	}
	dur := "system_default"
	switch q.profile.Durability {
	case DurabilityTransientLocal:
		dur = "transient_local"
	case DurabilityVolatile:
		dur = "volatile"
	}
	return fmt.Sprintf("%s/%s/%s", hist, rel, dur)
}
