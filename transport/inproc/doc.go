// Package inproc is the default transport: every node created from one
// Context shares a watermill gochannel bus.
//
// Topic payloads travel as msgpack bytes in watermill messages; metadata
// carries the type name, publisher GID, sequence number and source
// timestamp. A remote call is a message on "rq<service>Request" answered on
// the client's private reply topic, correlated by request id.
//
// Delivery is asynchronous and unordered across messages. Callbacks of one
// endpoint run on that endpoint's goroutine; callbacks sharing a mutually
// exclusive core.CallbackGroup never run concurrently.
package inproc
