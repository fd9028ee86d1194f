package processor

import "github.com/c360/neurostream/neural"

// Sink consumes classification results. Deliver is called from the
// dispatcher goroutine; implementations that block slow down fan-out for
// all sinks and should buffer internally.
type Sink interface {
	// Deliver hands one result to the sink. Errors are logged and counted
	// but do not stop the pipeline.
	Deliver(r neural.Result) error

	// Name identifies the sink for logging.
	Name() string
}

// AlertSink consumes escalated alert events. Alerts bypass the result
// queue: they are delivered synchronously from the failing pipeline so a
// saturated queue cannot delay them.
type AlertSink interface {
	DeliverAlert(a neural.Alert) error
	Name() string
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc struct {
	SinkName string
	Fn       func(r neural.Result) error
}

// Deliver calls the wrapped function.
func (s SinkFunc) Deliver(r neural.Result) error { return s.Fn(r) }

// Name returns the sink name.
func (s SinkFunc) Name() string { return s.SinkName }

// AlertSinkFunc adapts a function to the AlertSink interface.
type AlertSinkFunc struct {
	SinkName string
	Fn       func(a neural.Alert) error
}

// DeliverAlert calls the wrapped function.
func (s AlertSinkFunc) DeliverAlert(a neural.Alert) error { return s.Fn(a) }

// Name returns the sink name.
func (s AlertSinkFunc) Name() string { return s.SinkName }
