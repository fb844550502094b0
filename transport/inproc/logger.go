package inproc

import (
	"maps"
	"slices"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/hupe1980/nodemesh/logging"
)

// watermillLogger routes watermill's log output into a logging.Logger.
// Watermill info messages are per-message chatter and go to debug; trace
// output is dropped.
type watermillLogger struct {
	logger logging.Logger
	fields watermill.LogFields
}

var _ watermill.LoggerAdapter = (*watermillLogger)(nil)

func newWatermillLogger(l logging.Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: logging.OrNoOp(l)}
}

func (w *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.logger.Error(msg, w.args(fields, "error", err)...)
}

func (w *watermillLogger) Info(msg string, fields watermill.LogFields)  { w.logger.Debug(msg, w.args(fields)...) }
func (w *watermillLogger) Debug(msg string, fields watermill.LogFields) { w.logger.Debug(msg, w.args(fields)...) }
func (w *watermillLogger) Trace(string, watermill.LogFields)            {}

func (w *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{logger: w.logger, fields: w.fields.Add(fields)}
}

func (w *watermillLogger) args(fields watermill.LogFields, extra ...any) []any {
	merged := w.fields.Add(fields)
	out := make([]any, 0, 2*len(merged)+len(extra))
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		out = append(out, k, merged[k])
	}
	return append(out, extra...)
}
