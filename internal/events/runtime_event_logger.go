package events

import (
	"context"
	"encoding/json"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// runtimeSink is the part of the Wails runtime events are forwarded to.
type runtimeSink struct {
	emit func(ctx context.Context, name string, data ...interface{})
	info func(ctx context.Context, message string)
	warn func(ctx context.Context, message string)
	fail func(ctx context.Context, message string)
}

var wailsSink = runtimeSink{
	emit: runtime.EventsEmit,
	info: runtime.LogInfo,
	warn: runtime.LogWarning,
	fail: runtime.LogError,
}

// forward pushes evt to the frontend and mirrors progress events into the
// runtime log. State snapshots are too large and frequent to log.
func (s runtimeSink) forward(ctx context.Context, name string, evt Event) {
	s.emit(ctx, name, evt)
	if evt.Type == EventState {
		return
	}

	data, err := json.Marshal(evt)
	if err != nil {
		s.fail(ctx, "events: failed to marshal "+name+": "+err.Error())
		return
	}
	switch evt.Type {
	case EventError:
		s.fail(ctx, name+" "+string(data))
	case EventWarn:
		s.warn(ctx, name+" "+string(data))
	default:
		s.info(ctx, name+" "+string(data))
	}
}
