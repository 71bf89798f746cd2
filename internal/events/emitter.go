package events

import (
	"context"
)

// Emit delivers an event. It is a no-op until an emitter is installed, so
// code paths that emit can run without a Wails runtime.
var Emit = func(ctx context.Context, name string, evt Event) {}

// EnableRuntimeEmitter forwards events to the Wails frontend. ctx passed to
// Emit must then be the Wails application context.
func EnableRuntimeEmitter() {
	useSink(wailsSink)
}

func useSink(sink runtimeSink) {
	Emit = func(ctx context.Context, name string, evt Event) {
		scope(ctx, &evt)
		sink.forward(ctx, name, evt)
	}
}

func SetCustomEmitter(f func(ctx context.Context, name string, evt Event)) {
	if f == nil {
		Emit = func(context.Context, string, Event) {}
		return
	}
	Emit = func(ctx context.Context, name string, evt Event) {
		scope(ctx, &evt)
		f(ctx, name, evt)
	}
}

func scope(ctx context.Context, evt *Event) {
	if evt.SessionID == "" {
		if session := SessionFromContext(ctx); session != "" {
			evt.SessionID = session
		}
	}
}
