package metrics

import (
	"github.com/smazurov/spyglass/internal/events"
)

// Subscribe keeps the state metrics in step with bus events.
// Frame counters are updated directly by the capture pipeline.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.StreamClientEvent) {
			switch e.Action {
			case events.ClientConnected:
				StreamClientConnected()
			case events.ClientDisconnected:
				StreamClientDisconnected(e.Bytes)
			}
		}),
		bus.Subscribe(func(e events.RecordingStateChangedEvent) {
			SetRecording(e.Recording)
		}),
		bus.Subscribe(func(e events.ConfigChangedEvent) {
			IncrementConfigChanges(e.Source)
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
