package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan FrameProgressEvent, 1)

	unsub := bus.Subscribe(func(e FrameProgressEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(FrameProgressEvent{RunID: "run-1", Frame: 120, TotalFrames: 1000})

	select {
	case got := <-received:
		if got.RunID != "run-1" || got.Frame != 120 {
			t.Errorf("received %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan EncodeFinishedEvent, 1)
	received2 := make(chan EncodeFinishedEvent, 1)

	defer bus.Subscribe(func(e EncodeFinishedEvent) { received1 <- e })()
	defer bus.Subscribe(func(e EncodeFinishedEvent) { received2 <- e })()

	bus.Publish(EncodeFinishedEvent{RunID: "r", ExitCode: 1, State: "failed"})

	for _, ch := range []chan EncodeFinishedEvent{received1, received2} {
		select {
		case e := <-ch:
			if e.ExitCode != 1 {
				t.Errorf("ExitCode = %d", e.ExitCode)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber missed event")
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan EncodeStartedEvent, 1)

	unsub := bus.Subscribe(func(e EncodeStartedEvent) {
		received <- e
	})

	bus.Publish(EncodeStartedEvent{RunID: "a"})
	<-received

	unsub()

	bus.Publish(EncodeStartedEvent{RunID: "b"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)
	defer SubscribeToChannel[EncodeFinishedEvent](bus, ch)()

	bus.Publish(EncodeFinishedEvent{RunID: "x"})
	// Second event is dropped because the channel is full.
	bus.Publish(EncodeFinishedEvent{RunID: "y"})

	select {
	case e := <-ch:
		if _, ok := e.(EncodeFinishedEvent); !ok {
			t.Fatalf("unexpected %T", e)
		}
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}
}
