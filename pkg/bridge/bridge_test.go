package bridge

import (
	"context"
	"strings"
	"testing"

	"Tapflow/pkg/types"
)

func TestBusSubscribePublish(t *testing.T) {
	bus := NewBus()

	var got []TouchEvent
	unsubscribe := bus.Subscribe(EventTouch, func(ev Event) {
		got = append(got, ev.(TouchEvent))
	})

	bus.Publish(TouchEvent{Type: TouchDown, X: 1, Y: 2})
	bus.Publish(DeviceInfoEvent{Width: 100, Height: 200})

	if len(got) != 1 || got[0].X != 1 {
		t.Fatalf("Expected one touch event, got %+v", got)
	}

	unsubscribe()
	unsubscribe()
	bus.Publish(TouchEvent{Type: TouchUp})
	if len(got) != 1 {
		t.Errorf("Handler called after unsubscribe")
	}
	if n := bus.SubscriberCount(EventTouch); n != 0 {
		t.Errorf("Expected 0 subscribers, got %d", n)
	}
}

func TestBusUnsubscribeKeepsOthers(t *testing.T) {
	bus := NewBus()
	var a, b int
	unA := bus.Subscribe(EventTouch, func(Event) { a++ })
	bus.Subscribe(EventTouch, func(Event) { b++ })

	unA()
	bus.Publish(TouchEvent{})

	if a != 0 || b != 1 {
		t.Errorf("a=%d b=%d, want 0 and 1", a, b)
	}
}

func TestEncodeDecode(t *testing.T) {
	pressure := 0.4
	in := TouchEvent{Type: TouchMove, X: 10, Y: 20, Timestamp: 1234, Pressure: &pressure, PointerType: "finger"}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `"event":"touch"`) {
		t.Errorf("Expected event name in %s", data)
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ev, ok := out.(TouchEvent)
	if !ok {
		t.Fatalf("Expected TouchEvent, got %T", out)
	}
	if ev.X != 10 || ev.Timestamp != 1234 || ev.Pressure == nil || *ev.Pressure != 0.4 {
		t.Errorf("unexpected decoded event %+v", ev)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []string{
		`not json`,
		`{"event":"touch"}`,
		`{"event":"bogus","payload":{}}`,
		`{"event":"touch","payload":{"x":"nope"}}`,
	}
	for _, in := range tests {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("Decode(%s) expected error", in)
		}
	}
}

func TestDeviceInfoDerivesOrientation(t *testing.T) {
	d := DeviceInfoEvent{Width: 2400, Height: 1080}.DeviceInfo()
	if d.Orientation != types.OrientationLandscape {
		t.Errorf("Expected landscape, got %s", d.Orientation)
	}
}

func TestPump(t *testing.T) {
	input := strings.Join([]string{
		`{"event":"device_info","payload":{"width":1080,"height":1920,"orientation":"portrait"}}`,
		`garbage`,
		``,
		`{"event":"touch","payload":{"type":"tap","x":5,"y":6,"timestamp":10}}`,
		`{"event":"screen_texts","payload":{"elements":[{"text":"OK","x":1,"y":2,"width":3,"height":4}]}}`,
	}, "\n")

	bus := NewBus()
	var names []EventName
	for _, n := range []EventName{EventTouch, EventDeviceInfo, EventScreenTexts} {
		bus.Subscribe(n, func(ev Event) { names = append(names, ev.EventName()) })
	}

	if err := Pump(context.Background(), strings.NewReader(input), bus); err != nil {
		t.Fatalf("Pump: %v", err)
	}

	want := []EventName{EventDeviceInfo, EventTouch, EventScreenTexts}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, names[i], want[i])
		}
	}
}
