package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"Tapflow/pkg/logger"
)

// Wire format of one message: {"event": "<name>", "payload": {...}}
type envelope struct {
	Event   EventName `json:"event"`
	Payload Event     `json:"payload"`
}

// Encode serializes ev in the wire format
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(envelope{Event: ev.EventName(), Payload: ev})
}

// Decode parses one wire message into its concrete payload type
func Decode(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid message JSON")
	}

	name := EventName(gjson.GetBytes(data, "event").String())
	payload := gjson.GetBytes(data, "payload")
	if !payload.Exists() {
		return nil, fmt.Errorf("message %q has no payload", name)
	}
	raw := []byte(payload.Raw)

	switch name {
	case EventTouch:
		var ev TouchEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode touch: %w", err)
		}
		return ev, nil
	case EventDeviceInfo:
		var ev DeviceInfoEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode device_info: %w", err)
		}
		return ev, nil
	case EventScreenTexts:
		var ev ScreenTextsEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode screen_texts: %w", err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event %q", name)
	}
}

// Pump reads newline delimited wire messages from r and publishes them on ch
// until r is exhausted or ctx is done. Malformed lines are logged and skipped.
func Pump(ctx context.Context, r io.Reader, ch Channel) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := Decode(line)
		if err != nil {
			logger.LogWarn("bridge").Err(err).Msg("Dropping malformed message")
			continue
		}
		ch.Publish(ev)
	}
	return scanner.Err()
}
