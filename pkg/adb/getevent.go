package adb

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"Tapflow/pkg/bridge"
	"Tapflow/pkg/coords"
	"Tapflow/pkg/logger"
	"Tapflow/pkg/types"
)

// AbsRange is the raw coordinate range reported by a touch panel
type AbsRange struct {
	MinX, MaxX int
	MinY, MaxY int
}

var absRangeRe = regexp.MustCompile(`min\s+(-?\d+),\s+max\s+(-?\d+)`)

// ParseAbsRange extracts the ABS_MT_POSITION_X/Y ranges from `getevent -p`
func ParseAbsRange(output string) AbsRange {
	var r AbsRange
	for _, line := range strings.Split(output, "\n") {
		m := absRangeRe.FindStringSubmatch(line)
		if len(m) < 3 {
			continue
		}
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		switch {
		case strings.Contains(line, "ABS_MT_POSITION_X") || strings.Contains(line, "0035"):
			r.MinX, r.MaxX = lo, hi
		case strings.Contains(line, "ABS_MT_POSITION_Y") || strings.Contains(line, "0036"):
			r.MinY, r.MaxY = lo, hi
		}
	}
	return r
}

var touchKeywords = []string{
	"touch", "ts", "ft5", "goodix", "synaptics", "atmel",
	"elan", "himax", "focaltech", "mxt", "nvt", "ilitek",
	"sec_touchscreen", "input_mt", "mtk-tpd",
}

// PickTouchDevice selects the most likely touchscreen from `getevent -p`
// output: multitouch devices only, preferring known panel names
func PickTouchDevice(output string) (string, error) {
	output = strings.ReplaceAll(output, "\r\n", "\n")

	bestPath, bestScore := "", 0
	for _, block := range strings.Split(output, "add device") {
		firstLineEnd := strings.Index(block, "\n")
		if firstLineEnd == -1 {
			continue
		}
		firstLine := block[:firstLineEnd]
		pathIdx := strings.Index(firstLine, "/dev/input/")
		if pathIdx == -1 {
			continue
		}
		path := strings.TrimSpace(firstLine[pathIdx:])

		if !strings.Contains(block, "ABS_MT_POSITION_X") && !strings.Contains(block, "0035") {
			continue
		}

		score := 1
		for _, line := range strings.Split(block, "\n") {
			if !strings.Contains(line, "name:") {
				continue
			}
			nameLower := strings.ToLower(line)
			for _, keyword := range touchKeywords {
				if strings.Contains(nameLower, keyword) {
					score += 10
					break
				}
			}
			break
		}

		logger.LogDebug("adb").Str("path", path).Int("score", score).Msg("Found touch input candidate")
		if score > bestScore {
			bestPath, bestScore = path, score
		}
	}

	if bestPath == "" {
		return "", fmt.Errorf("no touch input device found")
	}
	return bestPath, nil
}

// [ 1234.567890] EV_ABS       ABS_MT_POSITION_X    00000500
// [ 1234.567890] /dev/input/event2: EV_KEY BTN_TOUCH DOWN
var geteventRe = regexp.MustCompile(`\[\s*([\d.]+)\].*?(EV_\w+)\s+(\w+)\s+(DOWN|UP|[0-9a-fA-F]+)`)

// GeteventParser turns `getevent -lt` lines into touch events scaled to the
// screen. It follows a single pointer.
type GeteventParser struct {
	Range  AbsRange
	Screen types.DeviceInfo

	first       float64
	rawX, rawY  int
	tracking    bool
	pendingDown bool
	pendingUp   bool
	moved       bool
}

// NewGeteventParser creates a parser. A degenerate range falls back to the
// screen size.
func NewGeteventParser(r AbsRange, screen types.DeviceInfo) *GeteventParser {
	if r.MaxX <= r.MinX {
		r.MinX, r.MaxX = 0, screen.Width
	}
	if r.MaxY <= r.MinY {
		r.MinY, r.MaxY = 0, screen.Height
	}
	return &GeteventParser{Range: r, Screen: screen, first: -1, rawX: -1, rawY: -1}
}

// Feed consumes one line and returns the events completed by it
func (p *GeteventParser) Feed(line string) []bridge.TouchEvent {
	m := geteventRe.FindStringSubmatch(line)
	if len(m) < 5 {
		return nil
	}

	ts, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	if p.first < 0 {
		p.first = ts
	}
	relMs := int64(math.Round((ts - p.first) * 1000))

	evType, evCode, evValue := m[2], m[3], m[4]
	switch evValue {
	case "DOWN":
		evValue = "00000001"
	case "UP":
		evValue = "00000000"
	}

	// -1 arrives as ffffffff
	u, err := strconv.ParseUint(evValue, 16, 32)
	if err != nil {
		return nil
	}
	value := int32(u)

	switch evType {
	case "EV_ABS":
		switch evCode {
		case "ABS_MT_TRACKING_ID":
			if value != -1 && !p.tracking {
				p.tracking = true
				p.pendingDown = true
			} else if value == -1 && p.tracking {
				p.tracking = false
				p.pendingUp = true
			}
		case "ABS_MT_POSITION_X":
			p.rawX = int(value)
			p.moved = true
		case "ABS_MT_POSITION_Y":
			p.rawY = int(value)
			p.moved = true
		}
	case "EV_KEY":
		if evCode == "BTN_TOUCH" {
			if value == 1 && !p.tracking {
				p.tracking = true
				p.pendingDown = true
			} else if value == 0 && p.tracking {
				p.tracking = false
				p.pendingUp = true
			}
		}
	case "EV_SYN":
		if evCode == "SYN_REPORT" {
			return p.flush(relMs)
		}
	}
	return nil
}

func (p *GeteventParser) flush(relMs int64) []bridge.TouchEvent {
	if p.rawX < 0 || p.rawY < 0 {
		return nil
	}

	x := coords.ScaleRaw(p.rawX, p.Range.MinX, p.Range.MaxX, p.Screen.Width)
	y := coords.ScaleRaw(p.rawY, p.Range.MinY, p.Range.MaxY, p.Screen.Height)
	event := func(kind bridge.TouchKind) bridge.TouchEvent {
		return bridge.TouchEvent{Type: kind, X: x, Y: y, Timestamp: relMs, PointerType: "finger"}
	}

	var out []bridge.TouchEvent
	switch {
	case p.pendingDown:
		out = append(out, event(bridge.TouchDown))
		p.pendingDown = false
	case p.moved && p.tracking:
		out = append(out, event(bridge.TouchMove))
	}
	p.moved = false

	if p.pendingUp {
		out = append(out, event(bridge.TouchUp))
		p.pendingUp = false
	}
	return out
}

// TouchSource streams raw touches from the device onto a channel
type TouchSource struct {
	host *Host
}

// NewTouchSource creates a source reading from host's device
func NewTouchSource(host *Host) *TouchSource {
	return &TouchSource{host: host}
}

// Run publishes the device frame, then touch events until ctx is done or
// getevent exits
func (s *TouchSource) Run(ctx context.Context, ch bridge.Channel) error {
	client := s.host.Client()

	screen, err := s.host.DeviceInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to read screen size: %w", err)
	}
	ch.Publish(bridge.DeviceInfoEvent{Width: screen.Width, Height: screen.Height, Orientation: screen.Orientation})

	props, err := client.Shell(ctx, "getevent -p")
	if err != nil {
		return fmt.Errorf("failed to get input devices: %w", err)
	}
	inputDevice, err := PickTouchDevice(props)
	if err != nil {
		return err
	}

	devProps, err := client.Shell(ctx, "getevent -p "+inputDevice)
	if err != nil {
		devProps = props
	}
	r := ParseAbsRange(devProps)
	logger.LogInfo("adb").
		Str("inputDevice", inputDevice).
		Int("minX", r.MinX).Int("maxX", r.MaxX).
		Int("minY", r.MinY).Int("maxY", r.MaxY).
		Msg("Touch capture started")

	cmd := client.newCommand(ctx, client.deviceArgs("shell", "getevent", "-lt", inputDevice)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start getevent: %w", err)
	}

	parser := NewGeteventParser(r, screen)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		for _, ev := range parser.Feed(scanner.Text()) {
			ch.Publish(ev)
		}
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		logger.LogInfo("adb").Msg("Touch capture stopped")
		return nil
	}
	if waitErr != nil {
		return fmt.Errorf("getevent exited: %w", waitErr)
	}
	return scanner.Err()
}
