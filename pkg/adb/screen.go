package adb

import (
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"Tapflow/pkg/logger"
	"Tapflow/pkg/types"
)

// UINode is one node of a uiautomator dump
type UINode struct {
	XMLName     xml.Name `xml:"node" json:"-"`
	Text        string   `xml:"text,attr" json:"text"`
	ResourceID  string   `xml:"resource-id,attr" json:"resourceId"`
	Class       string   `xml:"class,attr" json:"class"`
	Package     string   `xml:"package,attr" json:"package"`
	ContentDesc string   `xml:"content-desc,attr" json:"contentDesc"`
	Clickable   string   `xml:"clickable,attr" json:"clickable"`
	Bounds      string   `xml:"bounds,attr" json:"bounds"`
	Nodes       []UINode `xml:"node" json:"nodes"`
}

// UIHierarchy is the root element of a uiautomator dump
type UIHierarchy struct {
	XMLName  xml.Name `xml:"hierarchy"`
	Rotation int      `xml:"rotation,attr"`
	Nodes    []UINode `xml:"node"`
}

var boundsRe = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)

// ParseBounds converts "[x1,y1][x2,y2]" to origin and size
func ParseBounds(bounds string) (x, y, w, h int, err error) {
	m := boundsRe.FindStringSubmatch(bounds)
	if len(m) != 5 {
		return 0, 0, 0, 0, fmt.Errorf("invalid bounds format: %q", bounds)
	}
	x1, _ := strconv.Atoi(m[1])
	y1, _ := strconv.Atoi(m[2])
	x2, _ := strconv.Atoi(m[3])
	y2, _ := strconv.Atoi(m[4])
	return x1, y1, x2 - x1, y2 - y1, nil
}

// ParseHierarchy cleans and decodes raw dump output
func ParseHierarchy(raw string) (*UIHierarchy, error) {
	content := raw
	if start := strings.Index(content, "<?xml"); start != -1 {
		content = content[start:]
	} else if start := strings.Index(content, "<hierarchy"); start != -1 {
		content = content[start:]
	}
	if end := strings.LastIndex(content, ">"); end != -1 && end < len(content)-1 {
		content = content[:end+1]
	}

	// uiautomator sometimes emits bare ampersands
	content = strings.ReplaceAll(content, "&", "&amp;")
	content = strings.ReplaceAll(content, "&amp;amp;", "&amp;")
	content = strings.ReplaceAll(content, "&amp;lt;", "&lt;")
	content = strings.ReplaceAll(content, "&amp;gt;", "&gt;")
	content = strings.ReplaceAll(content, "&amp;quot;", "&quot;")
	content = strings.ReplaceAll(content, "&amp;apos;", "&apos;")
	content = strings.ReplaceAll(content, "&amp;#", "&#")

	var h UIHierarchy
	if err := xml.Unmarshal([]byte(content), &h); err != nil {
		return nil, fmt.Errorf("failed to parse UI XML (length: %d): %w", len(content), err)
	}
	return &h, nil
}

// TextElements flattens the hierarchy into text elements in document order.
// Nodes without text use their content description; nodes with neither, or
// with unusable bounds, are skipped.
func (h *UIHierarchy) TextElements() []types.ScreenTextElement {
	var out []types.ScreenTextElement
	var walk func(nodes []UINode)
	walk = func(nodes []UINode) {
		for i := range nodes {
			n := &nodes[i]
			text := strings.TrimSpace(n.Text)
			if text == "" {
				text = strings.TrimSpace(n.ContentDesc)
			}
			if text != "" {
				if x, y, w, hgt, err := ParseBounds(n.Bounds); err == nil && w >= 0 && hgt >= 0 {
					out = append(out, types.ScreenTextElement{Text: text, X: x, Y: y, Width: w, Height: hgt})
				}
			}
			walk(n.Nodes)
		}
	}
	walk(h.Nodes)
	return out
}

const (
	dumpFile       = "/data/local/tmp/tapflow_view.xml"
	dumpMaxRetries = 3
)

// DumpHierarchy runs uiautomator on the device, retrying flaky dumps
func (c *Client) DumpHierarchy(ctx context.Context) (*UIHierarchy, error) {
	var (
		content string
		err     error
	)

	for i := 0; i < dumpMaxRetries; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if i > 0 {
			c.Shell(ctx, "pkill uiautomator")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}

		content, err = c.Shell(ctx, fmt.Sprintf("uiautomator dump %s && cat %s", dumpFile, dumpFile))
		if err == nil && strings.Contains(content, "<hierarchy") {
			break
		}
		if err == nil {
			err = fmt.Errorf("dump produced no hierarchy")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.LogDebug("adb").Int("retry", i+1).Int("maxRetries", dumpMaxRetries).Err(err).Msg("UI dump retry")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dump UI after %d attempts: %w", dumpMaxRetries, err)
	}

	return ParseHierarchy(content)
}
