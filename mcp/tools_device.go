package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerDeviceTools registers device tools
func (s *MCPServer) registerDeviceTools() {
	// device_info - Current screen frame
	s.server.AddTool(
		mcp.NewTool("device_info",
			mcp.WithDescription(`Get the screen frame of the connected device.

Returns width and height in pixels and the orientation ("portrait" or
"landscape"). Recordings store this frame so they can be replayed on other
resolutions.`),
		),
		s.handleDeviceInfo,
	)
}

func (s *MCPServer) handleDeviceInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.app.DeviceInfo(ctx)
	if err != nil {
		return errorResult("failed to get device info: %v", err), nil
	}
	return jsonResult(info), nil
}
