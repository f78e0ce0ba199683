// Package adb drives an Android device through the adb binary: screen text
// via uiautomator, input injection and raw touch capture via getevent.
package adb

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"Tapflow/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// deviceIDPattern accepts USB serials ("emulator-5554"), ip:port and mDNS
// names
var deviceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._:\-]+$`)

// ValidateDeviceID rejects serials that could smuggle shell syntax into an
// adb invocation
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("device ID cannot be empty")
	}
	if len(deviceID) > 256 {
		return fmt.Errorf("device ID too long (max 256 characters)")
	}
	if !deviceIDPattern.MatchString(deviceID) {
		return fmt.Errorf("invalid device ID format: contains illegal characters")
	}
	return nil
}

// Client runs adb commands against one device. An empty serial targets the
// only attached device.
type Client struct {
	path    string
	serial  string
	timeout time.Duration

	// exec runs adb with args and returns combined output
	exec func(ctx context.Context, args ...string) ([]byte, error)
}

// NewClient creates a client for serial using the adb binary at path
func NewClient(path, serial string) (*Client, error) {
	if path == "" {
		path = "adb"
	}
	if serial != "" {
		if err := ValidateDeviceID(serial); err != nil {
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
	}
	c := &Client{path: path, serial: serial, timeout: defaultTimeout}
	c.exec = c.runBinary
	return c, nil
}

// Serial returns the target device, empty for the default device
func (c *Client) Serial() string {
	return c.serial
}

// newCommand builds an adb command with proxy variables removed from the
// environment; adb misbehaves when they point at an unreachable host
func (c *Client) newCommand(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.path, args...)

	proxyVars := []string{"HTTP_PROXY", "HTTPS_PROXY", "ALL_PROXY", "NO_PROXY", "http_proxy", "https_proxy", "all_proxy", "no_proxy"}
	env := os.Environ()
	newEnv := make([]string, 0, len(env))
	for _, e := range env {
		isProxy := false
		for _, v := range proxyVars {
			if strings.HasPrefix(e, v+"=") {
				isProxy = true
				break
			}
		}
		if !isProxy {
			newEnv = append(newEnv, e)
		}
	}
	cmd.Env = newEnv
	return cmd
}

func (c *Client) runBinary(ctx context.Context, args ...string) ([]byte, error) {
	return c.newCommand(ctx, args...).CombinedOutput()
}

func (c *Client) deviceArgs(args ...string) []string {
	if c.serial == "" {
		return args
	}
	return append([]string{"-s", c.serial}, args...)
}

// Command runs adb with args against the device. A context without deadline
// gets the default 30s timeout.
func (c *Client) Command(ctx context.Context, args ...string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	output, err := c.exec(ctx, c.deviceArgs(args...)...)
	res := string(output)
	if err != nil {
		return res, fmt.Errorf("command failed: %w, output: %s", err, strings.TrimSpace(res))
	}
	return strings.TrimSpace(res), nil
}

// Shell runs a shell command line on the device
func (c *Client) Shell(ctx context.Context, command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", nil
	}
	return c.Command(ctx, "shell", command)
}

// Device is one entry of `adb devices -l`
type Device struct {
	Serial string `json:"serial"`
	State  string `json:"state"`
	Model  string `json:"model,omitempty"`
}

// Devices lists attached devices
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	output, err := c.exec(ctx, "devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("failed to run adb devices (path: %s): %w, output: %s", c.path, err, string(output))
	}
	return parseDevices(string(output)), nil
}

func parseDevices(output string) []Device {
	var devices []Device
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices attached") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		d := Device{Serial: parts[0], State: parts[1]}
		for _, p := range parts[2:] {
			if strings.HasPrefix(p, "model:") {
				d.Model = strings.TrimPrefix(p, "model:")
			}
		}
		devices = append(devices, d)
	}
	logger.LogDebug("adb").Int("count", len(devices)).Msg("Devices listed")
	return devices
}
