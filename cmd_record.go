package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"Tapflow/pkg/adb"
	"Tapflow/pkg/bridge"
	"Tapflow/pkg/logger"
	"Tapflow/pkg/recorder"

	"github.com/urfave/cli/v2"
)

var recordCommand = &cli.Command{
	Name:  "record",
	Usage: "Record touches until Ctrl-C and save the session",
	Description: `Captures touches from the device with getevent, or reads touch events as
newline delimited JSON ({"event": "touch", "payload": {...}}) with --input.

Examples:
  tapflow record --name login
  tapflow record --duration 30s
  capture-host | tapflow record --input -`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "Name for the saved session",
		},
		&cli.DurationFlag{
			Name:  "duration",
			Usage: "Stop automatically after this long",
		},
		&cli.StringFlag{
			Name:  "input",
			Usage: "Read touch events from a file instead of the device (- for stdin)",
		},
	},
	Action: runRecord,
}

func runRecord(c *cli.Context) error {
	rt, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := rt.start(ctx); err != nil {
		return err
	}
	e := rt.engine

	if err := e.StartRecording(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Recording... press Ctrl-C to stop")

	captureErr := make(chan error, 1)
	go func() {
		captureErr <- capture(ctx, c.String("input"), rt.host, e.Channel())
	}()

	select {
	case <-ctx.Done():
	case err := <-captureErr:
		if err != nil {
			logger.LogError("main").Err(err).Msg("Touch capture failed")
		}
	}

	session, err := e.StopRecording()
	if errors.Is(err, recorder.ErrEmptySession) {
		fmt.Println("No touches recorded; nothing saved")
		return nil
	}
	if err != nil {
		return err
	}

	if name := c.String("name"); name != "" {
		if session, err = e.RenameSession(session.ID, name); err != nil {
			return err
		}
	}

	fmt.Printf("Saved session %s (%d actions, %s)\n", session.ID, len(session.Actions), session.Duration().Round(time.Millisecond))
	return nil
}

// capture feeds touch events onto ch from input, or from the device when
// input is empty
func capture(ctx context.Context, input string, host *adb.Host, ch bridge.Channel) error {
	switch input {
	case "":
		return adb.NewTouchSource(host).Run(ctx, ch)
	case "-":
		return bridge.Pump(ctx, os.Stdin, ch)
	default:
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer f.Close()
		return bridge.Pump(ctx, f, ch)
	}
}

var replayCommand = &cli.Command{
	Name:      "replay",
	Usage:     "Replay a recorded session on the device",
	ArgsUsage: "<session-id>",
	Flags: []cli.Flag{
		&cli.Float64Flag{
			Name:  "speed",
			Usage: "Playback speed multiplier (default from config)",
		},
	},
	Action: runReplay,
}

func runReplay(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("replay needs exactly one session id", 2)
	}

	rt, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	if err := rt.start(ctx); err != nil {
		return err
	}

	res, err := rt.engine.ReplaySession(ctx, c.Args().First(), c.Float64("speed"), func(current, total int) {
		fmt.Fprintf(os.Stderr, "\r%d/%d", current, total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("Played %d of %d gestures", res.Played, res.Gestures)
	if res.Failed > 0 {
		fmt.Printf(" (%d failed)", res.Failed)
	}
	fmt.Println()
	return nil
}
