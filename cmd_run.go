package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"Tapflow/pkg/executor"
	"Tapflow/pkg/logger"
	"Tapflow/pkg/scriptfile"
	"Tapflow/pkg/types"

	"github.com/urfave/cli/v2"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run a script file or a script from the library",
	ArgsUsage: "<file|name>",
	Description: `Steps run in order until one fails. A script with targets and no steps
watches the screen for them until Ctrl-C.`,
	Action: runScript,
}

func runScript(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("run needs exactly one script", 2)
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

	script, err := resolveScript(rt, c.Args().First())
	if err != nil {
		return err
	}
	if err := script.Validate(); err != nil {
		return fmt.Errorf("invalid script %s:\n%w", script.Name, err)
	}

	if len(script.Steps) == 0 {
		if err := rt.engine.StartWatching(script.Targets); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Watching %d targets... press Ctrl-C to stop\n", len(script.Targets))
		<-ctx.Done()
		rt.engine.StopWatching()
		for _, h := range rt.engine.WatchStatus().Hits {
			fmt.Printf("%s  %-12s %q clicked=%v\n", h.At.Format("15:04:05"), h.Target.ID, h.Element.Text, h.Clicked)
		}
		return nil
	}

	logger.LogInfo("main").Str("script", script.Name).Int("steps", len(script.Steps)).Msg("Running script")
	res, err := rt.engine.ExecuteScript(ctx, script.Steps)
	for _, sr := range res.Steps {
		note := ""
		if sr.Fallback {
			note = " (fell back to tap)"
		}
		fmt.Printf("  step %d: %s after %d attempts%s\n", sr.Index+1, sr.Action, sr.Attempts, note)
	}

	var timeout *executor.MatchTimeoutError
	switch {
	case errors.As(err, &timeout):
		return cli.Exit(fmt.Sprintf("step %d: %q not found after %d attempts", timeout.Index+1, timeout.Description, timeout.Attempts), 1)
	case err != nil:
		return err
	case res.Phase == types.PhaseCancelled:
		fmt.Printf("Cancelled after %d of %d steps\n", res.ExecutedSteps, len(script.Steps))
	default:
		fmt.Printf("Completed %d steps in %s\n", res.ExecutedSteps, res.Duration)
	}
	return nil
}

// resolveScript loads arg as a file when it exists, else from the library
func resolveScript(rt *appRuntime, arg string) (*scriptfile.Script, error) {
	if _, err := os.Stat(arg); err == nil {
		return scriptfile.LoadFile(arg)
	}
	return rt.engine.Script(arg)
}

var findCommand = &cli.Command{
	Name:      "find",
	Usage:     "Find text on the device screen",
	ArgsUsage: "[text]",
	Description: `Without text, lists every text element on screen.

Examples:
  tapflow find Confirm
  tapflow find "^Order #\d+" --mode regex
  tapflow find OK --region 0,1200,1080,720 --min-score 0.6`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "mode",
			Usage: "exact, contains, starts_with, ends_with or regex",
			Value: string(types.MatchContains),
		},
		&cli.StringFlag{
			Name:  "region",
			Usage: "Only consider elements starting inside x,y,width,height",
		},
		&cli.Float64Flag{
			Name:  "min-score",
			Usage: "Similarity needed to pick one of several candidates",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print JSON",
		},
	},
	Action: runFind,
}

func runFind(c *cli.Context) error {
	mode, ok := types.ParseMatchMode(c.String("mode"))
	if !ok {
		return cli.Exit(fmt.Sprintf("unknown match mode %q", c.String("mode")), 2)
	}

	var mctx *types.MatchContext
	if r := c.String("region"); r != "" {
		region, err := parseRegion(r)
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		mctx = &types.MatchContext{Region: region}
	}
	if c.IsSet("min-score") {
		if mctx == nil {
			mctx = &types.MatchContext{}
		}
		mctx.MinScore = c.Float64("min-score")
	}

	rt, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer rt.close()
	if err := rt.start(c.Context); err != nil {
		return err
	}

	if c.NArg() == 0 {
		elements, err := rt.engine.ScreenTexts(c.Context)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printJSON(elements)
		}
		for _, el := range elements {
			fmt.Printf("%5d,%-5d %4dx%-4d %s\n", el.X, el.Y, el.Width, el.Height, el.Text)
		}
		return nil
	}

	res, err := rt.engine.FindText(c.Context, c.Args().First(), mode, mctx)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(res)
	}
	if !res.Matched {
		return cli.Exit("not found", 1)
	}
	x, y := res.Element.Center()
	fmt.Printf("%q at %d,%d", res.Element.Text, x, y)
	if res.Score != nil {
		fmt.Printf(" (score %.2f)", *res.Score)
	}
	fmt.Println()
	return nil
}

func parseRegion(s string) (*types.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("region must be x,y,width,height")
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("region: %w", err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return nil, fmt.Errorf("region width and height must be positive")
	}
	return &types.Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Check script files without running them",
	ArgsUsage: "<file>...",
	Action:    runValidate,
}

func runValidate(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("validate needs at least one file", 2)
	}

	failed := 0
	for _, path := range c.Args().Slice() {
		script, err := scriptfile.LoadFile(path)
		if err == nil {
			err = script.Validate()
		}
		if err != nil {
			failed++
			fmt.Printf("FAIL %s\n", path)
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Printf("     %s\n", line)
			}
			continue
		}
		fmt.Printf("ok   %s (%d steps, %d targets)\n", path, len(script.Steps), len(script.Targets))
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d scripts invalid", failed, c.NArg()), 1)
	}
	return nil
}
