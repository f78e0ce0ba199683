package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
)

var sessionsCommand = &cli.Command{
	Name:  "sessions",
	Usage: "Manage recorded sessions",
	Subcommands: []*cli.Command{
		{
			Name:   "list",
			Usage:  "List recorded sessions",
			Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Print JSON"}},
			Action: runSessionsList,
		},
		{
			Name:      "show",
			Usage:     "Print a session with all actions as JSON",
			ArgsUsage: "<session-id>",
			Action:    runSessionsShow,
		},
		{
			Name:      "rename",
			Usage:     "Rename a session",
			ArgsUsage: "<session-id> <name>",
			Action:    runSessionsRename,
		},
		{
			Name:      "delete",
			Usage:     "Delete sessions",
			ArgsUsage: "<session-id>...",
			Action:    runSessionsDelete,
		},
	},
}

func runSessionsList(c *cli.Context) error {
	rt, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer rt.close()

	sessions, err := rt.sessionsOnly()
	if err != nil {
		return err
	}
	summaries, err := sessions.Summaries()
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(summaries)
	}
	if len(summaries) == 0 {
		fmt.Println("No recorded sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTARTED\tSCREEN\tACTIONS\tDURATION")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%d\t%.1fs\n",
			s.ID, s.Name, s.StartTime,
			s.DeviceInfo.Width, s.DeviceInfo.Height, s.ActionCount, float64(s.DurationMs)/1000)
	}
	return w.Flush()
}

func runSessionsShow(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("show needs exactly one session id", 2)
	}
	rt, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer rt.close()

	sessions, err := rt.sessionsOnly()
	if err != nil {
		return err
	}
	session, err := sessions.Load(c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(session)
}

func runSessionsRename(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("rename needs a session id and a name", 2)
	}
	rt, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer rt.close()

	sessions, err := rt.sessionsOnly()
	if err != nil {
		return err
	}
	session, err := sessions.Rename(c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Printf("Renamed %s to %q\n", session.ID, session.Name)
	return nil
}

func runSessionsDelete(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("delete needs at least one session id", 2)
	}
	rt, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer rt.close()

	sessions, err := rt.sessionsOnly()
	if err != nil {
		return err
	}
	for _, id := range c.Args().Slice() {
		if err := sessions.Delete(id); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		fmt.Printf("Deleted %s\n", id)
	}
	return rt.db.Vacuum()
}
