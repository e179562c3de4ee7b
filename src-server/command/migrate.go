package command

import (
	"fmt"

	"schedule/src-server/utils"

	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the database schema.",
		Action: func(c *cli.Context) error {
			return withAppState(func(as *utils.AppState) error {
				fmt.Fprintf(c.App.Writer, "schema ready in %s\n", as.Config.GetDatabasePath())
				return nil
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an event, or a whole calendar, together with its overrides.",
		ArgsUsage: "<event-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "calendar", Usage: "The id names a calendar"},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("missing id")
			}
			return withAppState(func(as *utils.AppState) error {
				deleteFn := as.DeleteEvent
				if c.Bool("calendar") {
					deleteFn = as.DeleteCalendar
				}
				if err := deleteFn(c.Context, id); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
				return nil
			})
		},
	}
}
