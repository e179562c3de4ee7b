package command

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"schedule/src-server/ical"
	"schedule/src-server/occurrence"
	"schedule/src-server/utils"

	"github.com/urfave/cli/v2"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the occurrences of a period as an iCalendar feed.",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "calendar", Usage: "Calendar id (default: every calendar)"},
			&cli.StringFlag{Name: "out", Usage: "Output file (default: stdout)"},
		}, windowFlags...),
		Action: func(c *cli.Context) error {
			return withAppState(func(as *utils.AppState) error {
				_, window, err := resolveWindow(c, as)
				if err != nil {
					return err
				}
				calendarID := c.String("calendar")
				feed := ical.Feed{Name: "schedule", Stamp: time.Now()}
				if calendarID != "" {
					cal, err := as.Repo.GetCalendar(c.Context, calendarID)
					if err != nil {
						return err
					}
					feed.Name = cal.Name
				}
				p, err := as.Builder.Build(c.Context, calendarID, window)
				if err != nil {
					return err
				}

				var w io.Writer = c.App.Writer
				if out := c.String("out"); out != "" {
					f, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("can't create %s: %w", out, err)
					}
					defer f.Close()
					w = f
				}
				return writeFeed(w, feed, p.Occurrences())
			})
		},
	}
}

func writeFeed(w io.Writer, feed ical.Feed, occurrences []occurrence.Occurrence) error {
	if len(occurrences) == 0 {
		return errors.New("nothing to export in this period")
	}
	return ical.Export(w, feed, occurrences)
}
