package command

import (
	"fmt"
	"time"

	"schedule/src-server/period"
	"schedule/src-server/scheduler"
	"schedule/src-server/utils"

	"github.com/urfave/cli/v2"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the occurrences of a period, classified against its bounds.",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "calendar", Usage: "Calendar id (default: every calendar)"},
			&cli.StringFlag{Name: "by", Usage: "Group into month, week or day sub-periods"},
			&cli.BoolFlag{Name: "busy", Usage: "Leave cancelled occurrences out"},
		}, windowFlags...),
		Action: func(c *cli.Context) error {
			return withAppState(func(as *utils.AppState) error {
				kind, window, err := resolveWindow(c, as)
				if err != nil {
					return err
				}
				p, err := as.Builder.Build(c.Context, c.String("calendar"), window)
				if err != nil {
					return err
				}
				p.Kind = kind

				loc := as.Config.GetLocation()
				groups := []*period.Period{p}
				switch c.String("by") {
				case "":
				case "month":
					groups = p.Months()
				case "week":
					groups = p.Weeks()
				case "day":
					groups = p.Days()
				default:
					return fmt.Errorf("--by takes month, week or day")
				}

				for _, g := range groups {
					var shown []period.Classification
					for _, cl := range g.Classified() {
						if c.Bool("busy") && cl.Cancelled {
							continue
						}
						shown = append(shown, cl)
					}
					if len(groups) > 1 && len(shown) == 0 {
						continue
					}
					printPeriodHeader(c.App.Writer, g, loc, len(shown))
					for _, cl := range shown {
						printClassification(c.App.Writer, cl, loc)
					}
				}
				return nil
			})
		},
	}
}

func calendarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendars",
		Usage: "List calendars with their load over a period.",
		Flags: windowFlags,
		Action: func(c *cli.Context) error {
			return withAppState(func(as *utils.AppState) error {
				_, window, err := resolveWindow(c, as)
				if err != nil {
					return err
				}
				calendars, err := as.Repo.ListCalendars(c.Context)
				if err != nil {
					return err
				}
				ids := make([]string, 0, len(calendars))
				for _, cal := range calendars {
					ids = append(ids, cal.ID)
				}
				periods, err := scheduler.MaterializeCalendars(c.Context, as.Builder, ids, window, time.Minute)
				if err != nil {
					return err
				}

				for _, cal := range calendars {
					events, err := as.Repo.CountEvents(c.Context, cal.ID)
					if err != nil {
						return err
					}
					p := periods[cal.ID]
					fmt.Fprintf(c.App.Writer, "%s  %s  %d events, %d busy, %d cancelled\n",
						cal.ID, cal.Name, events, len(p.Busy(false)), len(p.Busy(true))-len(p.Busy(false)))
				}
				return nil
			})
		},
	}
}
