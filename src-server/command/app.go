// Package command holds the schedule command line.
package command

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"schedule/src-server/occurrence"
	"schedule/src-server/period"
	"schedule/src-server/recurrence"
	"schedule/src-server/utils"

	"github.com/urfave/cli/v2"
)

const timeLayout = "2006-01-02 15:04"

func NewApp() *cli.App {
	return &cli.App{
		Name:  "schedule",
		Usage: "Expand recurring events into occurrences and manage their overrides.",
		Commands: []*cli.Command{
			migrateCommand(),
			importCommand(),
			calendarsCommand(),
			listCommand(),
			showCommand(),
			moveCommand(),
			cancelCommand(),
			uncancelCommand(),
			deleteCommand(),
			exportCommand(),
			serveCommand(),
		},
	}
}

// withAppState opens the configured storage for one command run.
func withAppState(fn func(as *utils.AppState) error) error {
	as, err := utils.NewAppState(utils.NewConfig(), nil)
	if err != nil {
		return err
	}
	defer as.GracefulShutdown()
	return fn(as)
}

func parseTime(as *utils.AppState, text string) (time.Time, error) {
	return utils.ParseDate(as.When, text, time.Now(), as.Config.GetLocation())
}

var windowFlags = []cli.Flag{
	&cli.StringFlag{Name: "period", Value: "week", Usage: "year, month, week or day around --date"},
	&cli.StringFlag{Name: "date", Usage: "Date the period is built around (default: now)"},
	&cli.StringFlag{Name: "from", Usage: "Start of a custom window, overrides --period"},
	&cli.StringFlag{Name: "to", Usage: "End of a custom window, overrides --period"},
}

// resolveWindow reads --from/--to, or --period around --date.
func resolveWindow(c *cli.Context, as *utils.AppState) (period.Kind, recurrence.Window, error) {
	loc := as.Config.GetLocation()
	if c.IsSet("from") || c.IsSet("to") {
		if !c.IsSet("from") || !c.IsSet("to") {
			return period.Custom, recurrence.Window{}, fmt.Errorf("--from and --to go together")
		}
		from, err := parseTime(as, c.String("from"))
		if err != nil {
			return period.Custom, recurrence.Window{}, err
		}
		to, err := parseTime(as, c.String("to"))
		if err != nil {
			return period.Custom, recurrence.Window{}, err
		}
		w, err := recurrence.NewWindow(from, to)
		return period.Custom, w, err
	}

	kind, err := period.ParseKind(c.String("period"))
	if err != nil {
		return period.Custom, recurrence.Window{}, err
	}
	if kind == period.Custom {
		return period.Custom, recurrence.Window{}, fmt.Errorf("a custom period needs --from and --to")
	}
	date := time.Now()
	if c.IsSet("date") {
		if date, err = parseTime(as, c.String("date")); err != nil {
			return period.Custom, recurrence.Window{}, err
		}
	}
	return kind, period.Bounds(kind, date.In(loc), as.Config.GetFirstWeekday()), nil
}

// resolveSlot reads a slot token, or an event id followed by year, month,
// day, hour, minute and second, from the arguments starting at i.
func resolveSlot(c *cli.Context, i int) (occurrence.SlotKey, int, error) {
	args := c.Args().Slice()
	if len(args) <= i {
		return occurrence.SlotKey{}, 0, fmt.Errorf("missing slot")
	}
	if len(args)-i >= 7 {
		fields := make([]int, 6)
		ok := true
		for j := range fields {
			n, err := strconv.Atoi(args[i+1+j])
			if err != nil {
				ok = false
				break
			}
			fields[j] = n
		}
		if ok {
			key := occurrence.NewSlotKey(args[i], fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5])
			return key, 7, nil
		}
	}
	key, err := occurrence.DecodeSlotKey(args[i])
	if err != nil {
		return occurrence.SlotKey{}, 0, err
	}
	return key, 1, nil
}

func printPeriodHeader(w io.Writer, p *period.Period, loc *time.Location, count int) {
	fmt.Fprintf(w, "%s %s -> %s: %d occurrences\n",
		p.Kind, p.Start().In(loc).Format(timeLayout), p.End().In(loc).Format(timeLayout), count)
}

func printClassification(w io.Writer, cl period.Classification, loc *time.Location) {
	o := cl.Occurrence
	var flags []string
	if o.Moved() {
		flags = append(flags, "moved")
	}
	if o.Cancelled {
		flags = append(flags, "cancelled")
	}
	suffix := ""
	if len(flags) > 0 {
		suffix = " (" + strings.Join(flags, ", ") + ")"
	}
	fmt.Fprintf(w, "%s -> %s  %-6s  %s%s  %s\n",
		o.Start.In(loc).Format(timeLayout), o.End.In(loc).Format(timeLayout),
		cl.Class, o.Title, suffix, o.Key().Encode())
}

func printOccurrence(w io.Writer, o occurrence.Occurrence, loc *time.Location) {
	fmt.Fprintf(w, "event:     %s\n", o.EventID)
	fmt.Fprintf(w, "title:     %s\n", o.Title)
	if o.Description != "" {
		fmt.Fprintf(w, "details:   %s\n", o.Description)
	}
	fmt.Fprintf(w, "slot:      %s (%s)\n", o.Key().Encode(), o.OriginalStart.In(loc).Format(timeLayout))
	fmt.Fprintf(w, "start:     %s\n", o.Start.In(loc).Format(timeLayout))
	fmt.Fprintf(w, "end:       %s\n", o.End.In(loc).Format(timeLayout))
	fmt.Fprintf(w, "moved:     %t\n", o.Moved())
	fmt.Fprintf(w, "cancelled: %t\n", o.Cancelled)
	fmt.Fprintf(w, "persisted: %t\n", o.Persisted)
}
