package command

import (
	"fmt"

	"schedule/src-server/occurrence"
	"schedule/src-server/utils"

	"github.com/urfave/cli/v2"
)

const slotArgsUsage = "<slot> | <event-id> <year> <month> <day> <hour> <minute> <second>"

// slotAction loads the event behind the slot argument and hands both to fn.
func slotAction(c *cli.Context, fn func(as *utils.AppState, event occurrence.Event, key occurrence.SlotKey, rest []string) (occurrence.Occurrence, error)) error {
	key, used, err := resolveSlot(c, 0)
	if err != nil {
		return err
	}
	rest := c.Args().Slice()[used:]
	return withAppState(func(as *utils.AppState) error {
		event, err := as.Repo.GetEvent(c.Context, key.EventID)
		if err != nil {
			return err
		}
		o, err := fn(as, event, key, rest)
		if err != nil {
			return err
		}
		printOccurrence(c.App.Writer, o, as.Config.GetLocation())
		return nil
	})
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one occurrence, with its override applied.",
		ArgsUsage: slotArgsUsage,
		Action: func(c *cli.Context) error {
			return slotAction(c, func(as *utils.AppState, event occurrence.Event, key occurrence.SlotKey, _ []string) (occurrence.Occurrence, error) {
				return as.Store.Get(c.Context, event, key)
			})
		},
	}
}

func moveCommand() *cli.Command {
	return &cli.Command{
		Name:      "move",
		Usage:     "Reschedule one occurrence.",
		ArgsUsage: "<slot> <new-start>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "end", Usage: "New end (default: keep the duration)"},
		},
		Action: func(c *cli.Context) error {
			return slotAction(c, func(as *utils.AppState, event occurrence.Event, key occurrence.SlotKey, rest []string) (occurrence.Occurrence, error) {
				if len(rest) == 0 {
					return occurrence.Occurrence{}, fmt.Errorf("missing new start")
				}
				start, err := parseTime(as, rest[0])
				if err != nil {
					return occurrence.Occurrence{}, err
				}
				if !c.IsSet("end") {
					return as.Store.Move(c.Context, event, key, start)
				}
				end, err := parseTime(as, c.String("end"))
				if err != nil {
					return occurrence.Occurrence{}, err
				}
				current, err := as.Store.Get(c.Context, event, key)
				if err != nil {
					return occurrence.Occurrence{}, err
				}
				return as.Store.Save(c.Context, event, key, start, end, current.Cancelled)
			})
		},
	}
}

func cancelCommand() *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "Cancel one occurrence.",
		ArgsUsage: slotArgsUsage,
		Action: func(c *cli.Context) error {
			return slotAction(c, func(as *utils.AppState, event occurrence.Event, key occurrence.SlotKey, _ []string) (occurrence.Occurrence, error) {
				return as.Store.Cancel(c.Context, event, key)
			})
		},
	}
}

func uncancelCommand() *cli.Command {
	return &cli.Command{
		Name:      "uncancel",
		Usage:     "Restore a cancelled occurrence.",
		ArgsUsage: slotArgsUsage,
		Action: func(c *cli.Context) error {
			return slotAction(c, func(as *utils.AppState, event occurrence.Event, key occurrence.SlotKey, _ []string) (occurrence.Occurrence, error) {
				return as.Store.Uncancel(c.Context, event, key)
			})
		},
	}
}
