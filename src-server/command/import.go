package command

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"schedule/src-server/fixture"
	"schedule/src-server/ical"
	"schedule/src-server/model"
	"schedule/src-server/occurrence"
	"schedule/src-server/utils"

	"github.com/urfave/cli/v2"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load calendars, events and overrides from a YAML fixture or an .ics file.",
		ArgsUsage: "<file.yaml|file.ics>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "calendar", Usage: "Calendar id for .ics files (default: file name)"},
			&cli.BoolFlag{Name: "force", Usage: "Import even if the file did not change since the last import"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("missing import path")
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("can't read %s: %w", path, err)
			}
			hash, err := utils.HashReader(bytes.NewReader(raw))
			if err != nil {
				return err
			}

			return withAppState(func(as *utils.AppState) error {
				source, err := as.Repo.GetImportSource(c.Context, path)
				if err != nil {
					return err
				}
				if source != nil && source.Hash == hash && !c.Bool("force") {
					slog.Info("import source unchanged, skipped", "path", path, "sha256", hash)
					fmt.Fprintf(c.App.Writer, "%s unchanged since last import\n", path)
					return nil
				}

				var res fixture.Result
				if strings.EqualFold(filepath.Ext(path), ".ics") {
					calendarID := c.String("calendar")
					if calendarID == "" {
						calendarID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
					}
					res, err = importICal(c, as, calendarID, raw)
				} else {
					var f *fixture.Fixture
					if f, err = fixture.Load(bytes.NewReader(raw)); err == nil {
						res, err = fixture.Import(c.Context, f, as.Repo, as.Store)
					}
				}
				if err != nil {
					return err
				}
				if err := as.Repo.SaveImportSource(c.Context, &model.ImportSource{Path: path, Hash: hash}); err != nil {
					return err
				}
				slog.Info("calendar data imported", "path", path, "sha256", hash, "calendars", res.Calendars, "events", res.Events, "overrides", res.Overrides)
				fmt.Fprintf(c.App.Writer, "imported %d calendars, %d events, %d overrides\n", res.Calendars, res.Events, res.Overrides)
				return nil
			})
		},
	}
}

func importICal(c *cli.Context, as *utils.AppState, calendarID string, raw []byte) (fixture.Result, error) {
	var res fixture.Result
	imp, err := ical.Import(bytes.NewReader(raw), calendarID, as.Config.GetLocation())
	if err != nil {
		return res, err
	}

	name := utils.CleanupString(imp.Name)
	if name == "" {
		name = calendarID
	}
	if err := as.Repo.SaveCalendar(c.Context, &model.Calendar{ID: calendarID, Name: name}); err != nil {
		return res, err
	}
	res.Calendars++

	events := make(map[string]occurrence.Event, len(imp.Events))
	for _, event := range imp.Events {
		if err := as.Repo.SaveEvent(c.Context, event); err != nil {
			return res, err
		}
		events[event.ID] = event
		res.Events++
	}
	for _, child := range imp.Children {
		if _, err := as.Store.Save(c.Context, events[child.Key.EventID], child.Key, child.Start, child.End, child.Cancelled); err != nil {
			return res, fmt.Errorf("importICal: %s: %w", child.Key, err)
		}
		res.Overrides++
	}
	return res, nil
}
