package command

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"schedule/src-server/metric"
	"schedule/src-server/occurrence"
	"schedule/src-server/scheduler"
	"schedule/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Expose metrics and log occurrences as they come up.",
		Action: func(c *cli.Context) error {
			hook := metric.NewQueryHook()
			as, err := utils.NewAppState(utils.NewConfig(), metric.NewRecorder(prometheus.DefaultRegisterer), hook)
			if err != nil {
				return err
			}

			go metric.Init(as, hook)

			notifier := &scheduler.Notifier{
				Builder: as.Builder,
				Lead:    as.Config.GetNotifyLead(),
				Notify: func(o occurrence.Occurrence) {
					slog.Info("occurrence starting soon",
						"event", o.EventID,
						"title", o.Title,
						"start", o.Start.In(as.Config.GetLocation()),
						"moved", o.Moved(),
						"slot", o.Key().Encode(),
					)
				},
			}
			go scheduler.EventNotify(as, notifier, as.Config.GetMetricCollectionInterval())

			// http server
			go func() {
				muxer := http.NewServeMux()
				muxer.Handle("GET /metrics", promhttp.Handler())
				if err := http.ListenAndServe(":"+as.Config.GetPort(), muxer); err != nil {
					slog.Error("cannot start HTTP server", "error", err)
					as.Stop()
				}
			}()

			slog.Info("app is now running, press Ctrl+C to exit", "port", as.Config.GetPort())

			signal.Notify(as.AppCloseSignalChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
			<-as.AppCloseSignalChan
			slog.Info("Gracefully shutting down...")
			as.GracefulShutdown()
			return nil
		},
	}
}
