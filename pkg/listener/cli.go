package listener

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cordonnx/cordonnx/pkg/ais140"
	"github.com/cordonnx/cordonnx/pkg/alerts"
	"github.com/cordonnx/cordonnx/pkg/canbus"
	"github.com/cordonnx/cordonnx/pkg/database"
	"github.com/cordonnx/cordonnx/pkg/framer"
	"github.com/cordonnx/cordonnx/pkg/notify"
	"github.com/cordonnx/cordonnx/pkg/redis_client"
	"github.com/cordonnx/cordonnx/pkg/sink"
	"github.com/cordonnx/cordonnx/pkg/stats"
	"github.com/cordonnx/cordonnx/pkg/util"
	"github.com/cordonnx/cordonnx/pkg/vehicledir"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const defaultClassicAddress = ":8001"
const defaultExtendedAddress = ":8002"
const defaultMetricsPort = "2112"

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "listener",
		Usage: "Provides the tracker TCP ingest server",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the ingest listeners",
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					env := util.GetEnvironmentVariables()

					classicAddress := defaultClassicAddress
					if env["CORDONNX_LISTENER_CLASSIC_ADDRESS"] != "" {
						classicAddress = env["CORDONNX_LISTENER_CLASSIC_ADDRESS"]
					}

					extendedAddress := defaultExtendedAddress
					if env["CORDONNX_LISTENER_EXTENDED_ADDRESS"] != "" {
						extendedAddress = env["CORDONNX_LISTENER_EXTENDED_ADDRESS"]
					}

					metricsPort := defaultMetricsPort
					if env["CORDONNX_METRICS_PORT"] != "" {
						metricsPort = env["CORDONNX_METRICS_PORT"]
					}

					ackEnabled := env["CORDONNX_LISTENER_ACK"] == "true"

					profileRegistry, err := canbus.LoadProfiles()
					if err != nil {
						log.Fatal().Err(err).Msg("Failed to load CAN profiles")
					}

					directory := &vehicledir.Directory{}
					directory.Setup()

					canEngine := canbus.NewEngine(profileRegistry, &canbus.MongoStore{}, directory.CANProfile)
					decoder := ais140.NewDecoder(ais140.MongoOdometerStore{}, canEngine)

					ctx, stop := context.WithCancel(context.Background())
					defer stop()

					historySink := sink.New("history", database.GetCollection("ais140_history"))
					latestSink := sink.New("latest", database.GetCollection("ais140_latest"))
					healthSink := sink.New("health", database.GetCollection("ais140_health"))
					sosSink := sink.New("sos", database.GetCollection("sos_logs"))
					rawLogSink := sink.New("rawlog", database.GetCollection("ais140_raw_log"))

					sinks := []*sink.Sink{historySink, latestSink, healthSink, sosSink, rawLogSink}
					for _, s := range sinks {
						s.Start(ctx)
					}

					notificationQueue, err := redis_client.QueueConnection.OpenQueue(notify.AlertQueueName)
					if err != nil {
						return err
					}

					alertEngine := alerts.NewEngine(
						directory,
						&alerts.MongoHistory{},
						&alerts.MongoLocks{},
						&alerts.MongoEvents{},
						&alerts.MongoGeofences{},
						&alerts.MongoUsers{},
						notificationQueue,
					)

					subscriptions := NewRawLogSubscriptions()
					if err := subscriptions.Refresh(ctx); err != nil {
						log.Error().Err(err).Msg("Failed to load raw log subscriptions")
					}
					go subscriptions.Run(ctx)

					router := &Router{
						History: historySink,
						Latest:  latestSink,
						Health:  healthSink,
						SOS:     sosSink,
						RawLog:  rawLogSink,

						Alerts:        alertEngine,
						Subscriptions: subscriptions,
					}

					go func() {
						if err := stats.StartMetricsServer(metricsPort); err != nil {
							log.Error().Err(err).Msg("Metrics server stopped")
						}
					}()

					classic := &Listener{
						Address:    classicAddress,
						Terminator: framer.TerminatorChecksum,
						Ack:        ackEnabled,
						Decoder:    decoder,
						Router:     router,
					}
					extended := &Listener{
						Address:    extendedAddress,
						Terminator: framer.TerminatorCRLF,
						Ack:        ackEnabled,
						Decoder:    decoder,
						Router:     router,
					}

					go func() {
						if err := classic.Run(ctx); err != nil {
							log.Fatal().Err(err).Msg("Classic listener failed")
						}
					}()
					go func() {
						if err := extended.Run(ctx); err != nil {
							log.Fatal().Err(err).Msg("Extended listener failed")
						}
					}()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					log.Info().Msg("Shutting down, draining sinks")
					stop()
					for _, s := range sinks {
						s.Wait()
					}

					return nil
				},
			},
		},
	}
}
