package notify

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cordonnx/cordonnx/pkg/consumer"
	"github.com/cordonnx/cordonnx/pkg/database"
	"github.com/cordonnx/cordonnx/pkg/redis_client"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// AlertQueueName is where the alert engine publishes and this service
// consumes.
const AlertQueueName = "alert-notifications"

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Provides the alert notification delivery system",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run notification delivery",
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					push := &PushManager{}
					if err := push.Setup(); err != nil {
						log.Error().Err(err).Msg("Push notifications disabled")
						push = nil
					}

					redisConsumer := consumer.RedisConsumer{
						QueueName:       AlertQueueName,
						NumberConsumers: 5,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewAlertBatchConsumer(NewEmailSender(), push),
					}
					redisConsumer.Setup()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
		},
	}
}
