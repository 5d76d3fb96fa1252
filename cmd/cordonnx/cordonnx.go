package main

import (
	"context"
	"os"
	"time"

	"github.com/cordonnx/cordonnx/pkg/ais140"
	"github.com/cordonnx/cordonnx/pkg/canbus"
	"github.com/cordonnx/cordonnx/pkg/listener"
	"github.com/cordonnx/cordonnx/pkg/notify"
	"github.com/kr/pretty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("CORDONNX_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("CORDONNX_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "cordonnx",
		Description: "Single binary of truth for CordonNX - runs all the services",

		Commands: []*cli.Command{
			listener.RegisterCLI(),
			notify.RegisterCLI(),
			{
				Name:      "decode",
				Usage:     "decode a single raw frame and dump the result",
				ArgsUsage: "<frame>",
				Action: func(c *cli.Context) error {
					registry, err := canbus.LoadProfiles()
					if err != nil {
						return err
					}

					canEngine := canbus.NewEngine(registry, nil, nil)
					decoder := ais140.NewDecoder(nil, &standaloneCAN{engine: canEngine})

					packet := decoder.Decode(context.Background(), c.Args().First())
					pretty.Println(packet)

					return nil
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}

// standaloneCAN decodes CAN frames without touching stored vehicle
// state, for offline frame inspection.
type standaloneCAN struct {
	engine *canbus.Engine
}

func (s *standaloneCAN) HandleFrames(ctx context.Context, imei string, frames []canbus.Frame, timestamp time.Time) (map[string]interface{}, error) {
	profile := s.engine.Registry.Get(canbus.GenericProfileName)

	signals := canbus.Decode(frames, profile)

	return signals, nil
}
