package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"
)

func buildApp() *cli.App {
	app := cli.NewApp()
	app.Name = "arangocli"
	app.Usage = "send single requests to ArangoDB"
	app.Version = "0.4.0"

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "log each request to stderr",
		},
	}

	app.Commands = []cli.Command{
		Send(),
		Version(),
	}
	return app
}

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := buildApp().Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("arangocli failed")
	}
}
