package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/dash480-integration/cmd"
)

func main() {
	app := &cli.App{
		Name:   "dash480-controller",
		Usage:  "keeps dash480 wall panels in sync with home assistant",
		Action: cmd.Dash480Command,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "ha-url",
				EnvVars: []string{"HA_URL"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "ha-token",
				EnvVars: []string{"HA_TOKEN"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "database-url",
				EnvVars: []string{"DATABASE_URL"},
				Value:   "",
			},
			&cli.StringSliceFlag{
				Name:    "panel-nodes",
				EnvVars: []string{"PANEL_NODES"},
			},
			&cli.DurationFlag{
				Name:    "debounce-window",
				EnvVars: []string{"DEBOUNCE_WINDOW"},
				Value:   250 * time.Millisecond,
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
