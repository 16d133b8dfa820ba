package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"

	"github.com/webitel/valuegraph/config"
)

const (
	ServiceName      = "valuegraph"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

// Run parses os.Args and dispatches to the selected subcommand.
func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Reactive value graph runtime",
		Commands: []*cli.Command{
			serverCmd(),
			inspectCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the graph server (cache, ws/lp cell-mirror endpoints)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
			&cli.StringFlag{
				Name:  "listen_addr",
				Usage: "HTTP listen address",
			},
		},
		Action: func(c *cli.Context) error {
			flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
			flags.String("listen_addr", c.String("listen_addr"), "HTTP listen address")
			if c.IsSet("listen_addr") {
				if err := flags.Set("listen_addr", c.String("listen_addr")); err != nil {
					return err
				}
			}

			cfg, err := config.LoadConfig(c.String("config_file"), flags)
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("shutting down...")
			return app.Stop(context.Background())
		},
	}
}

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Render a live terminal dashboard of the demo cell graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			if _, err := config.LoadConfig(c.String("config_file"), nil); err != nil {
				return err
			}

			reg := ProvideCellRegistry()
			return RunInspect(reg.Sources())
		},
	}
}
