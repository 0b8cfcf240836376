package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	configx "github.com/tanpawarit/Chative-Local-Concierge/pkg/config"
	logx "github.com/tanpawarit/Chative-Local-Concierge/pkg/logger"
	_ "github.com/tanpawarit/Chative-Local-Concierge/pkg/logger/autoload"
)

var version = "1.0.0"

func main() {
	app := &cli.App{
		Name:    "concierge",
		Usage:   "Conversational local business discovery",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Path to .env file",
			},
		},
		Before: func(c *cli.Context) error {
			configx.SetEnvFile(c.String("env"))
			return configureLogging()
		},
		Commands: []*cli.Command{
			serveCommand(),
			chatCommand(),
			mcpCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("concierge exited")
	}
}

// configureLogging re-reads LOG_* once the .env file is known; autoload ran
// before flags were parsed.
func configureLogging() error {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		return err
	}
	logx.Init(*conf)
	return nil
}
