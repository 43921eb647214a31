package servecmder

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relaykit/anthrelay/pkg/logger"
	"github.com/relaykit/anthrelay/proxy"
)

const serveLongDesc string = `Run the relay server.

The server accepts normalized chat requests on POST /api/chat, translates
them into Anthropic messages API calls, and relays the reply back as plain
text (streamed or whole). Configuration comes from an optional TOML file
plus flags; the API key falls back to ANTHROPIC_API_KEY.

Examples:
  anthrelay serve
  anthrelay serve --config /etc/anthrelay.toml --listen :6080
  anthrelay serve --db ~/.anthrelay/transcripts.db`

const serveShortDesc string = "Run the relay server"

type serveCommander struct {
	configPath string
	listenAddr string
	dbPath     string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config file")
	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", "", "Address to listen on (default :8080)")
	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Path to SQLite transcript database (default: in-memory)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) run() error {
	log := logger.NewLogger(c.debug)
	defer log.Sync()

	config, err := proxy.LoadConfig(c.configPath)
	if err != nil {
		return err
	}

	// Flags override the file.
	if c.listenAddr != "" {
		config.ListenAddr = c.listenAddr
	}
	if c.dbPath != "" {
		config.DBPath = c.dbPath
	}
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}

	log.Info("anthrelay starting",
		zap.String("listen", config.ListenAddr),
		zap.Bool("debug", c.debug),
	)

	p, err := proxy.New(config, log)
	if err != nil {
		return err
	}
	defer p.Close()

	return p.Run()
}
