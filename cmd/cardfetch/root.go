package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/cardfetch/internal/config"
	"github.com/ramonehamilton/cardfetch/internal/logging"
	"github.com/ramonehamilton/cardfetch/internal/mtg/cards/scryfall"
	"github.com/ramonehamilton/cardfetch/internal/version"
)

// globalOptions holds the persistent flags and the loaded configuration.
type globalOptions struct {
	verbosity  int
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "cardfetch",
		Short: "Resolve decklists to card printings and fetch their artwork",
		Long: `cardfetch reads a decklist in one of several community formats, picks one
specific printing for every card, and downloads the artwork into the
card maker's game/ directory layout.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				path = config.DefaultPath()
			}

			cfg, err := config.LoadFrom(path)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config %s: %w", path, err)
			}
			g.cfg = cfg

			logging.SetupLogger(max(g.verbosity, cfg.Log.Verbosity))
			log.Debug().Str("command", cmd.Name()).Str("config", path).Msg("Command started")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/cardfetch/config.toml)")

	cmd.AddCommand(
		newFetchCmd(g),
		newCatalogCmd(g),
		newFormatsCmd(),
		newVersionCmd(),
	)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newScryfallClient builds an API client from the [catalog] section.
func newScryfallClient(cfg *config.Config) (*scryfall.Client, error) {
	rateLimit, err := cfg.GetRateLimit()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.GetTimeout()
	if err != nil {
		return nil, err
	}

	return scryfall.NewClient(
		scryfall.WithBaseURL(cfg.Catalog.BaseURL),
		scryfall.WithUserAgent(cfg.Catalog.UserAgent),
		scryfall.WithRateLimit(rateLimit),
		scryfall.WithTimeout(timeout),
		scryfall.WithRetries(cfg.Catalog.MaxRetries, 0),
	), nil
}
