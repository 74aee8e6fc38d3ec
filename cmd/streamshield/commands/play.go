package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/streamshield/streamshield/internal/api"
	"github.com/streamshield/streamshield/internal/config"
	"github.com/streamshield/streamshield/internal/graph"
	"github.com/streamshield/streamshield/internal/inhibit"
	"github.com/streamshield/streamshield/internal/logger"
	"github.com/streamshield/streamshield/internal/overlay"
	"github.com/streamshield/streamshield/internal/player"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start playback of the configured camera stream",
	Long: `Build the processing pipeline from the configuration, open the render
window, start the control server and begin playing.

Set GST_DEBUG_DUMP_DOT_DIR to a directory to get pipeline graph dumps on
every state transition.`,
	Example: `  # Play with the default config
  streamshield play

  # Play a specific camera
  streamshield play --config /etc/streamshield/gate-cam.yaml

  # Debug a misbehaving pipeline
  GST_DEBUG_DUMP_DOT_DIR=/tmp/dots streamshield play --log-level debug`,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			configMgr.SetPort(port)
		}
	}
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			configMgr.SetLogLevel(level)
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("main")
	log.Info().Str("config", configMgr.GetConfigPath()).Str("source", cfg.Source.URI).Msg("Starting StreamShield")

	// Fatal path: node creation or static link failures are configuration
	// errors, aborted before entering any state.
	rt, err := graph.NewGstRuntime("cctv-player")
	if err != nil {
		return fmt.Errorf("failed to initialize media runtime: %w", err)
	}

	specs := graph.FromConfig(cfg)
	if err := graph.Validate(specs); err != nil {
		return fmt.Errorf("invalid pipeline description: %w", err)
	}
	topo, err := graph.Build(rt, specs)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	// Idle inhibition is best-effort: a headless session has no
	// screensaver to hold off.
	var idle player.Inhibitor
	if ss, err := inhibit.NewScreenSaver("streamshield", "CCTV playback"); err != nil {
		log.Warn().Err(err).Msg("Screensaver inhibition unavailable")
	} else {
		idle = ss
		defer ss.Close()
	}

	srv := api.NewServer()
	p := player.New(rt, topo, srv, idle)
	srv.AttachPlayer(p)

	for _, f := range cfg.Filters {
		if f.Property == "" {
			// Always-on filter, nothing to toggle.
			continue
		}
		if err := p.Toggles.Register(player.FilterToggle{
			ID:       f.ID,
			Node:     f.ID,
			Property: f.Property,
			Enabled:  f.Enabled,
			OnLabel:  f.OnLabel,
			OffLabel: f.OffLabel,
		}); err != nil {
			return fmt.Errorf("failed to register filter %q: %w", f.ID, err)
		}
	}

	// The drawable must reach the sink before the first frame needs it.
	provider, err := overlay.NewX11Provider(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return fmt.Errorf("failed to open display: %w", err)
	}
	defer provider.Close()

	binder := overlay.NewBinder(rt, topo)
	if err := binder.Bind(provider); err != nil {
		return fmt.Errorf("failed to bind render surface: %w", err)
	}

	go func() {
		if err := srv.Start(cfg.ServerPort); err != nil {
			log.Error().Err(err).Msg("Control server stopped")
		}
	}()

	if err := p.Start(); err != nil {
		p.Teardown()
		return fmt.Errorf("unable to start playback: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")
	p.Teardown()
	return nil
}
