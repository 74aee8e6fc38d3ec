package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "streamshield",
		Short: "StreamShield - privacy-preserving CCTV stream player",
		Long: `StreamShield plays a network camera stream through a privacy-filter
pipeline (face and number-plate obfuscation) and renders it into a native
window, with an HTTP + WebSocket control surface.

Features:
  • RTSP camera ingest with configurable latency
  • Toggleable privacy filters without pipeline rebuilds
  • Automatic loop-restart on end-of-stream
  • Seek and position tracking over the control API
  • Stream metadata reports (codec, language, bitrate)`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/streamshield/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "control server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path.
func GetConfigFile() string {
	return cfgFile
}
