package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/streamshield/streamshield/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configMgr, err := config.NewManager(GetConfigFile())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		data, err := yaml.Marshal(configMgr.Get())
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}

		fmt.Printf("# %s\n%s", configMgr.GetConfigPath(), data)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
