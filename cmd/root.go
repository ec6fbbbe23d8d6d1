package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/people-analytics/internal/config"
)

var (
	cfg      *config.Config
	dataPath string
)

var rootCmd = &cobra.Command{
	Use:   "people-analytics",
	Short: "360° performance evaluation analytics",
	Long: `Scores 360° evaluation results laid out as <base>/<person>/<year>/resultado.json,
ranks people within each year, tracks trends across years, surfaces stakeholder
perception gaps, and renders terminal, Excel, Markdown and HTML reports.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dataPath != "" {
			c.Data.BasePath = dataPath
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "evaluation tree base path (overrides data.base_path)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
