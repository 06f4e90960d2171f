package cli

import (
	"github.com/spf13/cobra"

	"supernode-rewards/internal/app"
)

var (
	graphTimeline string
	graphType     string
	graphCSVPath  string
	graphPNGPath  string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the cumulative reward series as CSV and/or PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.GraphOptions{
			Timeline: graphTimeline,
			Type:     graphType,
			CSVPath:  graphCSVPath,
			PNGPath:  graphPNGPath,
		}

		return getApp().Graph(cmd.Context(), opts)
	},
}

func init() {
	graphCmd.Flags().StringVar(&graphTimeline, "timeline", "weekly", "Chart timeline (weekly, monthly, yearly)")
	graphCmd.Flags().StringVar(&graphType, "type", "", "Reward type (base-referral, builder-generational, empty for all)")
	graphCmd.Flags().StringVar(&graphCSVPath, "csv", "", "Path to write CSV data")
	graphCmd.Flags().StringVar(&graphPNGPath, "png", "", "Path to write PNG chart")
}
