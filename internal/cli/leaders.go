package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"supernode-rewards/internal/app"
)

var (
	leadersType   string
	leadersFilter string
	leadersQuery  string
	leadersPage   int
	leadersLimit  int
)

var leadersCmd = &cobra.Command{
	Use:   "leaders",
	Short: "Display a reward leaderboard page",
	RunE: func(cmd *cobra.Command, args []string) error {
		if leadersPage <= 0 {
			return fmt.Errorf("--page must be greater than zero")
		}

		opts := app.LeadersOptions{
			Type:   leadersType,
			Filter: leadersFilter,
			Query:  leadersQuery,
			Page:   leadersPage,
			Limit:  leadersLimit,
		}

		return getApp().Leaders(cmd.Context(), opts)
	},
}

func init() {
	leadersCmd.Flags().StringVar(&leadersType, "type", "", "Reward type (base-referral, builder-generational, empty for all)")
	leadersCmd.Flags().StringVar(&leadersFilter, "filter", "week", "Date window (day, week, month, year)")
	leadersCmd.Flags().StringVar(&leadersQuery, "query", "", "Substring search on username or wallet")
	leadersCmd.Flags().IntVar(&leadersPage, "page", 1, "Page number")
	leadersCmd.Flags().IntVar(&leadersLimit, "limit", 0, "Page size (defaults to config)")
}
