package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"supernode-rewards/internal/app"
)

var (
	settleDate string
	settleUser string
)

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Run one settlement pass for a given day",
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now().UTC()
		if settleDate != "" {
			parsed, err := time.Parse("2006-01-02", settleDate)
			if err != nil {
				return fmt.Errorf("invalid --date value: %w", err)
			}
			day = parsed
		}

		opts := app.SettleOptions{
			Day:    day,
			UserID: settleUser,
		}

		return getApp().Settle(cmd.Context(), opts)
	},
}

func init() {
	settleCmd.Flags().StringVar(&settleDate, "date", "", "Day to settle (YYYY-MM-DD, defaults to today)")
	settleCmd.Flags().StringVar(&settleUser, "user", "", "Narrow the run to a single user id")
}
