package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"supernode-rewards/internal/leaderboard"
	"supernode-rewards/internal/rewards"
)

// Leaders prints a leaderboard page.
func (a *App) Leaders(ctx context.Context, opts LeadersOptions) error {
	typ, err := rewards.ParseType(opts.Type)
	if err != nil {
		return err
	}
	filter, err := rewards.ParseFilter(opts.Filter)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	c, closeCache := a.openCache()
	if closeCache != nil {
		defer closeCache()
	}

	svc := a.newLeaderboard(store, c)

	result, err := svc.TopLeaders(ctx, leaderboard.Params{
		Type:   typ,
		Filter: filter,
		Query:  opts.Query,
		Page:   opts.Page,
		Limit:  opts.Limit,
	})
	if err != nil {
		return err
	}

	if len(result.List) == 0 {
		fmt.Fprintln(os.Stdout, "no leaders found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Rank\tUsername\tWallet\tAmount\tToken")

	for _, entry := range result.List {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%s\t%s\n",
			entry.Rank,
			entry.Username,
			entry.WalletAddress,
			entry.TokenAmount.String(),
			entry.TokenSymbol,
		)
	}
	writer.Flush()

	fmt.Fprintf(os.Stdout, "page %d/%d, %d leaders\n", result.CurrentPage, result.TotalPages, result.TotalCount)
	return nil
}
