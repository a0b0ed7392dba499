package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/simaogato/cryptodash-backend/internal/usecase/ledger"
	"github.com/simaogato/cryptodash-backend/internal/usecase/marketdata"
	"github.com/simaogato/cryptodash-backend/internal/usecase/valuation"
)

var commands = []subcommands.Command{
	&marketsCmd{},
	&portfolioCmd{},
	&historyCmd{},
	&buyCmd{},
	&removeCmd{},
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

// markets

type marketsCmd struct {
	search string
	sortBy string
	desc   bool
}

func (*marketsCmd) Name() string     { return "markets" }
func (*marketsCmd) Synopsis() string { return "list the top assets by market capitalisation" }
func (*marketsCmd) Usage() string {
	return `cryptodash markets [-search <text>] [-sort <key>] [-desc]

  Fetches the market once and prints it. Sort keys: name, symbol, current_price,
  market_cap, price_change_percentage_24h, total_volume.
`
}

func (c *marketsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.search, "search", "", "Case-insensitive filter on name or symbol.")
	f.StringVar(&c.sortBy, "sort", "", "Sort key. Defaults to the feed order.")
	f.BoolVar(&c.desc, "desc", false, "Sort descending.")
}

func (c *marketsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	sortBy, err := marketdata.ParseSortKey(c.sortBy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	snap := s.refresh(ctx)
	assets := marketdata.Query{Search: c.search, SortBy: sortBy, Descending: c.desc}.Apply(snap.Assets)
	printMarkets(os.Stdout, assets)
	return subcommands.ExitSuccess
}

func printMarkets(w io.Writer, assets []domain.Asset) {
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tSYMBOL\tPRICE\t24H\tMARKET CAP\tVOLUME\t")
	for _, a := range assets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			a.Name, a.Symbol,
			formatPrice(a.CurrentPrice),
			formatPercent(a.PriceChangePercent24h),
			formatUSD(a.MarketCap),
			formatUSD(a.TotalVolume24h),
		)
	}
	tw.Flush()
}

// portfolio

type portfolioCmd struct{}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "show positions valued at current prices" }
func (*portfolioCmd) Usage() string {
	return `cryptodash portfolio

  Prints every position with its current value and profit/loss, then the totals
  and the allocation by asset.
`
}

func (*portfolioCmd) SetFlags(*flag.FlagSet) {}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	s.refresh(ctx)
	valuations := s.ledger.ListPositionsWithValuation(ctx)
	if len(valuations) == 0 {
		fmt.Println("No positions. Use `cryptodash buy` to add one.")
		return subcommands.ExitSuccess
	}

	printPortfolio(os.Stdout, valuations, s.ledger.PortfolioTotals(ctx), s.ledger.Allocation(ctx))
	return subcommands.ExitSuccess
}

func printPortfolio(w io.Writer, valuations []valuation.PositionValuation, totals valuation.Totals, slices []valuation.AllocationSlice) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ASSET\tQUANTITY\tBOUGHT AT\tPRICE\tVALUE\tP/L\tP/L %\t")
	for _, v := range valuations {
		name := v.Position.AssetID
		if v.Asset != nil {
			name = v.Asset.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			name,
			v.Position.Quantity.String(),
			formatPrice(v.Position.PurchasePrice),
			formatPrice(v.CurrentPrice),
			formatUSD(v.CurrentValue),
			formatUSD(v.ProfitLoss),
			formatPercent(v.ProfitLossPercent),
		)
	}
	fmt.Fprintf(tw, "TOTAL\t\t%s\t\t%s\t%s\t%s\t\n",
		formatUSD(totals.TotalCostBasis),
		formatUSD(totals.TotalValue),
		formatUSD(totals.TotalProfitLoss),
		formatPercent(totals.TotalProfitLossPercent),
	)
	tw.Flush()

	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "ALLOCATION\tVALUE\tSHARE\t")
	for _, a := range slices {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t\n", a.AssetID, formatUSD(a.Value), a.Percent.StringFixed(2))
	}
	tw.Flush()
}

// history

type historyCmd struct {
	kind string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list the transaction log, most recent first" }
func (*historyCmd) Usage() string {
	return `cryptodash history [-kind buy|sell|transfer]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "", "Only show transactions of this kind.")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var kind *domain.TransactionKind
	if c.kind != "" {
		k, err := domain.ParseTransactionKind(c.kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v: %q\n", err, c.kind)
			return subcommands.ExitUsageError
		}
		kind = &k
	}

	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	printHistory(os.Stdout, s.ledger.ListTransactions(ctx, kind))
	return subcommands.ExitSuccess
}

func printHistory(w io.Writer, transactions []domain.Transaction) {
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tKIND\tASSET\tQUANTITY\tUNIT PRICE\tVALUE\t")
	for _, tx := range transactions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			tx.Timestamp.Local().Format("2006-01-02 15:04"),
			tx.Kind,
			tx.AssetID,
			tx.Quantity.String(),
			formatPrice(tx.UnitPrice),
			formatUSD(tx.Value()),
		)
	}
	tw.Flush()
}

// buy

type buyCmd struct {
	assetID  string
	amount   string
	currency string
	date     string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a simulated purchase at the current price" }
func (*buyCmd) Usage() string {
	return `cryptodash buy -asset <id> -amount <n> [-currency <code>] [-date <YYYY-MM-DD>]

  The amount is in the asset's own symbol (e.g. BTC) or in a fiat currency, in
  which case it is converted to a quantity at the current price.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.assetID, "asset", "", "Asset ID, e.g. bitcoin.")
	f.StringVar(&c.amount, "amount", "", "Amount to buy.")
	f.StringVar(&c.currency, "currency", "USD", "Unit of the amount: the asset symbol or a fiat code.")
	f.StringVar(&c.date, "date", "", "Acquisition date. Defaults to now.")
}

func (c *buyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.assetID == "" || c.amount == "" {
		fmt.Fprintln(os.Stderr, "both -asset and -amount are required")
		return subcommands.ExitUsageError
	}

	input := ledger.AddPositionInput{
		AssetID:      c.assetID,
		Amount:       c.amount,
		CurrencyCode: c.currency,
	}
	if c.date != "" {
		acquiredAt, err := time.ParseInLocation("2006-01-02", c.date, time.Local)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		input.AcquiredAt = acquiredAt
	}

	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	s.refresh(ctx)
	position, tx, err := s.ledger.AddPosition(ctx, input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Bought %s %s at %s (%s)\nposition %s\n",
		position.Quantity.String(), position.AssetID,
		formatPrice(position.PurchasePrice), formatUSD(tx.Value()),
		position.ID)
	return subcommands.ExitSuccess
}

// remove

type removeCmd struct{}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "delete a position; the transaction log is kept" }
func (*removeCmd) Usage() string {
	return `cryptodash remove <position-id>
`
}

func (*removeCmd) SetFlags(*flag.FlagSet) {}

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	id, err := uuid.Parse(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid position id: %v\n", err)
		return subcommands.ExitUsageError
	}

	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	if err := s.ledger.RemovePosition(ctx, id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println("Removed", id)
	return subcommands.ExitSuccess
}
