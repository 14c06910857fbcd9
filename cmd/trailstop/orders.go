package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/trailstop/internal/config"
	"github.com/raykavin/trailstop/internal/simulation"
	"github.com/raykavin/trailstop/pkg/core"
	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

func runOrders(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	store, err := simulation.OpenStorage(cfg.Storage)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	filters := make([]core.OrderFilter, 0, 2)
	if market != "" {
		filters = append(filters, core.WithMarket(core.MarketID(market)))
	}
	if status != "" {
		filters = append(filters, core.WithStatus(core.OrderStatusType(strings.ToUpper(status))))
	}

	orders, err := store.Orders(filters...)
	if err != nil {
		return err
	}

	if limit > 0 && len(orders) > limit {
		slices.SortStableFunc(orders, func(a, b core.Order) int {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		})
		orders = orders[:limit]
	}

	printOrders(cmd.OutOrStdout(), orders)
	return nil
}

func printOrders(out io.Writer, orders []core.Order) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Market", "Side", "Trail", "Trigger", "Total", "Filled", "Status", "Updated"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, order := range orders {
		state := string(order.Status)
		if !order.Canonical() {
			state = fmt.Sprintf("MERGED -> %d", order.MergedInto)
		}

		table.Append([]string{
			strconv.FormatUint(uint64(order.ID), 10),
			string(order.Market),
			order.Direction.String(),
			order.Percentage.String(),
			strconv.FormatInt(order.TriggerTick, 10),
			order.TotalAmount.String(),
			order.FilledAmount.String(),
			state,
			order.UpdatedAt.Format(timeLayout),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "", "", "ORDERS", strconv.Itoa(len(orders))})
	table.Render()
}
