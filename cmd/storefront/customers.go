package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/ledger"
)

var customersFlags struct {
	orders string
	query  string
	json   bool
}

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Build the seller customer ledger from an orders export",
	Long: `Reads a seller orders export (the JSON returned by the backend's
seller orders endpoint, either a bare array or {"orders": [...]}) and
prints one row per customer, highest spend first, plus the payout balance.`,
	Example: `  storefront customers --orders orders.json
  storefront customers --orders - --q ana --json < orders.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := readInput(cmd.InOrStdin(), customersFlags.orders)
		if err != nil {
			return err
		}
		orders, err := api.DecodeOrders(data)
		if err != nil {
			return errors.Wrap(err, "decode orders")
		}
		entries := api.LedgerOrders(orders)
		customers := ledger.FilterCustomers(ledger.Aggregate(entries), customersFlags.query)
		if customersFlags.json {
			return writeCustomersJSON(cmd.OutOrStdout(), customers, ledger.Balance(entries))
		}
		return writeCustomers(cmd.OutOrStdout(), customers, ledger.Balance(entries))
	},
}

func init() {
	f := customersCmd.Flags()
	f.StringVar(&customersFlags.orders, "orders", "", "orders export file, or - for stdin")
	f.StringVar(&customersFlags.query, "q", "", "only customers whose name or email contains this")
	f.BoolVar(&customersFlags.json, "json", false, "print JSON instead of a table")
	_ = customersCmd.MarkFlagRequired("orders")
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return data, errors.Wrap(err, "read stdin")
	}
	data, err := os.ReadFile(path)
	return data, errors.Wrapf(err, "read %s", path)
}

func writeCustomers(w io.Writer, customers []ledger.Customer, balance float64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CUSTOMER\tEMAIL\tORDERS\tTOTAL\tAVERAGE\tLAST ORDER")
	for _, c := range customers {
		last := "-"
		if !c.LastOrder.IsZero() {
			last = c.LastOrder.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\t%s\n",
			c.Name, c.Email, c.OrderCount, c.TotalSpent, c.AverageOrder(), last)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d customers, balance %.2f\n", len(customers), balance)
	return err
}

type customerJSON struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	OrderCount   int     `json:"order_count"`
	TotalSpent   float64 `json:"total_spent"`
	AverageOrder float64 `json:"average_order"`
	LastOrder    string  `json:"last_order,omitempty"`
}

func writeCustomersJSON(w io.Writer, customers []ledger.Customer, balance float64) error {
	rows := make([]customerJSON, 0, len(customers))
	for _, c := range customers {
		row := customerJSON{
			ID:           c.ID,
			Name:         c.Name,
			Email:        c.Email,
			OrderCount:   c.OrderCount,
			TotalSpent:   c.TotalSpent,
			AverageOrder: c.AverageOrder(),
		}
		if !c.LastOrder.IsZero() {
			row.LastOrder = c.LastOrder.Format("2006-01-02T15:04:05Z07:00")
		}
		rows = append(rows, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"customers": rows,
		"balance":   balance,
	})
}
