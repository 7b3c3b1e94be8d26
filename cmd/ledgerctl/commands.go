package main

import (
	"fmt"
	"text/tabwriter"

	"produce-ledger/config"
	"produce-ledger/internal/models"

	"github.com/spf13/cobra"
)

var withCredential bool

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Manage record store tables",
}

var tablesEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create missing tables and reset drifted headers",
	Long: `Ensure creates every table the ledger uses and writes its header row.
A table whose header no longer lists every declared column has its header
rewritten in place. Data rows are never touched.`,
	Args: cobra.NoArgs,
	RunE: runTablesEnsure,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and edit the produce catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List produce items and their unit prices",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var catalogSetCmd = &cobra.Command{
	Use:   "set <item> <price>",
	Short: "Add an item or change its unit price",
	Example: `  ledgerctl catalog set apples 2.49
  ledgerctl catalog set "red onions" 1.10`,
	Args: cobra.ExactArgs(2),
	RunE: runCatalogSet,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print every order grouped by customer with totals",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	tablesEnsureCmd.Flags().BoolVar(&withCredential, "with-password", false,
		"include the password_hash column in the customers table (defaults to AUTH_MODE=password)")
	tablesCmd.AddCommand(tablesEnsureCmd)

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogSetCmd)
}

func runTablesEnsure(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("with-password") {
		withCredential = cfg.Auth.Mode == config.AuthModePassword
	}

	for _, schema := range models.Schemas(withCredential) {
		t, err := st.EnsureTable(cmd.Context(), schema.Name, schema.Header)
		if err != nil {
			return fmt.Errorf("ensure %s: %w", schema.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-14s %d columns\n", t.Name(), len(t.Header()))
	}
	return nil
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	items, err := newCatalog().Items(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tUNIT PRICE")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\n", it.Item, models.FormatPrice(it.UnitPrice))
	}
	return w.Flush()
}

func runCatalogSet(cmd *cobra.Command, args []string) error {
	price, err := models.ParsePrice(args[1])
	if err != nil {
		return err
	}

	item, err := newCatalog().Upsert(cmd.Context(), args[0], price)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", item.Item, models.FormatPrice(item.UnitPrice))
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	report, err := newOrderService().AdminReport(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tORDER\tITEM\tQTY\tUNIT\tTOTAL\tCREATED")
	for _, o := range report.Orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			o.Username, o.OrderID, o.Item, o.Quantity,
			models.FormatPrice(o.UnitPrice), models.FormatPrice(o.LineTotal),
			models.FormatTime(o.CreatedAt))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, t := range report.Totals {
		fmt.Fprintf(w, "%s\t%s\n", t.Username, models.FormatPrice(t.Total))
	}
	fmt.Fprintf(w, "TOTAL\t%s\n", models.FormatPrice(report.GrandTotal))
	return w.Flush()
}
