package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/partsdesk/internal/app"
)

func newProductsCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Bulk catalogue import and export",
	}
	cmd.AddCommand(newProductsImportCommand(s), newProductsExportCommand(s))
	return cmd
}

func newProductsImportCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create or update products from a CSV file",
		Long: "Rows are matched on sku. Existing products take the price and catalogue\n" +
			"columns present in the file; stock is only set for new products.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			res, err := app.ImportProducts(cmd.Context(), a.InventoryService, a.Logger, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created %d, updated %d, skipped %d\n", res.Created, res.Updated, len(res.Errors))
			for _, e := range res.Errors {
				fmt.Fprintf(out, "  %s\n", e)
			}
			return nil
		},
	}
}

func newProductsExportCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Write the catalogue to a CSV file (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("creating %s: %w", args[0], err)
				}
				defer f.Close()
				w = f
			}

			n, err := app.ExportProducts(cmd.Context(), a.InventoryService, w)
			if err != nil {
				return err
			}
			if args[0] != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d products to %s\n", n, args[0])
			}
			return nil
		},
	}
}
