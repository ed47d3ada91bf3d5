// Command pricectl prices line items, quotes costs and merges cost documents
// offline. Input files may be JSON or YAML; output is JSON on stdout.
//
// Usage:
//
//	pricectl compute --input item.json --settings rates.yaml
//	pricectl quote --cost 100 --wholesale 40 --msrp 50
//	pricectl merge --prev stored.json --next recomputed.json
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Simplici0/woodshop/internal/pricing"
	"github.com/Simplici0/woodshop/internal/resync"
	"github.com/Simplici0/woodshop/internal/settings"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "pricectl",
		Short:        "Offline furniture pricing tools",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.AddCommand(newComputeCmd(), newQuoteCmd(), newMergeCmd())
	return root
}

func newComputeCmd() *cobra.Command {
	var (
		inputPath    string
		settingsPath string
		preserveWood bool
		maxMargin    float64
	)
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute the cost breakdown and prices of a line item",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var input pricing.LineItemInput
			if err := readDocument(inputPath, &input); err != nil {
				return err
			}

			rates := settings.Defaults()
			if settingsPath != "" {
				rates = pricing.RateSettings{}
				if err := readDocument(settingsPath, &rates); err != nil {
					return err
				}
				if err := settings.Validate(rates); err != nil {
					return fmt.Errorf("settings %s: %w", settingsPath, err)
				}
			}

			var opts []pricing.Option
			if preserveWood {
				opts = append(opts, pricing.PreserveWoodOverrides())
			}
			breakdown := pricing.Compute(input, rates, opts...)
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"breakdown": breakdown,
				"quote":     pricing.QuoteFor(breakdown.GrandTotal, rates.Margins, maxMargin),
			})
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "line item file (JSON or YAML)")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "rate settings file; built-in defaults when empty")
	cmd.Flags().BoolVar(&preserveWood, "preserve-wood", false, "keep stored wood row costs instead of catalog prices")
	cmd.Flags().Float64Var(&maxMargin, "max-margin", pricing.DefaultMaxMargin, "highest margin percent applied")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	var cost, wholesale, msrp, maxMargin float64
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Carry a cost through wholesale and MSRP margins",
		RunE: func(cmd *cobra.Command, _ []string) error {
			margins := pricing.Margins{Wholesale: pricing.Number(wholesale), MSRP: pricing.Number(msrp)}
			return writeJSON(cmd.OutOrStdout(), pricing.QuoteFor(cost, margins, maxMargin))
		},
	}
	cmd.Flags().Float64Var(&cost, "cost", 0, "unit cost")
	cmd.Flags().Float64Var(&wholesale, "wholesale", 0, "wholesale margin percent")
	cmd.Flags().Float64Var(&msrp, "msrp", 0, "MSRP margin percent, applied on top of wholesale")
	cmd.Flags().Float64Var(&maxMargin, "max-margin", pricing.DefaultMaxMargin, "highest margin percent applied")
	_ = cmd.MarkFlagRequired("cost")
	return cmd
}

func newMergeCmd() *cobra.Command {
	var prevPath, nextPath string
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge a recomputed cost document onto a stored one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var prev, next resync.Details
			if err := readDocument(prevPath, &prev); err != nil {
				return err
			}
			if err := readDocument(nextPath, &next); err != nil {
				return err
			}
			merged, report := resync.MergeWithReport(prev, next)
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"details":       merged,
				"materialsKept": report.MaterialsKept,
			})
		},
	}
	cmd.Flags().StringVar(&prevPath, "prev", "", "stored cost document")
	cmd.Flags().StringVar(&nextPath, "next", "", "recomputed cost document")
	_ = cmd.MarkFlagRequired("prev")
	_ = cmd.MarkFlagRequired("next")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
