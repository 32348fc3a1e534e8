package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/warp/hedge-desk/coverage"
	"github.com/warp/hedge-desk/locale"
)

var coverageFlags struct {
	usd       string
	reference string
	client    string
	percent   string
	payments  []string
	asJSON    bool
}

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Print the coverage projection of a payment schedule",
	Example: `  hedge-desk coverage --usd 12500 --reference 800 \
      --payment DOWN_PAYMENT:4.000.000 --payment FINANCING:6000000`,
	RunE: runCoverage,
}

var rutCmd = &cobra.Command{
	Use:   "rut RUT...",
	Short: "Validate and format RUTs",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, rut := range args {
			status := "invalid"
			if locale.ValidateRUT(rut) {
				status = "valid"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", locale.FormatRUT(rut), status)
		}
	},
}

func init() {
	f := coverageCmd.Flags()
	f.StringVar(&coverageFlags.usd, "usd", "", "business amount in USD")
	f.StringVar(&coverageFlags.reference, "reference", "", "reference rate (CLP per USD, es-CL: 935,20)")
	f.StringVar(&coverageFlags.client, "client", "", "client rate (CLP per USD, es-CL: 940,30)")
	f.StringVar(&coverageFlags.percent, "percent", "", "applied coverage percent override")
	f.StringArrayVar(&coverageFlags.payments, "payment", nil, "TYPE:AMOUNT_CLP, repeatable")
	f.BoolVar(&coverageFlags.asJSON, "json", false, "print the raw result as JSON")
	_ = coverageCmd.MarkFlagRequired("usd")
}

func runCoverage(cmd *cobra.Command, _ []string) error {
	payments, err := parsePayments(coverageFlags.payments)
	if err != nil {
		return err
	}
	res := coverage.Calculate(payments, coverage.Params{
		AppliedPercent:    optionalAmount(coverageFlags.percent),
		ClientRate:        optionalAmount(coverageFlags.client),
		ReferenceRate:     optionalAmount(coverageFlags.reference),
		BusinessAmountUsd: optionalAmount(coverageFlags.usd),
	})

	out := cmd.OutOrStdout()
	if coverageFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	rows := []struct {
		label string
		value string
	}{
		{"Total negocio USD", locale.FormatCurrency(res.TotalBusinessUsd, locale.CurrencyUSD)},
		{"Total negocio CLP", locale.FormatCurrency(res.TotalBusinessClp, locale.CurrencyCLP)},
		{"Base cobertura CLP", locale.FormatCurrency(res.CoverageBaseClp, locale.CurrencyCLP)},
		{"Base cobertura USD", locale.FormatCurrency(res.CoverageBaseUsd, locale.CurrencyUSD)},
		{"% sugerido", locale.FormatPercent(res.SuggestedCoveragePercent)},
		{"% aplicado", locale.FormatPercent(res.AppliedCoveragePercent)},
		{"Cubierto USD", locale.FormatCurrency(res.CoveredExposureUsd, locale.CurrencyUSD)},
		{"Descubierto USD", locale.FormatCurrency(res.UncoveredExposureUsd, locale.CurrencyUSD)},
		{"Cubierto CLP", locale.FormatCurrency(res.CoveredExposureClp, locale.CurrencyCLP)},
		{"Descubierto CLP", locale.FormatCurrency(res.UncoveredExposureClp, locale.CurrencyCLP)},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%-20s %s\n", r.label, r.value)
	}
	return nil
}

// parsePayments reads TYPE:AMOUNT pairs. Amounts use es-CL notation.
func parsePayments(specs []string) ([]coverage.Payment, error) {
	payments := make([]coverage.Payment, 0, len(specs))
	for _, s := range specs {
		typ, amount, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("payment %q: expected TYPE:AMOUNT", s)
		}
		pt := coverage.PaymentType(strings.ToUpper(strings.TrimSpace(typ)))
		if !pt.Valid() {
			return nil, fmt.Errorf("payment %q: unknown type %s", s, pt)
		}
		payments = append(payments, coverage.Payment{Type: pt, AmountClp: locale.ParseAmount(amount)})
	}
	return payments, nil
}

// optionalAmount parses an es-CL figure; empty means absent.
func optionalAmount(s string) decimal.NullDecimal {
	if strings.TrimSpace(s) == "" {
		return coverage.None()
	}
	return coverage.Some(locale.ParseAmount(s))
}
