package pricing

import "github.com/shopspring/decimal"

// VATFactor is 1 + Chilean VAT (19%).
var VATFactor = decimal.RequireFromString("1.19")

// Invoice holds the per-unit invoicing figures derived from an approved
// cover.
type Invoice struct {
	// TotalPerUnitUsd is the gross USD invoice value of one unit.
	TotalPerUnitUsd decimal.Decimal `json:"total_per_unit_usd"`
	// NetPerUnitUsd is TotalPerUnitUsd without VAT.
	NetPerUnitUsd decimal.Decimal `json:"net_per_unit_usd"`
	// TotalClp is the CLP invoice total of one unit at the all-in rate.
	TotalClp decimal.Decimal `json:"total_clp"`
}

// ComputeInvoice derives invoice figures:
//
//	total per unit = businessUsd * clientRate / (allInRate * units)
//	net per unit   = total / 1.19
//	total CLP      = total * allInRate
//
// A non-positive all-in rate yields zeros; units <= 0 count as one unit.
func ComputeInvoice(businessUsd, clientRate, allInRate decimal.Decimal, units int) Invoice {
	if !allInRate.IsPositive() {
		return Invoice{TotalPerUnitUsd: decimal.Zero, NetPerUnitUsd: decimal.Zero, TotalClp: decimal.Zero}
	}
	if units <= 0 {
		units = 1
	}

	total := businessUsd.Mul(clientRate).Div(allInRate.Mul(decimal.NewFromInt(int64(units))))
	return Invoice{
		TotalPerUnitUsd: total.Round(2),
		NetPerUnitUsd:   total.Div(VATFactor).Round(2),
		TotalClp:        total.Mul(allInRate).Round(0),
	}
}
