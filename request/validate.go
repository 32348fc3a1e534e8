package request

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/warp/hedge-desk/coverage"
	"github.com/warp/hedge-desk/locale"
	"github.com/warp/hedge-desk/pricing"
)

// Form limits.
const (
	MaxClientLen         = 200
	MaxBankLen           = 100
	MaxUnits             = 10000
	MaxInternalNumbers   = 100
	MaxInternalNumberLen = 50
	MaxSIELen            = 50
	MaxNotesLen          = 2000
	MaxPayments          = 50

	MaxExecutiveNameLen = 200
	MaxContactLen       = 50
)

// DueDateLayout is the format of Payment.DueDate.
const DueDateLayout = "2006-01-02"

var (
	MaxBusinessAmountUsd = decimal.NewFromInt(999_999_999)

	rutPattern   = regexp.MustCompile(`^\d{1,2}\.\d{3}\.\d{3}-[\dkK]$`)
	phonePattern = regexp.MustCompile(`^[+]?[0-9\s()-]+$`)
)

// Validate checks a request against the form rules. It returns
// ValidationErrors, or nil when the request is valid.
func Validate(r Request) error {
	v := ValidationErrors{}

	client := strings.TrimSpace(r.Client)
	switch {
	case client == "":
		v.add("client", "client name is required")
	case utf8.RuneCountInString(client) > MaxClientLen:
		v.add("client", fmt.Sprintf("client name cannot exceed %d characters", MaxClientLen))
	}

	switch {
	case r.RUT == "":
		v.add("rut", "RUT is required")
	case !rutPattern.MatchString(r.RUT):
		v.add("rut", "invalid RUT format, expected 12.345.678-9")
	case !locale.ValidateRUT(r.RUT):
		v.add("rut", "invalid RUT check digit")
	}

	switch {
	case !r.BusinessAmountUsd.IsPositive():
		v.add("business_amount_usd", "amount must be greater than 0")
	case r.BusinessAmountUsd.GreaterThan(MaxBusinessAmountUsd):
		v.add("business_amount_usd", "amount is too large")
	}

	if r.Units < 1 || r.Units > MaxUnits {
		v.add("units", fmt.Sprintf("units must be between 1 and %d", MaxUnits))
	}

	if len(r.InternalNumbers) > MaxInternalNumbers {
		v.add("internal_numbers", fmt.Sprintf("cannot add more than %d internal numbers", MaxInternalNumbers))
	}
	for _, n := range r.InternalNumbers {
		if utf8.RuneCountInString(strings.TrimSpace(n)) > MaxInternalNumberLen {
			v.add("internal_numbers", fmt.Sprintf("internal numbers cannot exceed %d characters", MaxInternalNumberLen))
			break
		}
	}

	if !r.ReferenceRate.Valid || !r.ReferenceRate.Decimal.IsPositive() {
		v.add("reference_rate", "reference rate must be greater than 0")
	}
	optionalPositive(v, "client_rate", r.ClientRate)
	optionalPositive(v, "spot_rate", r.SpotRate)
	optionalPositive(v, "all_in_rate", r.AllInRate)

	if p := r.CoveragePercent; p.Valid && (p.Decimal.IsNegative() || p.Decimal.GreaterThan(decimal.NewFromInt(100))) {
		v.add("coverage_percent", "percent must be between 0 and 100")
	}
	if r.ForwardDays < 0 || r.ForwardDays > pricing.MaxForwardDays {
		v.add("forward_days", fmt.Sprintf("forward days must be between 0 and %d", pricing.MaxForwardDays))
	}

	if utf8.RuneCountInString(r.Bank) > MaxBankLen {
		v.add("bank", fmt.Sprintf("bank name cannot exceed %d characters", MaxBankLen))
	}
	if utf8.RuneCountInString(strings.TrimSpace(r.SIENumber)) > MaxSIELen {
		v.add("sie_number", fmt.Sprintf("SIE number cannot exceed %d characters", MaxSIELen))
	}
	if utf8.RuneCountInString(strings.TrimSpace(r.Notes)) > MaxNotesLen {
		v.add("notes", fmt.Sprintf("notes cannot exceed %d characters", MaxNotesLen))
	}

	validatePayments(v, r.Payments)
	return v.err()
}

func validatePayments(v ValidationErrors, payments []coverage.Payment) {
	switch {
	case len(payments) == 0:
		v.add("payments", "at least one payment method is required")
	case len(payments) > MaxPayments:
		v.add("payments", fmt.Sprintf("cannot add more than %d payment methods", MaxPayments))
	}
	if coverage.CountRemainingBalance(payments) > 1 {
		v.add("payments", "only one payment can carry the remaining balance")
	}

	for i, p := range payments {
		field := func(name string) string { return fmt.Sprintf("payments[%d].%s", i, name) }

		if !p.Type.Valid() {
			v.add(field("type"), fmt.Sprintf("unknown payment type %q", p.Type))
		}
		// The remaining-balance payment is derived and may legitimately be 0.
		if p.IsRemainingBalance {
			if p.AmountClp.IsNegative() {
				v.add(field("amount_clp"), "amount cannot be negative")
			}
		} else if !p.AmountClp.IsPositive() {
			v.add(field("amount_clp"), "amount must be greater than 0")
		}
		if p.DueDate == "" {
			v.add(field("due_date"), "due date is required")
		} else if _, err := time.Parse(DueDateLayout, p.DueDate); err != nil {
			v.add(field("due_date"), "due date must be YYYY-MM-DD")
		}
	}
}

func optionalPositive(v ValidationErrors, field string, n decimal.NullDecimal) {
	if n.Valid && !n.Decimal.IsPositive() {
		v.add(field, "rate must be greater than 0")
	}
}

// ValidateExecutive checks a bank executive against the contact form rules.
func ValidateExecutive(e Executive) error {
	v := ValidationErrors{}

	name := strings.TrimSpace(e.Name)
	switch {
	case name == "":
		v.add("name", "name is required")
	case utf8.RuneCountInString(name) > MaxExecutiveNameLen:
		v.add("name", fmt.Sprintf("name cannot exceed %d characters", MaxExecutiveNameLen))
	}

	bank := strings.TrimSpace(e.Bank)
	switch {
	case bank == "":
		v.add("bank", "bank name is required")
	case utf8.RuneCountInString(bank) > MaxBankLen:
		v.add("bank", fmt.Sprintf("bank name cannot exceed %d characters", MaxBankLen))
	}

	phone := strings.TrimSpace(e.ContactNumber)
	switch {
	case phone == "":
		v.add("contact_number", "contact number is required")
	case utf8.RuneCountInString(phone) > MaxContactLen:
		v.add("contact_number", fmt.Sprintf("contact number cannot exceed %d characters", MaxContactLen))
	case !phonePattern.MatchString(phone):
		v.add("contact_number", "invalid phone format")
	}

	return v.err()
}
