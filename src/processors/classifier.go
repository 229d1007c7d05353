package processors

import (
	"strings"

	"github.com/username/insiderfolio/backend/src/models"
)

// Labels produced by Classify. LabelPlannedSaleDerivative is only ever
// applied by the matcher, to planned sales linked to an exercise.
const (
	LabelTaxToIssuer           = "Tax - Sale to Issuer"
	LabelTaxOpenMarket         = "Tax - Open Market"
	LabelPlannedSale           = "10b5-1 Planned Sale"
	LabelPlannedSaleDerivative = "10b5-1 Planned Sale (Derivative)"
	LabelSale                  = "Sale"
	LabelPlannedBuy            = "10b5-1 Planned Buy"
	LabelAcquisition           = "Acquisition"
	LabelPurchase              = "Purchase"
	LabelOptionExercise        = "Option Exercise"
	LabelConversion            = "Conversion"
	LabelGift                  = "Gift"
	LabelDispositionToIssuer   = "Disposition to Issuer"
	LabelTaxWithholding        = "Tax Withholding"
	LabelOther                 = "Other"
	LabelUnknown               = "Unknown"
)

// otherKnownCodes are transaction codes we recognize but do not classify
// further.
var otherKnownCodes = map[string]bool{
	"I": true, "E": true, "H": true, "J": true, "K": true, "L": true,
	"O": true, "U": true, "V": true, "W": true, "X": true, "Z": true,
}

// Classify maps a transaction code plus the plan and tax flags to a
// human-readable label. Precedence is fixed: tax beats plan, plan beats the
// plain code label. Unknown codes classify as Unknown rather than failing.
func Classify(code string, isPlan bool, taxType models.TaxType) string {
	c := strings.ToUpper(strings.TrimSpace(code))

	switch taxType {
	case models.TaxTypeIssuer:
		return LabelTaxToIssuer
	case models.TaxTypeOpenMarket:
		return LabelTaxOpenMarket
	}

	switch c {
	case "S":
		if isPlan {
			return LabelPlannedSale
		}
		return LabelSale
	case "P", "A":
		if isPlan {
			return LabelPlannedBuy
		}
		if c == "A" {
			return LabelAcquisition
		}
		return LabelPurchase
	case "M":
		return LabelOptionExercise
	case "C":
		return LabelConversion
	case "G":
		return LabelGift
	case "D":
		return LabelDispositionToIssuer
	case "F":
		return LabelTaxWithholding
	}

	if otherKnownCodes[c] {
		return LabelOther
	}
	return LabelUnknown
}

// LinkRoleFor maps (code, taxType) to the role used for roll-up grouping.
// Pure lookup, total over the code alphabet.
func LinkRoleFor(code string, taxType models.TaxType) models.LinkRole {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "M", "C", "X", "O":
		return models.LinkRoleExercise
	case "S":
		switch taxType {
		case models.TaxTypeIssuer:
			return models.LinkRoleTaxSaleIssuer
		case models.TaxTypeOpenMarket:
			return models.LinkRoleTaxSaleOpen
		}
		return models.LinkRoleSaleCommon
	case "F", "D":
		return models.LinkRoleTaxSaleIssuer
	}
	return models.LinkRoleOther
}
