package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/username/insiderfolio/backend/src/models"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		code     string
		isPlan   bool
		taxType  models.TaxType
		expected string
	}{
		{"plain sale", "S", false, models.TaxTypeNone, LabelSale},
		{"planned sale", "S", true, models.TaxTypeNone, LabelPlannedSale},
		{"tax to issuer wins over plan", "S", true, models.TaxTypeIssuer, LabelTaxToIssuer},
		{"tax open market wins over plan", "S", true, models.TaxTypeOpenMarket, LabelTaxOpenMarket},
		{"purchase", "P", false, models.TaxTypeNone, LabelPurchase},
		{"planned buy", "P", true, models.TaxTypeNone, LabelPlannedBuy},
		{"acquisition", "A", false, models.TaxTypeNone, LabelAcquisition},
		{"planned acquisition", "A", true, models.TaxTypeNone, LabelPlannedBuy},
		{"option exercise", "M", false, models.TaxTypeNone, LabelOptionExercise},
		{"conversion", "C", false, models.TaxTypeNone, LabelConversion},
		{"gift", "G", false, models.TaxTypeNone, LabelGift},
		{"disposition to issuer", "D", false, models.TaxTypeNone, LabelDispositionToIssuer},
		{"tax withholding", "F", false, models.TaxTypeNone, LabelTaxWithholding},
		{"known other code", "J", false, models.TaxTypeNone, LabelOther},
		{"lowercase code accepted", "s", false, models.TaxTypeNone, LabelSale},
		{"padded code accepted", " M ", false, models.TaxTypeNone, LabelOptionExercise},
		{"unknown code", "Q", false, models.TaxTypeNone, LabelUnknown},
		{"empty code", "", false, models.TaxTypeNone, LabelUnknown},
		{"tax beats exercise code", "M", false, models.TaxTypeIssuer, LabelTaxToIssuer},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.code, tc.isPlan, tc.taxType))
		})
	}
}

func TestLinkRoleFor(t *testing.T) {
	testCases := []struct {
		name     string
		code     string
		taxType  models.TaxType
		expected models.LinkRole
	}{
		{"M is exercise", "M", models.TaxTypeNone, models.LinkRoleExercise},
		{"C is exercise", "C", models.TaxTypeNone, models.LinkRoleExercise},
		{"X is exercise", "X", models.TaxTypeNone, models.LinkRoleExercise},
		{"O is exercise", "O", models.TaxTypeNone, models.LinkRoleExercise},
		{"plain S is sale-common", "S", models.TaxTypeNone, models.LinkRoleSaleCommon},
		{"S with issuer tax", "S", models.TaxTypeIssuer, models.LinkRoleTaxSaleIssuer},
		{"S with open-market tax", "S", models.TaxTypeOpenMarket, models.LinkRoleTaxSaleOpen},
		{"F is tax-sale-issuer", "F", models.TaxTypeNone, models.LinkRoleTaxSaleIssuer},
		{"D is tax-sale-issuer", "D", models.TaxTypeNone, models.LinkRoleTaxSaleIssuer},
		{"G is other", "G", models.TaxTypeNone, models.LinkRoleOther},
		{"P is other", "P", models.TaxTypeNone, models.LinkRoleOther},
		{"unknown is other", "Q", models.TaxTypeNone, models.LinkRoleOther},
		{"lowercase code accepted", "m", models.TaxTypeNone, models.LinkRoleExercise},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, LinkRoleFor(tc.code, tc.taxType))
		})
	}
}
