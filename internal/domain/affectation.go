package domain

// Affectation is the tax-affectation code of a line item.
type Affectation string

const (
	AffectationTaxable  Affectation = "10"
	AffectationExempt   Affectation = "20"
	AffectationNotTaxed Affectation = "30"
	AffectationExport   Affectation = "40"
)

// TaxBucket is the aggregate bucket a line contributes to.
type TaxBucket string

const (
	BucketTaxable  TaxBucket = "taxable"
	BucketExempt   TaxBucket = "exempt"
	BucketNotTaxed TaxBucket = "not_taxed"
	BucketExport   TaxBucket = "export"
)

// TaxClass declares how an affectation is taxed. All computation consults these
// values; adding a rule means adding a row to the table.
type TaxClass struct {
	Code             Affectation
	Name             string
	AppliesRate      bool
	Bucket           TaxBucket
	DiscountEligible bool
}

var taxClasses = map[Affectation]TaxClass{
	AffectationTaxable: {
		Code: AffectationTaxable, Name: "taxable",
		AppliesRate: true, Bucket: BucketTaxable, DiscountEligible: true,
	},
	AffectationExempt: {
		Code: AffectationExempt, Name: "exempt",
		AppliesRate: false, Bucket: BucketExempt, DiscountEligible: true,
	},
	AffectationNotTaxed: {
		Code: AffectationNotTaxed, Name: "not-taxed",
		AppliesRate: false, Bucket: BucketNotTaxed, DiscountEligible: true,
	},
	// Export sales are billed at the agreed value; discounts belong in the price.
	AffectationExport: {
		Code: AffectationExport, Name: "export",
		AppliesRate: false, Bucket: BucketExport, DiscountEligible: false,
	},
}

// LookupTaxClass returns the classification for an affectation code.
func LookupTaxClass(code Affectation) (TaxClass, bool) {
	c, ok := taxClasses[code]
	return c, ok
}

// TaxClasses returns a copy of the classification table.
func TaxClasses() []TaxClass {
	out := make([]TaxClass, 0, len(taxClasses))
	for _, code := range []Affectation{AffectationTaxable, AffectationExempt, AffectationNotTaxed, AffectationExport} {
		out = append(out, taxClasses[code])
	}
	return out
}
