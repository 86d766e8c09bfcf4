package domain

import (
	"fmt"
	"strings"
	"time"
)

var (
	rucFactors     = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}
	rucPrefixes    = map[string]bool{"10": true, "15": true, "17": true, "20": true}
	placeholderDNI = map[string]bool{
		"00000000": true, "11111111": true, "22222222": true, "33333333": true,
		"44444444": true, "55555555": true, "66666666": true, "77777777": true,
		"88888888": true, "99999999": true, "12345678": true, "87654321": true,
	}
)

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ValidateRUC checks length, taxpayer prefix and the modulo-11 check digit.
func ValidateRUC(ruc string) error {
	if len(ruc) != 11 || !allDigits(ruc) {
		return fmt.Errorf("RUC must have 11 digits")
	}
	if !rucPrefixes[ruc[:2]] {
		return fmt.Errorf("invalid RUC taxpayer type %s", ruc[:2])
	}
	sum := 0
	for i, f := range rucFactors {
		sum += int(ruc[i]-'0') * f
	}
	rest := sum % 11
	check := 11 - rest
	if rest < 2 {
		check = rest
	}
	if int(ruc[10]-'0') != check {
		return fmt.Errorf("RUC check digit mismatch")
	}
	return nil
}

// ValidateDNI checks an 8-digit national id that is not a known placeholder.
func ValidateDNI(dni string) error {
	if len(dni) != 8 || !allDigits(dni) {
		return fmt.Errorf("DNI must have 8 digits")
	}
	if placeholderDNI[dni] {
		return fmt.Errorf("DNI is a placeholder value")
	}
	return nil
}

// ValidateIdentity dispatches on the identity type.
func ValidateIdentity(t IdentityType, number string) error {
	switch t {
	case IdentityRUC:
		return ValidateRUC(number)
	case IdentityDNI:
		return ValidateDNI(number)
	case IdentityNone:
		return nil
	default:
		if strings.TrimSpace(number) == "" {
			return fmt.Errorf("identity number is required")
		}
		return nil
	}
}

// QRPayload renders the pipe-delimited payload printed as the document's QR code.
func QRPayload(issuerRUC string, doc *FiscalDocument) string {
	var number int64
	if doc.Number != nil {
		number = *doc.Number
	}
	idType, idNumber := string(IdentityNone), ""
	if doc.Customer != nil {
		idType, idNumber = string(doc.Customer.IdentityType), doc.Customer.IdentityNumber
	}
	return strings.Join([]string{
		issuerRUC,
		string(doc.Type),
		doc.SeriesCode,
		fmt.Sprintf("%d", number),
		FormatMoney(doc.Totals.TaxTotal),
		FormatMoney(doc.Totals.GrandTotal),
		doc.IssueDate.Format(time.DateOnly),
		idType,
		idNumber,
	}, "|") + "|"
}
