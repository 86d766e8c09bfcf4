package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"fiscaldoc/internal/calc"
	"fiscaldoc/internal/domain"
)

// cartFile is the YAML shape accepted by "fiscalctl calc". Amounts are
// strings so no precision is lost in parsing.
type cartFile struct {
	Currency         string     `yaml:"currency"`
	ExchangeRate     string     `yaml:"exchange_rate"`
	PriceIncludesTax bool       `yaml:"price_includes_tax"`
	Lines            []cartLine `yaml:"lines"`
}

type cartLine struct {
	Description     string `yaml:"description"`
	Quantity        string `yaml:"quantity"`
	UnitPrice       string `yaml:"unit_price"`
	DiscountPercent string `yaml:"discount_percent"`
	Affectation     string `yaml:"affectation"`
	FreeOfCharge    bool   `yaml:"free_of_charge"`
}

func (a *app) calcCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "calc [cart.yaml]",
		Short: "Compute line amounts and totals for a YAML cart",
		Long: `Reads a cart from a YAML file (or stdin when the argument is "-" or
missing) and prints the per-line amounts and the document totals using the
configured tax rate and home currency. Nothing is persisted.`,
		Example: `  fiscalctl calc cart.yaml
  cat cart.yaml | fiscalctl calc -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, err := a.jsonOutput()
			if err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening cart: %w", err)
				}
				defer f.Close()
				in = f
			}

			cart, descriptions, err := readCart(in, cfg.Engine.HomeCurrency)
			if err != nil {
				return err
			}
			result, err := calc.NewCalculator(cfg.Engine.TaxRate, cfg.Engine.HomeCurrency).Calculate(cart)
			if err != nil {
				return err
			}
			if asJSON {
				return writeCalcJSON(cmd.OutOrStdout(), result)
			}
			return writeCalcText(cmd.OutOrStdout(), result, descriptions)
		},
	}
}

// readCart decodes and parses a YAML cart. Every unparseable amount is
// reported at once.
func readCart(r io.Reader, homeCurrency string) (calc.Request, []string, error) {
	var f cartFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return calc.Request{}, nil, domain.NewValidationError("lines", "at least one line is required")
		}
		return calc.Request{}, nil, fmt.Errorf("decoding cart: %w", err)
	}

	verr := &domain.ValidationError{}
	req := calc.Request{
		Currency:         strings.ToUpper(f.Currency),
		PriceIncludesTax: f.PriceIncludesTax,
		Lines:            make([]calc.LineInput, 0, len(f.Lines)),
	}
	if req.Currency == "" {
		req.Currency = homeCurrency
	}
	req.ExchangeRate = parseAmount(verr, "exchange_rate", f.ExchangeRate)

	descriptions := make([]string, 0, len(f.Lines))
	for i, l := range f.Lines {
		prefix := fmt.Sprintf("lines[%d].", i)
		affectation := domain.Affectation(l.Affectation)
		if affectation == "" {
			affectation = domain.AffectationTaxable
		}
		req.Lines = append(req.Lines, calc.LineInput{
			Quantity:        parseAmount(verr, prefix+"quantity", l.Quantity),
			UnitPrice:       parseAmount(verr, prefix+"unit_price", l.UnitPrice),
			DiscountPercent: parseAmount(verr, prefix+"discount_percent", l.DiscountPercent),
			Affectation:     affectation,
			FreeOfCharge:    l.FreeOfCharge,
		})
		descriptions = append(descriptions, l.Description)
	}
	if verr.HasErrors() {
		return calc.Request{}, nil, verr
	}
	return req, descriptions, nil
}

func parseAmount(verr *domain.ValidationError, field, s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		verr.Addf(field, "%q is not a number", s)
		return decimal.Zero
	}
	return d
}

func writeCalcText(w io.Writer, r *calc.Result, descriptions []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tDESCRIPTION\tCLASS\tBASE\tTAX\tTOTAL\tREFERENCE\t")
	for i, l := range r.Lines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n", i+1, descriptions[i], l.Class.Name,
			domain.FormatMoney(l.Base), domain.FormatMoney(l.Tax), domain.FormatMoney(l.Total),
			domain.FormatMoney(l.ReferenceValue))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	writeTotals(w, r.Currency, r.Totals)
	if r.HomeTotals != nil {
		fmt.Fprintf(w, "\nat %s:\n", r.ExchangeRate.String())
		writeTotals(w, "home", *r.HomeTotals)
	}
	return nil
}

func writeTotals(w io.Writer, label string, t domain.Totals) {
	rows := []struct {
		name  string
		value decimal.Decimal
	}{
		{"subtotal", t.Subtotal},
		{"discount", t.DiscountTotal},
		{"taxable", t.TaxableBase},
		{"tax", t.TaxTotal},
		{"exempt", t.ExemptTotal},
		{"not taxed", t.NotTaxedTotal},
		{"export", t.ExportTotal},
		{"free", t.FreeTotal},
		{"grand total", t.GrandTotal},
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, row := range rows {
		fmt.Fprintf(tw, "%s %s\t%s\t\n", label, row.name, domain.FormatMoney(row.value))
	}
	_ = tw.Flush()
}

type calcLineJSON struct {
	Classification string `json:"classification"`
	Base           string `json:"base"`
	Tax            string `json:"tax"`
	Total          string `json:"total"`
	ReferenceValue string `json:"reference_value"`
}

func totalsJSON(t domain.Totals) map[string]string {
	return map[string]string{
		"subtotal":        domain.FormatMoney(t.Subtotal),
		"discount_total":  domain.FormatMoney(t.DiscountTotal),
		"taxable_base":    domain.FormatMoney(t.TaxableBase),
		"tax_total":       domain.FormatMoney(t.TaxTotal),
		"exempt_total":    domain.FormatMoney(t.ExemptTotal),
		"not_taxed_total": domain.FormatMoney(t.NotTaxedTotal),
		"export_total":    domain.FormatMoney(t.ExportTotal),
		"free_total":      domain.FormatMoney(t.FreeTotal),
		"grand_total":     domain.FormatMoney(t.GrandTotal),
	}
}

func writeCalcJSON(w io.Writer, r *calc.Result) error {
	out := struct {
		Currency     string            `json:"currency"`
		ExchangeRate string            `json:"exchange_rate"`
		Lines        []calcLineJSON    `json:"lines"`
		Totals       map[string]string `json:"totals"`
		HomeTotals   map[string]string `json:"home_totals,omitempty"`
	}{
		Currency:     r.Currency,
		ExchangeRate: r.ExchangeRate.String(),
		Lines:        make([]calcLineJSON, len(r.Lines)),
		Totals:       totalsJSON(r.Totals),
	}
	for i, l := range r.Lines {
		out.Lines[i] = calcLineJSON{
			Classification: l.Class.Name,
			Base:           domain.FormatMoney(l.Base),
			Tax:            domain.FormatMoney(l.Tax),
			Total:          domain.FormatMoney(l.Total),
			ReferenceValue: domain.FormatMoney(l.ReferenceValue),
		}
	}
	if r.HomeTotals != nil {
		out.HomeTotals = totalsJSON(*r.HomeTotals)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
