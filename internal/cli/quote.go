package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"parkspot-backend/internal/config"
	"parkspot-backend/internal/discount"
	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/jobs"
	"parkspot-backend/internal/metrics"
	"parkspot-backend/internal/pricing"
	"parkspot-backend/internal/quote"
	"parkspot-backend/internal/repository/yamlfile"
	"parkspot-backend/internal/service"
	"parkspot-backend/internal/tax"
)

var timeLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04"}

type quoteOptions struct {
	configPath string
	catalog    string
	rules      string
	strict     bool
	spot       string
	start      string
	end        string
	vehicle    string
	age        int
	pwd        bool
	userType   string
	membership string
	bookings   int
	attrs      []string
	vatRate    string
	timezone   string
	output     string
}

func newQuoteCmd() *cobra.Command {
	opts := &quoteOptions{}
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price one booking against a catalog and rule file",
		Long: `Price one booking the way the server does: resolve the spot's hourly rate,
apply every matching discount and compute VAT. Times without an offset are
read in the pricing timezone.`,
		Example: `  pricingctl quote --catalog catalog.yaml --rules rules.yaml --spot spot-1 \
    --start 2025-03-10T10:00 --end 2025-03-10T12:30 --age 65`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Server config file to take pricing settings from")
	f.StringVar(&opts.catalog, "catalog", "", "Location catalog YAML")
	f.StringVar(&opts.rules, "rules", "", "Discount rule YAML (no discounts when omitted)")
	f.BoolVar(&opts.strict, "strict", false, "Skip rules that fail validation")
	f.StringVar(&opts.spot, "spot", "", "Spot ID to book")
	f.StringVar(&opts.start, "start", "", "Booking start (RFC 3339 or 2006-01-02T15:04)")
	f.StringVar(&opts.end, "end", "", "Booking end (RFC 3339 or 2006-01-02T15:04)")
	f.StringVar(&opts.vehicle, "vehicle", string(domain.VehicleTypeCar), "Vehicle type")
	f.IntVar(&opts.age, "age", 0, "Customer age")
	f.BoolVar(&opts.pwd, "pwd", false, "Customer holds a PWD ID")
	f.StringVar(&opts.userType, "user-type", "", "Customer type, e.g. student")
	f.StringVar(&opts.membership, "membership", "", "Membership level")
	f.IntVar(&opts.bookings, "bookings", 0, "Customer's total previous bookings")
	f.StringArrayVar(&opts.attrs, "attr", nil, "Extra attribute as key=value; dotted keys nest (company.name=Acme)")
	f.StringVar(&opts.vatRate, "vat-rate", "0.12", "VAT rate as a fraction")
	f.StringVar(&opts.timezone, "timezone", "Asia/Manila", "Pricing timezone for peak and night hours")
	f.StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")

	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func runQuote(cmd *cobra.Command, opts *quoteOptions) error {
	if opts.output != "text" && opts.output != "json" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	pricingCfg, strict, err := opts.settings()
	if err != nil {
		return err
	}
	loc, err := pricingCfg.Location()
	if err != nil {
		return err
	}
	rate, err := pricingCfg.Rate()
	if err != nil {
		return err
	}
	schedule, err := pricingCfg.Schedule()
	if err != nil {
		return err
	}
	vat, err := tax.NewCalculator(rate)
	if err != nil {
		return err
	}

	catalog, err := yamlfile.LoadCatalog(opts.catalog)
	if err != nil {
		return err
	}

	m := metrics.New()
	engine := discount.NewEngine()
	if opts.rules != "" {
		cfg := &config.Config{Rules: config.RulesConfig{StrictValidation: strict}}
		runner := jobs.NewJobRunner(yamlfile.NewRuleStore(opts.rules), engine, noopHealth{}, m, cfg)
		if _, err := runner.RefreshDiscountRulesNow(cmd.Context()); err != nil {
			return err
		}
	}

	resolver := pricing.NewResolver(pricing.WithLocation(loc), pricing.WithSchedule(schedule))
	quotes := service.NewQuoteService(catalog, quote.NewCalculator(resolver, engine, vat), m)

	req, err := opts.request(cmd, loc)
	if err != nil {
		return err
	}
	cost, err := quotes.Quote(cmd.Context(), req)
	if err != nil {
		return err
	}

	if opts.output == "json" {
		return writeQuoteJSON(cmd.OutOrStdout(), req, cost)
	}
	return writeQuoteText(cmd.OutOrStdout(), req, cost, loc)
}

// settings returns pricing settings from --config when given, else from flags.
func (o *quoteOptions) settings() (config.PricingConfig, bool, error) {
	if o.configPath == "" {
		return config.PricingConfig{VATRate: o.vatRate, Timezone: o.timezone}, o.strict, nil
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.PricingConfig{}, false, err
	}
	return cfg.Pricing, o.strict || cfg.Rules.StrictValidation, nil
}

func (o *quoteOptions) request(cmd *cobra.Command, loc *time.Location) (service.QuoteRequest, error) {
	spotID, err := domain.NewSpotID(o.spot)
	if err != nil {
		return service.QuoteRequest{}, err
	}
	start, err := parseTime(o.start, loc)
	if err != nil {
		return service.QuoteRequest{}, fmt.Errorf("--start: %w", err)
	}
	end, err := parseTime(o.end, loc)
	if err != nil {
		return service.QuoteRequest{}, fmt.Errorf("--end: %w", err)
	}
	window, err := domain.NewTimeRange(start, end)
	if err != nil {
		return service.QuoteRequest{}, err
	}
	vehicle, err := domain.ParseVehicleType(o.vehicle)
	if err != nil {
		return service.QuoteRequest{}, err
	}

	user := domain.UserContext{UserType: o.userType, MembershipLevel: o.membership}
	flags := cmd.Flags()
	if flags.Changed("age") {
		user.Age = &o.age
	}
	if flags.Changed("pwd") {
		user.HasPWDID = &o.pwd
	}
	if flags.Changed("bookings") {
		user.TotalBookings = &o.bookings
	}
	if user.Attributes, err = parseAttributes(o.attrs); err != nil {
		return service.QuoteRequest{}, err
	}

	return service.QuoteRequest{SpotID: spotID, Window: window, Vehicle: vehicle, User: user}, nil
}

func parseTime(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a time", raw)
}

// parseAttributes turns key=value pairs into user attributes. Values are
// read as YAML scalars, so 42 is a number and true a bool.
func parseAttributes(pairs []string) (map[string]domain.Value, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	tree := make(map[string]any)
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("attribute %q must be key=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		if err := setPath(tree, strings.Split(key, "."), value); err != nil {
			return nil, fmt.Errorf("attribute %q: %w", pair, err)
		}
	}

	attrs := make(map[string]domain.Value, len(tree))
	for key, raw := range tree {
		value, err := domain.ValueFromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		attrs[key] = value
	}
	return attrs, nil
}

func setPath(tree map[string]any, path []string, value any) error {
	for _, segment := range path[:len(path)-1] {
		next, ok := tree[segment]
		if !ok {
			child := make(map[string]any)
			tree[segment] = child
			tree = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%q already holds a value", segment)
		}
		tree = child
	}
	tree[path[len(path)-1]] = value
	return nil
}

func writeQuoteText(w io.Writer, req service.QuoteRequest, cost *quote.BookingCost, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	r := cost.Rate
	fmt.Fprintf(tw, "Spot\t%s\n", req.SpotID)
	fmt.Fprintf(tw, "Window\t%s to %s (%d billable hours)\n",
		req.Window.Start().In(loc).Format(timeLayouts[1]), req.Window.End().In(loc).Format(timeLayouts[1]), r.BillableHours)
	fmt.Fprintf(tw, "Rate\t%s/h from %s, vehicle x%s, %s x%s\n",
		r.BaseRate, r.Level, r.VehicleMultiplier, r.TimeBand, r.TimeMultiplier)
	fmt.Fprintf(tw, "Base\t%s\n", cost.BaseAmount)
	for _, d := range cost.Discounts {
		note := ""
		if d.IsVATExempt {
			note = " (VAT exempt)"
		}
		fmt.Fprintf(tw, "Discount\t-%s  %s %s%s\n", d.Amount, d.Name, d.Percentage, note)
	}
	vat := cost.Transaction.VAT
	if vat.IsExempt {
		fmt.Fprintf(tw, "VAT\t%s (exempt)\n", cost.VATAmount)
	} else {
		fmt.Fprintf(tw, "VAT\t%s at %s%%\n", cost.VATAmount, vat.VATRate.Shift(2))
	}
	fmt.Fprintf(tw, "Total\t%s\n", cost.TotalAmount)
	return tw.Flush()
}

type quoteJSON struct {
	SpotID         string         `json:"spot_id"`
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
	Currency       string         `json:"currency"`
	BillableHours  int64          `json:"billable_hours"`
	HourlyRate     string         `json:"hourly_rate"`
	BaseAmount     string         `json:"base_amount"`
	DiscountAmount string         `json:"discount_amount"`
	VATAmount      string         `json:"vat_amount"`
	TotalAmount    string         `json:"total_amount"`
	VATExempt      bool           `json:"vat_exempt"`
	Discounts      []discountJSON `json:"discounts"`
}

type discountJSON struct {
	RuleID     string `json:"rule_id"`
	Name       string `json:"name"`
	Percentage string `json:"percentage"`
	Amount     string `json:"amount"`
	VATExempt  bool   `json:"vat_exempt"`
}

func writeQuoteJSON(w io.Writer, req service.QuoteRequest, cost *quote.BookingCost) error {
	out := quoteJSON{
		SpotID:         string(req.SpotID),
		Start:          req.Window.Start(),
		End:            req.Window.End(),
		Currency:       string(cost.TotalAmount.Currency()),
		BillableHours:  cost.Rate.BillableHours,
		HourlyRate:     cost.Rate.EffectiveHourlyRate.StringFixed(2),
		BaseAmount:     cost.BaseAmount.Amount().StringFixed(2),
		DiscountAmount: cost.DiscountAmount.Amount().StringFixed(2),
		VATAmount:      cost.VATAmount.Amount().StringFixed(2),
		TotalAmount:    cost.TotalAmount.Amount().StringFixed(2),
		VATExempt:      cost.Transaction.VAT.IsExempt,
		Discounts:      make([]discountJSON, 0, len(cost.Discounts)),
	}
	for _, d := range cost.Discounts {
		out.Discounts = append(out.Discounts, discountJSON{
			RuleID:     string(d.RuleID),
			Name:       d.Name,
			Percentage: d.Percentage.Value().String(),
			Amount:     d.Amount.Amount().StringFixed(2),
			VATExempt:  d.IsVATExempt,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type noopHealth struct{}

func (noopHealth) SetRulesReady(bool) {}
