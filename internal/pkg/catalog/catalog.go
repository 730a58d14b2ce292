// Package catalog holds the fixed price lists of the agency. All amounts
// are euro cents. The tables are built once and only ever handed out as
// copies.
package catalog

import (
	"errors"
	"fmt"
)

const (
	BillingMonthly = "monthly"
	BillingYearly  = "yearly"
)

var (
	ErrUnknownPackage = errors.New("unknown package")
	ErrUnknownExtra   = errors.New("unknown extra")
	ErrUnknownPlan    = errors.New("unknown plan")
	ErrUnknownPeriod  = errors.New("unknown billing period")
)

type Package struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	BasePrice        int64    `json:"base_price"`
	Features         []string `json:"features"`
	DeliveryTime     string   `json:"delivery_time"`
	FreeSupportHours int      `json:"free_support_hours"`
}

type MaintenancePlan struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	MonthlyPrice  int64    `json:"monthly_price"`
	YearlyPrice   int64    `json:"yearly_price"`
	HoursIncluded float64  `json:"hours_included"`
	Features      []string `json:"features"`
}

type Limits struct {
	Workflows    int `json:"workflows"`
	RunsPerMonth int `json:"runs_per_month"`
}

type AutomationPlan struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MonthlyPrice int64    `json:"monthly_price"`
	YearlyPrice  int64    `json:"yearly_price"`
	Limits       Limits   `json:"limits"`
	Features     []string `json:"features"`
}

type Extra struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

var packages = []Package{
	{
		ID:               "starter",
		Name:             "Starter website",
		BasePrice:        149500,
		Features:         []string{"Tot 5 pagina's", "Responsive ontwerp", "Contactformulier", "Basis SEO"},
		DeliveryTime:     "2-3 weken",
		FreeSupportHours: 1,
	},
	{
		ID:               "business",
		Name:             "Business website",
		BasePrice:        299500,
		Features:         []string{"Tot 15 pagina's", "Maatwerk ontwerp", "CMS", "Uitgebreide SEO", "Google Analytics"},
		DeliveryTime:     "4-6 weken",
		FreeSupportHours: 3,
	},
	{
		ID:               "webshop",
		Name:             "Webshop",
		BasePrice:        449500,
		Features:         []string{"Productcatalogus", "iDEAL en creditcard", "Voorraadbeheer", "Orderbeheer"},
		DeliveryTime:     "6-8 weken",
		FreeSupportHours: 5,
	},
	{
		ID:               "custom",
		Name:             "Maatwerk",
		BasePrice:        750000,
		Features:         []string{"Webapplicatie op maat", "Koppelingen met bestaande systemen", "Projectbegeleiding"},
		DeliveryTime:     "In overleg",
		FreeSupportHours: 8,
	},
}

var extras = []Extra{
	{ID: "seo", Name: "SEO optimalisatie", Price: 49500},
	{ID: "copywriting", Name: "Copywriting", Price: 39500},
	{ID: "logo", Name: "Logo ontwerp", Price: 29500},
	{ID: "multilingual", Name: "Meertaligheid", Price: 59500},
	{ID: "blog", Name: "Blog module", Price: 34500},
	{ID: "booking", Name: "Afsprakensysteem", Price: 44500},
}

var maintenancePlans = []MaintenancePlan{
	maintenance("basic", "Basis onderhoud", 4900, 1, "Updates en back-ups", "Uptime monitoring"),
	maintenance("pro", "Pro onderhoud", 9900, 3, "Updates en back-ups", "Uptime monitoring", "Kleine aanpassingen", "Maandrapportage"),
	maintenance("premium", "Premium onderhoud", 19900, 8, "Updates en back-ups", "Uptime monitoring", "Doorontwikkeling", "Prioriteit support"),
}

var automationPlans = []AutomationPlan{
	automation("starter", "Automation Starter", 14900, Limits{Workflows: 5, RunsPerMonth: 1000}, "E-mail support"),
	automation("growth", "Automation Growth", 29900, Limits{Workflows: 15, RunsPerMonth: 10000}, "Prioriteit support", "Maandelijkse review"),
	automation("scale", "Automation Scale", 59900, Limits{Workflows: 50, RunsPerMonth: 100000}, "Dedicated contactpersoon", "SLA"),
}

func maintenance(id, name string, monthly int64, hours float64, features ...string) MaintenancePlan {
	return MaintenancePlan{
		ID:            id,
		Name:          name,
		MonthlyPrice:  monthly,
		YearlyPrice:   YearlyPrice(monthly),
		HoursIncluded: hours,
		Features:      features,
	}
}

func automation(id, name string, monthly int64, limits Limits, features ...string) AutomationPlan {
	return AutomationPlan{
		ID:           id,
		Name:         name,
		MonthlyPrice: monthly,
		YearlyPrice:  YearlyPrice(monthly),
		Limits:       limits,
		Features:     features,
	}
}

// YearlyPrice returns round(monthly * 12 * 0.9) in whole euros, rounding
// half away from zero. Prices are in cents.
func YearlyPrice(monthly int64) int64 {
	return roundDiv(monthly*108, 1000) * 100
}

// roundDiv divides rounding half away from zero.
func roundDiv(n, d int64) int64 {
	if n < 0 {
		return -((-n + d/2) / d)
	}
	return (n + d/2) / d
}

// PriceFor returns the amount charged per billing period.
func PriceFor(monthly int64, period string) (int64, error) {
	switch period {
	case BillingMonthly:
		return monthly, nil
	case BillingYearly:
		return YearlyPrice(monthly), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
}

func IsValidPeriod(period string) bool {
	return period == BillingMonthly || period == BillingYearly
}

func GetPackageByID(id string) (Package, bool) {
	for _, p := range packages {
		if p.ID == id {
			return clonePackage(p), true
		}
	}
	return Package{}, false
}

func GetMaintenancePlanByID(id string) (MaintenancePlan, bool) {
	for _, p := range maintenancePlans {
		if p.ID == id {
			p.Features = cloneStrings(p.Features)
			return p, true
		}
	}
	return MaintenancePlan{}, false
}

func GetAutomationPlanByID(id string) (AutomationPlan, bool) {
	for _, p := range automationPlans {
		if p.ID == id {
			p.Features = cloneStrings(p.Features)
			return p, true
		}
	}
	return AutomationPlan{}, false
}

func GetExtraByID(id string) (Extra, bool) {
	for _, e := range extras {
		if e.ID == id {
			return e, true
		}
	}
	return Extra{}, false
}

func Packages() []Package {
	out := make([]Package, len(packages))
	for i, p := range packages {
		out[i] = clonePackage(p)
	}
	return out
}

func MaintenancePlans() []MaintenancePlan {
	out := make([]MaintenancePlan, len(maintenancePlans))
	for i, p := range maintenancePlans {
		p.Features = cloneStrings(p.Features)
		out[i] = p
	}
	return out
}

func AutomationPlans() []AutomationPlan {
	out := make([]AutomationPlan, len(automationPlans))
	for i, p := range automationPlans {
		p.Features = cloneStrings(p.Features)
		out[i] = p
	}
	return out
}

func Extras() []Extra {
	out := make([]Extra, len(extras))
	copy(out, extras)
	return out
}

func clonePackage(p Package) Package {
	p.Features = cloneStrings(p.Features)
	return p
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
