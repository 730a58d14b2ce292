package intake

import "strings"

type ContactRequest struct {
	Name         string `json:"name" form:"name" validate:"required,min=2,max=150"`
	Email        string `json:"email" form:"email" validate:"required,email,max=200"`
	Phone        string `json:"phone" form:"phone" validate:"max=50"`
	Company      string `json:"company" form:"company" validate:"max=200"`
	Subject      string `json:"subject" form:"subject" validate:"max=200"`
	Message      string `json:"message" form:"message" validate:"required,min=20,max=5000"`
	CaptchaToken string `json:"h-captcha-response" form:"h-captcha-response" validate:"-"`
}

func (r *ContactRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Company = strings.TrimSpace(r.Company)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
}

type QuoteRequest struct {
	Name         string   `json:"name" form:"name" validate:"required,min=2,max=150"`
	Email        string   `json:"email" form:"email" validate:"required,email,max=200"`
	Phone        string   `json:"phone" form:"phone" validate:"max=50"`
	Company      string   `json:"company" form:"company" validate:"max=200"`
	PackageID    string   `json:"package_id" form:"package_id" validate:"required,oneof=starter business webshop custom"`
	Extras       []string `json:"extras" form:"extras" validate:"max=10,dive,oneof=seo copywriting logo multilingual blog booking"`
	Notes        string   `json:"notes" form:"notes" validate:"max=5000"`
	CaptchaToken string   `json:"h-captcha-response" form:"h-captcha-response" validate:"-"`
}

func (r *QuoteRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Company = strings.TrimSpace(r.Company)
	r.PackageID = strings.ToLower(strings.TrimSpace(r.PackageID))
	for i := range r.Extras {
		r.Extras[i] = strings.ToLower(strings.TrimSpace(r.Extras[i]))
	}
	r.Notes = strings.TrimSpace(r.Notes)
}

type AutomationIntakeRequest struct {
	CompanyName   string   `json:"company_name" form:"company_name" validate:"required,min=2,max=200"`
	ContactName   string   `json:"contact_name" form:"contact_name" validate:"required,min=2,max=150"`
	Email         string   `json:"email" form:"email" validate:"required,email,max=200"`
	Phone         string   `json:"phone" form:"phone" validate:"max=50"`
	Website       string   `json:"website" form:"website" validate:"omitempty,url,max=255"`
	PlanID        string   `json:"plan_id" form:"plan_id" validate:"required,oneof=starter growth scale"`
	BillingPeriod string   `json:"billing_period" form:"billing_period" validate:"required,oneof=monthly yearly"`
	Processes     string   `json:"processes" form:"processes" validate:"required,min=10,max=5000"`
	Tools         []string `json:"tools" form:"tools" validate:"max=20,dive,max=100"`
	Goals         string   `json:"goals" form:"goals" validate:"max=2000"`
	Volume        string   `json:"volume" form:"volume" validate:"max=100"`
}

func (r *AutomationIntakeRequest) Normalize() {
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.ContactName = strings.TrimSpace(r.ContactName)
	r.Email = normalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Website = strings.TrimSpace(r.Website)
	r.PlanID = strings.ToLower(strings.TrimSpace(r.PlanID))
	r.BillingPeriod = strings.ToLower(strings.TrimSpace(r.BillingPeriod))
	if r.BillingPeriod == "" {
		r.BillingPeriod = "monthly"
	}
	r.Processes = strings.TrimSpace(r.Processes)
	tools := r.Tools[:0]
	for _, t := range r.Tools {
		if t = strings.TrimSpace(t); t != "" {
			tools = append(tools, t)
		}
	}
	r.Tools = tools
	r.Goals = strings.TrimSpace(r.Goals)
	r.Volume = strings.TrimSpace(r.Volume)
}

// MaintenanceCheckoutRequest is posted by a logged-in customer.
type MaintenanceCheckoutRequest struct {
	PlanID        string `json:"plan_id" form:"plan_id" validate:"required,oneof=basic pro premium"`
	BillingPeriod string `json:"billing_period" form:"billing_period" validate:"required,oneof=monthly yearly"`
	ProductID     *uint  `json:"product_id" form:"product_id" validate:"omitempty"`
}

func (r *MaintenanceCheckoutRequest) Normalize() {
	r.PlanID = strings.ToLower(strings.TrimSpace(r.PlanID))
	r.BillingPeriod = strings.ToLower(strings.TrimSpace(r.BillingPeriod))
	if r.BillingPeriod == "" {
		r.BillingPeriod = "monthly"
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
