package catalog

import "fmt"

const (
	// VATPercent is the Dutch standard rate.
	VATPercent     = 21
	DepositPercent = 50
)

type LineItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// Quote is a priced offerte. Subtotal excludes VAT; Deposit is taken from Total.
type Quote struct {
	Package   Package    `json:"package"`
	Extras    []Extra    `json:"extras"`
	LineItems []LineItem `json:"line_items"`
	Subtotal  int64      `json:"subtotal"`
	VAT       int64      `json:"vat"`
	Total     int64      `json:"total"`
	Deposit   int64      `json:"deposit"`
}

// BuildQuote prices a package plus extras. Duplicate extras are counted once.
func BuildQuote(packageID string, extraIDs []string) (Quote, error) {
	pkg, ok := GetPackageByID(packageID)
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownPackage, packageID)
	}

	q := Quote{
		Package:   pkg,
		LineItems: []LineItem{{ID: pkg.ID, Name: pkg.Name, Amount: pkg.BasePrice}},
		Subtotal:  pkg.BasePrice,
	}

	seen := make(map[string]bool, len(extraIDs))
	for _, id := range extraIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		e, ok := GetExtraByID(id)
		if !ok {
			return Quote{}, fmt.Errorf("%w: %q", ErrUnknownExtra, id)
		}
		q.Extras = append(q.Extras, e)
		q.LineItems = append(q.LineItems, LineItem{ID: e.ID, Name: e.Name, Amount: e.Price})
		q.Subtotal += e.Price
	}

	q.VAT, q.Total = AddVAT(q.Subtotal)
	q.Deposit = roundDiv(q.Total*DepositPercent, 100)
	return q, nil
}

// AddVAT returns the VAT on a net amount and the gross total.
func AddVAT(net int64) (vat, gross int64) {
	vat = roundDiv(net*VATPercent, 100)
	return vat, net + vat
}

// SplitGross splits a VAT-inclusive amount into net and VAT parts.
func SplitGross(gross int64) (net, vat int64) {
	net = roundDiv(gross*100, 100+VATPercent)
	return net, gross - net
}
