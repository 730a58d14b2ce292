// Package intake defines the public form payloads and their validation.
package intake

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Field names in errors are the json names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ValidationError carries the message of the first failing field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate runs the struct rules and reduces the result to the first failure.
func Validate(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Message: message(fe)}
}

var labels = map[string]string{
	"name":           "Naam",
	"email":          "E-mailadres",
	"phone":          "Telefoonnummer",
	"company":        "Bedrijf",
	"company_name":   "Bedrijfsnaam",
	"contact_name":   "Contactpersoon",
	"subject":        "Onderwerp",
	"message":        "Bericht",
	"package_id":     "Pakket",
	"extras":         "Extra's",
	"notes":          "Opmerkingen",
	"plan_id":        "Abonnement",
	"billing_period": "Betaalperiode",
	"processes":      "Processen",
	"tools":          "Tools",
	"goals":          "Doelen",
	"volume":         "Volume",
	"website":        "Website",
	"product_id":     "Product",
}

func label(field string) string {
	if i := strings.IndexByte(field, '['); i > 0 {
		field = field[:i]
	}
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

func message(fe validator.FieldError) string {
	name := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is verplicht", name)
	case "email":
		return "Vul een geldig e-mailadres in"
	case "url":
		return fmt.Sprintf("%s moet een geldige URL zijn", name)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s moet minimaal %s tekens bevatten", name, fe.Param())
		}
		return fmt.Sprintf("%s moet minimaal %s zijn", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s mag maximaal %s tekens bevatten", name, fe.Param())
		}
		return fmt.Sprintf("%s mag maximaal %s items bevatten", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s heeft een ongeldige waarde", name)
	default:
		return fmt.Sprintf("%s is ongeldig", name)
	}
}
