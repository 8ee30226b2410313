package common

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	isbnPattern     = regexp.MustCompile(`^\d{13}$`)
	bookNamePattern = regexp.MustCompile(`^[A-Za-z0-9\s\-_,\.;:()]+$`)
)

// NewValidator returns a validator aware of decimal amounts and the catalog field rules.
// Struct fields are reported by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("money_min", moneyMin)
	_ = v.RegisterValidation("isbn13", func(fl validator.FieldLevel) bool {
		return isbnPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("book_name", func(fl validator.FieldLevel) bool {
		return bookNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// moneyMin checks a decimal amount (converted to its string form) against the tag param.
func moneyMin(fl validator.FieldLevel) bool {
	amount, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	min, err := decimal.NewFromString(fl.Param())
	if err != nil {
		return false
	}
	return amount.GreaterThanOrEqual(min)
}

// ValidationError converts validator failures into a 400 AppError whose details map each
// offending field to a readable message. Other errors are returned unchanged.
func ValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	details := make(map[string]string, len(verrs))
	first := ""
	for _, fe := range verrs {
		field := fieldPath(fe)
		msg := fieldMessage(fe)
		if _, seen := details[field]; !seen {
			details[field] = msg
		}
		if first == "" {
			first = msg
		}
	}
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    first,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    details,
	}
}

// fieldPath drops the top-level struct name from the namespace, e.g.
// "checkoutRequest.items[0].quantity" becomes "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.String {
			return name + " cannot be blank"
		}
		if fe.Kind() == reflect.Slice {
			return name + " cannot be empty"
		}
		return name + " cannot be null"
	case "min":
		if fe.Kind() == reflect.Slice {
			return name + " cannot be empty"
		}
		return fmt.Sprintf("%s must be greater than %d", name, minExclusive(fe.Param()))
	case "notblank":
		return name + " cannot be blank"
	case "money_min":
		return name + " must be greater than 0"
	case "isbn13":
		return name + " must be exactly 13 digits"
	case "book_name":
		return name + " invalid"
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}

func minExclusive(param string) int {
	n := AtoiDefault(param, 1)
	return n - 1
}
