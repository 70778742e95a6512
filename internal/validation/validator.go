// Package validation is the admission check in front of the session state
// machine.  Requests are normalised and schema-checked here; nothing that
// fails validation reaches a store.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrValidation is matched by every *Error via errors.Is.
var ErrValidation = errors.New("validation failed")

// Error lists the offending fields by their JSON name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *Error) Is(target error) bool { return target == ErrValidation }

// Field builds a single-field validation error.
func Field(name, msg string) *Error {
	return &Error{Fields: map[string]string{name: msg}}
}

// Normalizer is implemented by requests that trim or case-fold their
// input before being checked.
type Normalizer interface {
	Normalize()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// Money reaches tag validators as its exact decimal text.
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		return d.String()
	}, decimal.Decimal{})
	_ = v.RegisterValidation("money", validMoney)
	return v
}

// MaxMoney is the largest amount a DECIMAL(10,2) column holds.
var MaxMoney = decimal.RequireFromString("99999999.99")

// validMoney accepts non-negative amounts with at most two decimal places
// that fit the stored column.
func validMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.IsNegative() && d.LessThanOrEqual(MaxMoney) && d.Equal(d.Truncate(2))
}

// Check normalises req (when supported) and validates its struct tags.
func Check(req interface{}) error {
	if n, ok := req.(Normalizer); ok {
		n.Normalize()
	}
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte":
		return "must be >= " + fe.Param()
	case "money":
		return "must be between 0 and " + MaxMoney.String() + " with at most 2 decimal places"
	case "min":
		if fe.Kind() == reflect.String {
			return "must not be empty"
		}
		return "must be >= " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}

// EchoValidator adapts Check to echo's Validator interface.
type EchoValidator struct{}

// Validate implements echo.Validator.
func (EchoValidator) Validate(i interface{}) error { return Check(i) }
