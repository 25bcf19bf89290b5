package validation

import (
	"github.com/go-playground/validator/v10"

	"github.com/go-petr/movement-engine/internal/domain"
)

// ValidAmount accepts decimal strings with at most two fractional digits.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	m, err := domain.ParseMoney(s)

	return err == nil && m.IsPositive()
}

// ValidPeriodicity accepts the supported direct debit periodicities.
var ValidPeriodicity validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return domain.Periodicity(s).IsValid()
}

// RegisterBindings registers the request validators on v.
func RegisterBindings(v *validator.Validate) error {
	if err := v.RegisterValidation("amount", ValidAmount); err != nil {
		return err
	}

	return v.RegisterValidation("periodicity", ValidPeriodicity)
}
