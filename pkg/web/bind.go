package web

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// BindErrorMsg describes why request binding failed.
//
// Only the first failed field is reported.
func BindErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		field := ve[0]
		return field.Field() + GetErrorMsg(field)
	}

	return "malformed request"
}
