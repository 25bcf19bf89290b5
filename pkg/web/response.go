// Package web defines common components for a web application.
package web

import (
	"github.com/go-playground/validator/v10"
)

// Response holds the common response type for all APIs.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Error wraps a given err into json friendly response.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// GetErrorMsg returns the message suffix describing a failed binding rule.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " field is required"
	case "min":
		return " must be at least " + fe.Param()
	case "max":
		return " must be at most " + fe.Param()
	case "amount":
		return " must be a positive amount with at most two decimals"
	case "periodicity":
		return " must be one of DAILY, WEEKLY, MONTHLY, YEARLY"
	case "uuid":
		return " must be a valid uuid"
	case "nefield":
		return " must differ from " + fe.Param()
	}

	return " is invalid"
}
