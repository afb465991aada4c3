package rpc

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/alphabill-org/alphabill-nft/types"
)

type (
	FieldError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}

	ErrorResponse struct {
		Error   string       `json:"error"`
		Details []FieldError `json:"details,omitempty"`
	}

	// Validator implements echo.Validator.
	Validator struct {
		v *validator.Validate
	}
)

func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("account_id", func(fl validator.FieldLevel) bool {
		return types.AccountID(fl.Field().String()).Validate() == nil
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := types.ParseAmount(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// toFieldErrors converts validation errors into readable field errors.
func toFieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "account_id":
			out = append(out, FieldError{Field: field, Message: "must be valid account ID"})
		case "amount":
			out = append(out, FieldError{Field: field, Message: "must be decimal yocto amount"})
		case "min":
			out = append(out, FieldError{Field: field, Message: "must be at least " + e.Param()})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
