package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	// Format validation errors
	var msgs []string
	for _, err := range err.(validator.ValidationErrors) {
		field := strings.ToLower(err.Field())
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, field+" must be at least "+param)
		case "max":
			msgs = append(msgs, field+" must be at most "+param)
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+param)
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}

	return errors.New(strings.Join(msgs, ", "))
}
