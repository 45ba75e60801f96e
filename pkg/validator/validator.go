package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationFieldErrorDTO represents a field validation error
type ValidationFieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
}

// Validator wraps the go-playground validator with additional functionality
type Validator interface {
	ValidateStruct(s interface{}) ([]ValidationFieldErrorDTO, error)
	ValidateVar(field interface{}, tag string) error
	RegisterValidation(tag string, fn validator.Func) error
}

// customValidator implements the Validator interface
type customValidator struct {
	validator *validator.Validate
}

// New creates a new validator instance
func New() Validator {
	validate := validator.New()

	// Use JSON tag names for validation errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	cv := &customValidator{validator: validate}
	cv.registerCustomValidations()

	return cv
}

// ValidateStruct validates a struct and returns validation errors
func (cv *customValidator) ValidateStruct(s interface{}) ([]ValidationFieldErrorDTO, error) {
	var validationErrors []ValidationFieldErrorDTO

	err := cv.validator.Struct(s)
	if err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				validationErrors = append(validationErrors, ValidationFieldErrorDTO{
					Field:   fe.Field(),
					Message: cv.getErrorMessage(fe),
					Tag:     fe.Tag(),
					Value:   fmt.Sprintf("%v", fe.Value()),
				})
			}
		}
	}

	return validationErrors, err
}

// ValidateVar validates a single variable
func (cv *customValidator) ValidateVar(field interface{}, tag string) error {
	return cv.validator.Var(field, tag)
}

// RegisterValidation registers a custom validation function
func (cv *customValidator) RegisterValidation(tag string, fn validator.Func) error {
	return cv.validator.RegisterValidation(tag, fn)
}

// registerCustomValidations registers custom validation functions
func (cv *customValidator) registerCustomValidations() {
	// Chinese mobile number: 11 ASCII digits starting with 1
	cv.validator.RegisterValidation("cnphone", validateCNPhone)
}

// getErrorMessage returns a human-readable error message for validation errors
func (cv *customValidator) getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "cnphone":
		return fmt.Sprintf("%s must be an 11-digit mobile number starting with 1", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", fe.Field(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be a valid number", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// validateCNPhone validates a Chinese mobile number
func validateCNPhone(fl validator.FieldLevel) bool {
	number := fl.Field().String()

	if len(number) != 11 || number[0] != '1' {
		return false
	}
	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
	}
	return true
}
