package validator

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator"
)

var global *validator.Validate

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrUnknownValidation  = "Unknown validation error"

	ErrTaskURL = "Submission must be a valid URL from GitHub (including github.io) or Google Docs."
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("future", validateFutureDate)
	_ = v.RegisterValidation("positive", validatePositiveInt)
	_ = v.RegisterValidation("taskurl", validateTaskURL)
	_ = v.RegisterValidation("gender", validateGender)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func validateFutureDate(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	return ok && t.After(time.Now())
}

func validatePositiveInt(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(int)
	return ok && val > 0
}

func validateTaskURL(fl validator.FieldLevel) bool {
	return IsTaskURL(fl.Field().String())
}

func validateGender(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "male", "female", "other":
		return true
	}
	return false
}

// IsTaskURL accepts absolute http(s) URLs hosted on github.com, a *.github.io
// site, or docs.google.com.
func IsTaskURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "github.com", host == "www.github.com":
		return true
	case strings.HasSuffix(host, ".github.io") && len(host) > len(".github.io"):
		return true
	case host == "docs.google.com":
		return true
	}
	return false
}

func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

// ValidateFields reports every failing field keyed by its json name.
func ValidateFields(ctx context.Context, structure any) map[string]string {
	err := Validator().StructCtx(ctx, structure)
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return map[string]string{"_": err.Error()}
	}
	fields := make(map[string]string, len(vErrors))
	for _, ve := range vErrors {
		if _, seen := fields[ve.Field()]; seen {
			continue
		}
		fields[ve.Field()] = message(ve)
	}
	return fields
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return nil
	}
	ve := vErrors[0]
	return errors.New(message(ve) + ": " + ve.Namespace())
}

func message(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return ErrFieldRequired
	case "max":
		return ErrFieldExceedsMaxLen
	case "min":
		if ve.Kind() == reflect.String {
			return ErrFieldBelowMinLen + " (" + ve.Param() + ")"
		}
		return ErrFieldBelowMinVal + " (" + ve.Param() + ")"
	case "lt", "lte":
		return ErrFieldExceedsMaxVal
	case "gt", "gte":
		return ErrFieldBelowMinVal
	case "email":
		return "Invalid email address"
	case "url":
		return "Please provide a valid URL."
	case "hexcolor":
		return "Must be a hex color"
	case "future":
		return "Date must be in the future"
	case "positive":
		return "Value must be positive"
	case "taskurl":
		return ErrTaskURL
	case "gender":
		return "Gender must be one of male, female, other"
	default:
		return ErrUnknownValidation
	}
}
