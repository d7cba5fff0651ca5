package applicant

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	MinAge         = 18
	MaxAge         = 60
	MinPassingYear = 1950
	MinPhoneDigits = 10
)

// ValidationErrors maps a form field to a message fit for the candidate.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, v[key]))
	}
	return "invalid profile: " + strings.Join(parts, "; ")
}

var messages = map[string]string{
	"name.required":            "Name is required",
	"email.required":           "Email is required",
	"email.email":              "Please enter a valid email address",
	"github.url":               "Please enter a valid GitHub URL",
	"age.age":                  fmt.Sprintf("Age must be between %d and %d", MinAge, MaxAge),
	"passingYear.passing_year": fmt.Sprintf("Passing year must be %d or later", MinPassingYear),
	"phone.phone":              "Please enter a valid phone number",
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("age", func(fl validator.FieldLevel) bool {
			age, err := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
			return err == nil && age >= MinAge && age <= MaxAge
		})
		_ = v.RegisterValidation("passing_year", func(fl validator.FieldLevel) bool {
			year, err := strconv.Atoi(strings.TrimSpace(fl.Field().String()))
			return err == nil && year >= MinPassingYear
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return countDigits(fl.Field().String()) >= MinPhoneDigits
		})
		validate = v
	})
	return validate
}

// Validate checks the form shape. A nil error means every present value is
// well formed; it says nothing about submission eligibility.
func Validate(p Profile) error {
	err := instance().Struct(p.Normalize())
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate profile: %w", err)
	}

	out := make(ValidationErrors, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed %q check", fe.Tag())
		}
		out[field] = msg
	}
	return out
}

func countDigits(value string) int {
	n := 0
	for _, r := range value {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
