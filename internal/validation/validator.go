// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

// Package validation validates decoded request structs with
// go-playground/validator v10.
//
// Field names in messages come from the json tag, so clients see the
// parameter names they sent (begin_date, not BeginDate). Besides the built-in
// tags the validator knows:
//
//   - crs: an "EPSG:<code>" or "SR-ORG:<code>" identifier
//   - isodate: YYYY-MM-DD or an RFC3339 timestamp
//   - hexcolor_list: comma separated colours, with or without a leading '#'
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed constraint.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// RequestValidationError collects every failed constraint of a request.
type RequestValidationError struct {
	Fields []FieldError
}

func (e *RequestValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Details returns the per-field errors in the shape used by API error bodies.
func (e *RequestValidationError) Details() map[string]interface{} {
	if len(e.Fields) == 1 {
		f := e.Fields[0]
		return map[string]interface{}{"field": f.Field, "tag": f.Tag}
	}
	return map[string]interface{}{"fields": e.Fields}
}

var (
	crsPattern = regexp.MustCompile(`^(EPSG|SR-ORG):[0-9]+$`)
	hexColor   = regexp.MustCompile(`^#?[0-9A-Fa-f]{6}$`)
)

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "crs", func(fl validator.FieldLevel) bool {
			return crsPattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
			_, err := ParseDate(fl.Field().String())
			return err == nil
		})
		mustRegister(v, "hexcolor_list", func(fl validator.FieldLevel) bool {
			return validColorList(fl.Field().String())
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// ParseDate accepts a plain date or an RFC3339 timestamp and returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func validColorList(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range strings.Split(s, ",") {
		if !hexColor.MatchString(strings.TrimSpace(c)) {
			return false
		}
	}
	return true
}

// ValidateStruct validates s and returns nil or a *RequestValidationError.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "request", Tag: "invalid", Message: err.Error()}}}
	}

	out := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		out[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe),
		}
	}
	return &RequestValidationError{Fields: out}
}

var messages = map[string]string{
	"required":      "%s is required",
	"crs":           "%s must be a coordinate reference system such as EPSG:4326",
	"isodate":       "%s must be a date (YYYY-MM-DD) or RFC3339 timestamp",
	"hexcolor_list": "%s must be a comma separated list of hex colours",
	"url":           "%s must be a valid URL",
}

var paramMessages = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
}

func translate(fe validator.FieldError) string {
	if tmpl, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field())
	}
	if tmpl, ok := paramMessages[fe.Tag()]; ok {
		msg := fmt.Sprintf(tmpl, fe.Field(), fe.Param())
		if fe.Kind() == reflect.Slice && (fe.Tag() == "min" || fe.Tag() == "max") {
			msg += " items"
		}
		return msg
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
