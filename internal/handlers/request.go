package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bikeshare-dashboard/internal/models"
)

// RangeRequest selects the dashboard date range.
// Used for query strings and live dashboard frames; empty dates default to the dataset bounds.
type RangeRequest struct {
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// WeatherRequest adds the ordering of weather totals
type WeatherRequest struct {
	RangeRequest
	Order string `json:"order" validate:"omitempty,oneof=code desc"`
}

// YearRequest selects one year partition
type YearRequest struct {
	Year string `json:"year" validate:"required,oneof=2011 2012"`
}

func newValidator() *validator.Validate {
	v := validator.New()

	// report query parameter names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func rangeFromQuery(r *http.Request) RangeRequest {
	q := r.URL.Query()
	return RangeRequest{
		StartDate: strings.TrimSpace(q.Get("start_date")),
		EndDate:   strings.TrimSpace(q.Get("end_date")),
	}
}

// validateStruct runs v and converts the first failure into a models.ValidationError
func validateStruct(v *validator.Validate, req interface{}) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	return &models.ValidationError{
		Field:   fe.Field(),
		Value:   fmt.Sprint(fe.Value()),
		Message: validationMessage(fe),
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "datetime":
		return fmt.Sprintf("invalid %s format, expected YYYY-MM-DD", fe.Field())
	case "oneof":
		return fmt.Sprintf("invalid %s, expected one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	default:
		return fmt.Sprintf("invalid %s", fe.Field())
	}
}

// DateRange resolves the request against the dataset bounds
func (req RangeRequest) DateRange(bounds models.DateRange) (models.DateRange, error) {
	start, err := parseDateOr(req.StartDate, bounds.Start)
	if err != nil {
		return models.DateRange{}, err
	}
	end, err := parseDateOr(req.EndDate, bounds.End)
	if err != nil {
		return models.DateRange{}, err
	}
	return models.NewDateRange(start, end), nil
}

func parseDateOr(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return models.ParseDate(value)
}

// YearFlag maps the validated year to its partition
func (req YearRequest) YearFlag() (models.YearFlag, error) {
	year, err := strconv.Atoi(req.Year)
	if err != nil {
		return 0, &models.ValidationError{Field: "year", Value: req.Year, Message: "invalid year, expected integer"}
	}
	return models.YearFlagFor(year)
}
