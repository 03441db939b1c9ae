package review

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/dagnyr/canvas-critic/internal/domain"
)

// Submission is the caller-supplied part of a review, before the server
// assigns an id and timestamp.
type Submission struct {
	ClassID        string   `json:"class_id" validate:"required"`
	Overall        int      `json:"overall" validate:"min=1,max=5"`
	Difficulty     int      `json:"difficulty" validate:"min=1,max=5"`
	Engaging       int      `json:"engaging" validate:"min=1,max=5"`
	Instruction    int      `json:"instruction" validate:"min=1,max=5"`
	FinalIntensity int      `json:"final_intensity" validate:"min=1,max=5"`
	HoursPerWeek   *float64 `json:"hours_per_week"`
	Recommend      bool     `json:"recommend"`
	Comment        string   `json:"comment"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a submission's shape. maxComment bounds the trimmed comment
// length in runes; zero disables the bound. Catalog membership of ClassID is
// checked by the Service, not here.
func Validate(sub Submission, maxComment int) error {
	fields := make(map[string]string)

	if err := validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = messageFor(fe)
		}
	}

	if h := sub.HoursPerWeek; h != nil {
		if math.IsNaN(*h) || math.IsInf(*h, 0) || *h < 0 {
			fields["hours_per_week"] = "must be a non-negative number"
		}
	}

	if maxComment > 0 && utf8.RuneCountInString(strings.TrimSpace(sub.Comment)) > maxComment {
		fields["comment"] = fmt.Sprintf("must be at most %d characters", maxComment)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "max":
		return fmt.Sprintf("must be an integer between %d and %d", domain.MinScore, domain.MaxScore)
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
