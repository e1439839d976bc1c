package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var nonBlank = regexp.MustCompile(`\S`)

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonBlank.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return IsKnownCategory(Category(fl.Field().String()))
	})
}

// Validate checks the boundary contract for a transaction. The returned error
// wraps ErrInvalidTransaction and names every failing field.
func (t Transaction) Validate() error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransaction, strings.Join(msgs, ", "))
}
