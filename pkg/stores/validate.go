package stores

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var alphanumSpace = regexp.MustCompile(`^[a-zA-Z0-9\s]+$`)

var orderValidator = newOrderValidator()

func newOrderValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("alphanumspace", func(fl validator.FieldLevel) bool {
		return alphanumSpace.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("medtype", func(fl validator.FieldLevel) bool {
		return containsFold(KnownTypes, fl.Field().String())
	})
	_ = v.RegisterValidation("distributor", func(fl validator.FieldLevel) bool {
		return containsFold(KnownDistributors, fl.Field().String())
	})
	return v
}

// Validate checks the invariants an order must satisfy before it is stored
// and rewrites type and distributor to their catalogue spelling.
// Stores themselves do not call it; the Selector does.
func (o *Order) Validate() error {
	o.Name = strings.TrimSpace(o.Name)
	if err := orderValidator.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	o.Type = canonical(KnownTypes, o.Type)
	o.Distributor = canonical(KnownDistributors, o.Distributor)
	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// canonical returns the catalogue entry equal to s ignoring case, or s itself.
func canonical(values []string, s string) string {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return v
		}
	}
	return s
}
