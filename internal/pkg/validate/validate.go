package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zeni-bff/internal/domain"
)

// v is the package-level singleton validator. Any custom registrations must be
// made during init() before the first call to Struct.
var v = validator.New()

// Struct validates s using its validate tags. Failures are wrapped in
// domain.ErrBadRequest with one "field 'X' failed 'tag'" clause per field.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrBadRequest, strings.Join(msgs, "; "))
}
