package production

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"newscast/internal/services"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags and the cross-field invariants of production records.
// Failures wrap services.ErrValidation.
func Validate(value any) error {
	var err error
	switch v := value.(type) {
	case *WizardState:
		err = v.validate()
	case *SubStepProgress:
		err = structValidator().Struct(v)
		if err == nil {
			err = v.validateInvariants()
		}
	case SegmentStatus:
		err = structValidator().Struct(v)
		if err == nil {
			err = v.validateInvariants()
		}
	default:
		err = structValidator().Struct(value)
	}
	if err != nil {
		return services.Wrap(services.ErrValidation, "production", "validate", fmt.Sprintf("invalid %T", value), err)
	}
	return nil
}

// ValidateSegments checks that segments are valid and indexed 0..n-1 in order.
func ValidateSegments(segments []Segment) error {
	for i, segment := range segments {
		if segment.Index != i {
			return services.Wrap(services.ErrValidation, "production", "validate", "segment order",
				fmt.Errorf("segment at position %d has index %d", i, segment.Index))
		}
		if err := Validate(segment); err != nil {
			return err
		}
	}
	return nil
}
