package skills

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidRegistration is returned when Register is called with an empty
// name, a nil unit or a descriptor naming a different skill
var ErrInvalidRegistration = errors.New("invalid skill registration")

// NotFoundError reports that no unit is registered under Name
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("skill '%s' not found", e.Name)
}

// SkillExecutionError wraps a failure raised by a skill unit. Err is kept
// verbatim.
type SkillExecutionError struct {
	Name string
	Err  error
}

func (e *SkillExecutionError) Error() string {
	return fmt.Sprintf("skill '%s' failed: %v", e.Name, e.Err)
}

// Unwrap exposes the underlying failure to errors.Is and errors.As
func (e *SkillExecutionError) Unwrap() error {
	return e.Err
}

// Cause exposes the underlying failure to errors.Cause
func (e *SkillExecutionError) Cause() error {
	return e.Err
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsExecutionError reports whether err is or wraps a SkillExecutionError
func IsExecutionError(err error) bool {
	var ee *SkillExecutionError
	return errors.As(err, &ee)
}
