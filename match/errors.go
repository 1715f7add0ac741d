package match

import "fmt"

// CannotMatchError reports a value that is not a recognized spec.
type CannotMatchError struct {
	Spec any
}

func (e *CannotMatchError) Error() string {
	return fmt.Sprintf("cannot match against %T (%v)", e.Spec, e.Spec)
}

// MismatchError reports a token that failed an expectation.
type MismatchError struct {
	Expected any
	Token    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %s but got %q", SpecString(e.Expected), e.Token)
}
