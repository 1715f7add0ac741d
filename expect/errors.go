package expect

import "fmt"

// NoMatchError reports a token no open spec of an unordered pattern accepts.
type NoMatchError struct {
	Token string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no match for data %q", e.Token)
}
