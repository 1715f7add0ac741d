// Package match evaluates declarative token patterns. A spec is one of:
//
//   - bool: matches always (true) or never (false)
//   - string: matches the token exactly
//   - func(string) any: predicate, its result is the match result
//   - *regexp.Regexp: matches via FindStringSubmatch, the submatches are
//     the match result
//   - Matcher: user-defined match method
//   - AnyOf / []any: first matching element wins
//
// A spec matches iff evaluation yields a value that is neither nil nor
// false, so 0 and "" are matches. The raw result is preserved for callers
// that want the payload.
package match

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher is the open extension point: any value with a match method can
// serve as a spec.
type Matcher interface {
	Match(token string) any
}

// Predicate is a spec that evaluates the token itself.
type Predicate func(token string) any

// AnyOf matches when any element matches. Nesting recurses.
type AnyOf []any

// Match evaluates spec against token and returns the raw result.
// Values that are not specs yield a CannotMatchError.
func Match(spec any, token string) (any, error) {
	switch s := spec.(type) {
	case bool:
		return s, nil
	case string:
		return s == token, nil
	case *regexp.Regexp:
		if m := s.FindStringSubmatch(token); m != nil {
			return m, nil
		}
		return false, nil
	case Predicate:
		return s(token), nil
	case func(string) any:
		return s(token), nil
	case AnyOf:
		return matchAny(s, token)
	case []any:
		return matchAny(s, token)
	case Matcher:
		return s.Match(token), nil
	}
	return nil, &CannotMatchError{Spec: spec}
}

func matchAny(specs []any, token string) (any, error) {
	for _, spec := range specs {
		r, err := Match(spec, token)
		if err != nil {
			return nil, err
		}
		if Matched(r) {
			return r, nil
		}
	}
	return false, nil
}

// Matched reports whether a Match result counts as a match.
func Matched(result any) bool {
	if result == nil {
		return false
	}
	if b, ok := result.(bool); ok {
		return b
	}
	return true
}

// ExpectMatch evaluates spec against token and fails with a MismatchError
// when it does not match. Intended for assertions in user callbacks.
func ExpectMatch(spec any, token string) (any, error) {
	r, err := Match(spec, token)
	if err != nil {
		return nil, err
	}
	if !Matched(r) {
		return nil, &MismatchError{Expected: spec, Token: token}
	}
	return r, nil
}

// SpecString renders a spec for error messages.
func SpecString(spec any) string {
	switch s := spec.(type) {
	case bool:
		return fmt.Sprintf("%v", s)
	case string:
		return fmt.Sprintf("%q", s)
	case *regexp.Regexp:
		return fmt.Sprintf("/%s/", s.String())
	case Predicate, func(string) any:
		return "predicate"
	case AnyOf:
		return specListString(s)
	case []any:
		return specListString(s)
	case Matcher:
		return fmt.Sprintf("%v", s)
	}
	return fmt.Sprintf("%v", spec)
}

func specListString(specs []any) string {
	parts := make([]string, len(specs))
	for i, spec := range specs {
		parts[i] = SpecString(spec)
	}
	return "any of [" + strings.Join(parts, ", ") + "]"
}
