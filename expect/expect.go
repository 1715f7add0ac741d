// Package expect compiles declarative expectation patterns into stateful
// receive handlers for a conversation.
//
// A pattern is a sequence of match specs (a scalar spec is a sequence of
// one). The compiled handler consumes one token per call, returns
// at.CBRepeat while the expectation is open, and completes with the
// selected or collected value once every spec has been satisfied.
package expect

import (
	"errors"

	"github.com/mysticpants/at"
	"github.com/mysticpants/at/match"
)

// Flags alter how a pattern consumes tokens. Values are OR-combinable.
type Flags int

const (
	// Unordered lets specs be satisfied in any order.
	Unordered Flags = 1 << iota
	// IgnoreNonMatching skips tokens no spec accepts instead of failing.
	IgnoreNonMatching
	// AllowRepeats accepts repeated matches of the last satisfied spec.
	AllowRepeats
	// CollectAll completes with every saved token instead of one.
	CollectAll
	// UseMatchResult saves the raw match result instead of the token.
	UseMatchResult
)

// NoFlags is the default behavior: ordered, strict, single result.
const NoFlags Flags = 0

// ErrEmptyPattern is returned when a pattern compiles to zero specs.
var ErrEmptyPattern = errors.New("empty expectation pattern")

// Compile builds a receive handler from pattern. The handler completes with
// the value saved at select index n (out-of-range values, such as -1, select
// the last spec), or with the full collection under CollectAll. The handler
// owns mutable state and must be installed into exactly one receive.
func Compile(pattern any, flags Flags, n int) (at.HandlerFunc, error) {
	var specs []any
	switch p := pattern.(type) {
	case nil:
		return nil, ErrEmptyPattern
	case []any:
		specs = p
	case match.AnyOf:
		specs = []any{p}
	default:
		specs = []any{p}
	}
	if len(specs) == 0 {
		return nil, ErrEmptyPattern
	}
	if n < 0 || n >= len(specs) {
		n = len(specs) - 1
	}
	if flags&Unordered != 0 {
		return compileUnordered(specs, flags, n), nil
	}
	return compileOrdered(specs, flags, n), nil
}

// MustCompile is Compile for patterns known to be valid.
func MustCompile(pattern any, flags Flags, n int) at.HandlerFunc {
	h, err := Compile(pattern, flags, n)
	if err != nil {
		panic(err)
	}
	return h
}

func compileOrdered(specs []any, flags Flags, n int) at.HandlerFunc {
	i := 0
	var collected any
	var all []any

	return func(token string) (any, error) {
		result, err := match.Match(specs[i], token)
		if err != nil {
			return nil, err
		}
		advance := match.Matched(result)

		repeat := false
		if !advance && flags&AllowRepeats != 0 && i > 0 {
			result, err = match.Match(specs[i-1], token)
			if err != nil {
				return nil, err
			}
			repeat = match.Matched(result)
		}

		if !advance && !repeat {
			if flags&IgnoreNonMatching != 0 {
				return at.CBRepeat, nil
			}
			return nil, &match.MismatchError{Expected: specs[i], Token: token}
		}

		save := any(token)
		if flags&UseMatchResult != 0 {
			save = result
		}
		if flags&CollectAll != 0 {
			all = append(all, save)
		} else if advance && i == n {
			collected = save
		}

		if advance {
			i++
		}
		if i == len(specs) {
			if flags&CollectAll != 0 {
				return all, nil
			}
			return collected, nil
		}
		return at.CBRepeat, nil
	}
}

func compileUnordered(specs []any, flags Flags, n int) at.HandlerFunc {
	remaining := len(specs)
	found := make([]int, len(specs))
	var collected any
	var all []any

	return func(token string) (any, error) {
		hit := -1
		var result any
		for j := range specs {
			if found[j] > 0 && flags&AllowRepeats == 0 {
				continue
			}
			r, err := match.Match(specs[j], token)
			if err != nil {
				return nil, err
			}
			if match.Matched(r) {
				hit, result = j, r
				break
			}
		}

		if hit < 0 {
			if flags&IgnoreNonMatching != 0 {
				return at.CBRepeat, nil
			}
			return nil, &NoMatchError{Token: token}
		}

		save := any(token)
		if flags&UseMatchResult != 0 {
			save = result
		}
		if flags&CollectAll != 0 {
			all = append(all, save)
		} else if found[hit] == 0 && hit == n {
			collected = save
		}

		if found[hit] == 0 {
			remaining--
		}
		found[hit]++

		if remaining == 0 {
			if flags&CollectAll != 0 {
				return all, nil
			}
			return collected, nil
		}
		return at.CBRepeat, nil
	}
}
