package match_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mysticpants/at/match"
	tu "github.com/mysticpants/at/utils/testutils"
)

func TestLiteral(t *testing.T) {
	require.Equal(t, true, tu.NoErr[any](t)(match.Match("OK", "OK")))
	require.Equal(t, false, tu.NoErr[any](t)(match.Match("OK", "ERROR")))
	require.Equal(t, true, tu.NoErr[any](t)(match.Match("", "")))
}

func TestBool(t *testing.T) {
	require.Equal(t, true, tu.NoErr[any](t)(match.Match(true, "anything")))
	require.Equal(t, false, tu.NoErr[any](t)(match.Match(false, "anything")))
}

func TestPredicate(t *testing.T) {
	upper := func(token string) any {
		if token == strings.ToUpper(token) {
			return token
		}
		return nil
	}
	require.Equal(t, "OK", tu.NoErr[any](t)(match.Match(match.Predicate(upper), "OK")))
	require.Nil(t, tu.NoErr[any](t)(match.Match(match.Predicate(upper), "ok")))

	// A plain func works too.
	require.Equal(t, "OK", tu.NoErr[any](t)(match.Match(upper, "OK")))
}

func TestRegexp(t *testing.T) {
	re := regexp.MustCompile(`^\+CSQ: (\d+),(\d+)$`)
	result := tu.NoErr[any](t)(match.Match(re, "+CSQ: 21,99"))
	require.Equal(t, []string{"+CSQ: 21,99", "21", "99"}, result)
	require.Equal(t, false, tu.NoErr[any](t)(match.Match(re, "+CSQ: bogus")))
}

func TestAnyOf(t *testing.T) {
	spec := match.AnyOf{"OK", regexp.MustCompile("^ERROR")}
	require.Equal(t, true, tu.NoErr[any](t)(match.Match(spec, "OK")))
	require.Equal(t, []string{"ERROR"}, tu.NoErr[any](t)(match.Match(spec, "ERROR: 1")))
	require.Equal(t, false, tu.NoErr[any](t)(match.Match(spec, "BUSY")))

	// Nested lists recurse; the disjunction identity holds.
	nested := []any{match.AnyOf{false, "a"}, "b"}
	for _, token := range []string{"a", "b"} {
		require.True(t, match.Matched(tu.NoErr[any](t)(match.Match(nested, token))))
	}
	require.False(t, match.Matched(tu.NoErr[any](t)(match.Match(nested, "c"))))
}

type suffixMatcher string

func (m suffixMatcher) Match(token string) any {
	if strings.HasSuffix(token, string(m)) {
		return token
	}
	return nil
}

func TestMatcherInterface(t *testing.T) {
	require.Equal(t, "READY", tu.NoErr[any](t)(match.Match(suffixMatcher("DY"), "READY")))
	require.Nil(t, tu.NoErr[any](t)(match.Match(suffixMatcher("DY"), "OK")))
}

func TestMatched(t *testing.T) {
	require.False(t, match.Matched(nil))
	require.False(t, match.Matched(false))
	require.True(t, match.Matched(true))
	// Zero values other than nil and false count as matches.
	require.True(t, match.Matched(0))
	require.True(t, match.Matched(""))
}

func TestCannotMatch(t *testing.T) {
	type odd struct{}
	_, err := match.Match(odd{}, "tok")
	var cannot *match.CannotMatchError
	require.ErrorAs(t, err, &cannot)

	// An error inside AnyOf propagates.
	_, err = match.Match(match.AnyOf{false, odd{}}, "tok")
	require.ErrorAs(t, err, &cannot)
}

func TestExpectMatch(t *testing.T) {
	require.Equal(t, true, tu.NoErr[any](t)(match.ExpectMatch("OK", "OK")))

	_, err := match.ExpectMatch("OK", "ERROR")
	require.EqualError(t, err, `expected "OK" but got "ERROR"`)

	_, err = match.ExpectMatch(regexp.MustCompile("^a"), "b")
	require.EqualError(t, err, `expected /^a/ but got "b"`)
}
