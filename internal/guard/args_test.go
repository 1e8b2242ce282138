package guard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := New(10)
	require.NoError(t, err)
	return g
}

func TestValidateArgs(t *testing.T) {
	g := newGuard(t)

	valid := []string{
		`{}`,
		`{"query": "golang", "limit": 5}`,
		`[1, 2, 3]`,
		`"bare string"`,
		`42`,
		`null`,
		`true`,
	}
	for _, payload := range valid {
		assert.NoError(t, g.ValidateArgs(payload), "payload %q", payload)
	}

	invalid := []string{
		``,
		`{`,
		`{"unterminated": `,
		`{"a":1} trailing`,
		`{'single': 'quotes'}`,
		`not json at all`,
	}
	for _, payload := range invalid {
		err := g.ValidateArgs(payload)
		require.Error(t, err, "payload %q", payload)
		assert.True(t, IsMalformed(err), "payload %q: err = %v", payload, err)
	}

	assert.Equal(t, int64(len(invalid)), g.Stats().ValidationFailures)
}

func TestCanonicalArgsOrdersKeys(t *testing.T) {
	g := newGuard(t)

	a, err := g.CanonicalArgs(`{"b": 2, "a": 1}`)
	require.NoError(t, err)
	b, err := g.CanonicalArgs(`{ "a" :1,  "b": 2 }`)
	require.NoError(t, err)

	assert.Equal(t, a, b, "key order and whitespace must not affect the canonical form")
	assert.Equal(t, `{"a":1,"b":2}`, a)
}

func TestCanonicalArgsIdempotent(t *testing.T) {
	g := newGuard(t)

	once, err := g.CanonicalArgs(`{"z": [3, 2, 1], "a": {"nested": true}}`)
	require.NoError(t, err)
	twice, err := g.CanonicalArgs(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestCanonicalArgsPreservesNumbers(t *testing.T) {
	g := newGuard(t)

	out, err := g.CanonicalArgs(`{"big": 9007199254740993, "frac": 0.1}`)
	require.NoError(t, err)
	assert.Contains(t, out, "9007199254740993", "integer literal must not round-trip through float64")
	assert.Contains(t, out, "0.1")
}

func TestCanonicalArgsMalformedDoesNotCount(t *testing.T) {
	g := newGuard(t)

	_, err := g.CanonicalArgs(`{broken`)
	require.Error(t, err)
	var m *MalformedError
	assert.True(t, errors.As(err, &m))

	assert.Zero(t, g.Stats().ValidationFailures,
		"canonicalization failures must not bump the validation counter")
}

func TestBatchValidate(t *testing.T) {
	g := newGuard(t)

	payloads := []string{`{}`, `{bad`, `[1,2]`, ``, `"ok"`}
	got := g.BatchValidate(payloads)
	assert.Equal(t, []bool{true, false, true, false, true}, got)

	assert.Zero(t, g.Stats().ValidationFailures,
		"batch validation must not bump the validation counter")

	assert.Empty(t, g.BatchValidate(nil))
}
