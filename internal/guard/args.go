package guard

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValidateArgs parses the payload as JSON. Well-formed input returns
// nil; malformed input bumps the validation failure counter and
// returns a MalformedError describing the parse failure.
func (g *Guard) ValidateArgs(payload string) error {
	if err := parseArgs(payload, nil); err != nil {
		g.statsMu.Lock()
		g.counters.validationFailures++
		g.statsMu.Unlock()
		return &MalformedError{Err: err}
	}
	return nil
}

// CanonicalArgs re-serializes a JSON payload into a normalized form
// with deterministically ordered keys, so semantically identical
// arguments produce identical cache keys regardless of original key
// order or whitespace. Canonicalization is idempotent. Parse failures
// return a MalformedError without touching the failure counter;
// ValidateArgs is the counting entry point.
func (g *Guard) CanonicalArgs(payload string) (string, error) {
	var value any
	if err := parseArgs(payload, &value); err != nil {
		return "", &MalformedError{Err: err}
	}
	out, err := json.Marshal(value)
	if err != nil {
		return "", &MalformedError{Err: err}
	}
	return string(out), nil
}

// BatchValidate applies validation to each payload independently and
// returns a parallel slice of outcomes. Malformed entries yield false
// in place; the batch itself never fails and does not touch the
// validation failure counter.
func (g *Guard) BatchValidate(payloads []string) []bool {
	results := make([]bool, len(payloads))
	for i, p := range payloads {
		results[i] = parseArgs(p, nil) == nil
	}
	return results
}

// parseArgs decodes a single JSON document. Numbers decode as
// json.Number so canonicalization preserves numeric literals instead
// of round-tripping them through float64.
func parseArgs(payload string, into *any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return err
	}
	// Reject trailing garbage after the document.
	if dec.More() {
		return fmt.Errorf("unexpected trailing data at offset %d", dec.InputOffset())
	}
	if into != nil {
		*into = value
	}
	return nil
}
