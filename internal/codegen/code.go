package codegen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinSequenceWidth is the minimum number of digits in the sequence part.
// Longer sequences are never truncated.
const MinSequenceWidth = 3

// ErrInvalidInput is returned for a missing module type, an out-of-range year
// or a malformed code.
var ErrInvalidInput = errors.New("invalid input")

// Code is a business code of the form {MODULE}-{YY}-{NNN}.
type Code string

func (c Code) String() string { return string(c) }

// Format renders moduleType, year and sequence n as a Code.
func Format(moduleType string, year int, n int64) Code {
	return Code(fmt.Sprintf("%s-%02d-%0*d", moduleType, year%100, MinSequenceWidth, n))
}

// Parse splits a code into its parts. Module types may themselves contain '-'
// (MAIN-EDU-25-003), so the last two separators delimit year and sequence.
// The year is reconstructed as 2000+YY. Only the canonical form produced by
// Format is accepted.
func Parse(code string) (moduleType string, year int, n int64, err error) {
	moduleType, year, n, err = ParseLenient(code)
	if err != nil {
		return "", 0, 0, err
	}
	if Format(moduleType, year, n) != Code(code) {
		return "", 0, 0, fmt.Errorf("%w: code %q: not in canonical form", ErrInvalidInput, code)
	}
	return moduleType, year, n, nil
}

// ParseLenient is Parse without the canonical-form check, so differently
// padded sequences such as TASK-24-0001 or TASK-24-1 still yield their parts.
func ParseLenient(code string) (moduleType string, year int, n int64, err error) {
	invalid := func(reason string) error {
		return fmt.Errorf("%w: code %q: %s", ErrInvalidInput, code, reason)
	}

	i := strings.LastIndexByte(code, '-')
	if i < 0 {
		return "", 0, 0, invalid("missing separators")
	}
	rest, seq := code[:i], code[i+1:]
	j := strings.LastIndexByte(rest, '-')
	if j < 0 {
		return "", 0, 0, invalid("missing year separator")
	}
	moduleType, yy := rest[:j], rest[j+1:]

	if strings.TrimSpace(moduleType) == "" {
		return "", 0, 0, invalid("empty module type")
	}
	if len(yy) != 2 {
		return "", 0, 0, invalid("year must be two digits")
	}
	y, err := strconv.Atoi(yy)
	if err != nil {
		return "", 0, 0, invalid("year is not numeric")
	}
	n, err = strconv.ParseInt(seq, 10, 64)
	if err != nil {
		return "", 0, 0, invalid("sequence is not numeric")
	}
	if n < 1 {
		return "", 0, 0, invalid("sequence must be positive")
	}
	year = 2000 + y
	return moduleType, year, n, nil
}
