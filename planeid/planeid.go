// Package planeid maps plane ordinals onto the four character identifier
// space AA00..ZZ99. Identifiers are ordered like a mixed-radix counter: the
// two digits advance fastest, then the second letter, then the first.
package planeid

import (
	"errors"
	"fmt"
)

const (
	letters = 26
	numbers = 100

	// Space is the total number of distinct identifiers
	Space = letters * letters * numbers
)

var (
	// ErrRangeExceeded is returned when an offset walks past ZZ99
	ErrRangeExceeded = errors.New("plane identifier range exceeded")

	// ErrMalformed is returned for anything that isn't two uppercase
	// letters followed by two digits
	ErrMalformed = errors.New("malformed plane identifier")
)

// An ID is a syntactically valid plane identifier, e.g. "AB07"
type ID string

// Parse validates s and returns it as an ID
func Parse(s string) (ID, error) {
	if _, err := Decode(s); err != nil {
		return "", err
	}
	return ID(s), nil
}

// Decode returns the position of s in the identifier ordering
func Decode(s string) (int, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	l1, l2, d1, d2 := s[0], s[1], s[2], s[3]
	if !isUpper(l1) || !isUpper(l2) || !isDigit(d1) || !isDigit(d2) {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	idx := (int(l1-'A')*letters+int(l2-'A'))*numbers + int(d1-'0')*10 + int(d2-'0')
	return idx, nil
}

// Encode is the inverse of Decode
func Encode(idx int) (ID, error) {
	if idx < 0 || idx >= Space {
		return "", fmt.Errorf("%w: index %d", ErrRangeExceeded, idx)
	}

	num := idx % numbers
	pair := idx / numbers

	return ID([]byte{
		byte('A' + pair/letters),
		byte('A' + pair%letters),
		byte('0' + num/10),
		byte('0' + num%10),
	}), nil
}

// At returns the identifier offset places after start
func At(start ID, offset uint) (ID, error) {
	idx, err := Decode(string(start))
	if err != nil {
		return "", err
	}

	// Compare before adding so huge offsets can't overflow
	if offset >= uint(Space-idx) {
		return "", fmt.Errorf("%w: %s + %d is beyond ZZ99", ErrRangeExceeded, start, offset)
	}

	return Encode(idx + int(offset))
}

// Index is Decode for an already validated ID
func (id ID) Index() int {
	idx, _ := Decode(string(id))
	return idx
}

func (id ID) String() string { return string(id) }

func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
