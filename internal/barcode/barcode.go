// Package barcode implements the in-store barcode scheme: an 11-digit
// code of 3-digit store prefix, 3-digit category code, 4-digit sequence
// and a weighted modulo-10 check digit.
package barcode

import (
	"fmt"
	"strconv"

	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
)

const (
	// Length is the total barcode length including the check digit.
	Length = 11

	prefixLength   = 3
	categoryLength = 3
	sequenceLength = 4
	payloadLength  = prefixLength + categoryLength + sequenceLength

	// MaxSequence is the largest sequence the 4-digit segment can hold.
	MaxSequence = 9999
)

var (
	// ErrMalformed rejects codes of the wrong length or with non-digit characters.
	ErrMalformed = fmt.Errorf("%w: barcode must be %d digits", httpx.ErrValidation, Length)
	// ErrChecksum rejects codes whose final digit fails the checksum.
	ErrChecksum = fmt.Errorf("%w: barcode checksum mismatch", httpx.ErrValidation)
)

// CheckDigit computes the weighted modulo-10 check digit over a digit
// string: digits are weighted 3, 1, 3, 1... from the leftmost position,
// and the check digit is (10 − (sum mod 10)) mod 10.
func CheckDigit(digits string) (int, error) {
	if digits == "" {
		return 0, ErrMalformed
	}
	sum := 0
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, ErrMalformed
		}
		weight := 3
		if i%2 == 1 {
			weight = 1
		}
		sum += int(c-'0') * weight
	}
	return (10 - sum%10) % 10, nil
}

// Validate reports whether code is a well-formed barcode with a correct
// check digit.
func Validate(code string) error {
	if len(code) != Length {
		return ErrMalformed
	}
	check, err := CheckDigit(code[:payloadLength])
	if err != nil {
		return err
	}
	last := code[payloadLength]
	if last < '0' || last > '9' {
		return ErrMalformed
	}
	if int(last-'0') != check {
		return ErrChecksum
	}
	return nil
}

// Build assembles a barcode from its segments and appends the check digit.
func Build(prefix, categoryCode string, sequence int) (string, error) {
	if len(prefix) != prefixLength || !allDigits(prefix) {
		return "", fmt.Errorf("%w: prefix must be %d digits", httpx.ErrValidation, prefixLength)
	}
	if len(categoryCode) != categoryLength || !allDigits(categoryCode) {
		return "", fmt.Errorf("%w: category code must be %d digits", httpx.ErrValidation, categoryLength)
	}
	if sequence < 1 || sequence > MaxSequence {
		return "", fmt.Errorf("%w: sequence %d out of range", httpx.ErrValidation, sequence)
	}
	payload := fmt.Sprintf("%s%s%0*d", prefix, categoryCode, sequenceLength, sequence)
	check, err := CheckDigit(payload)
	if err != nil {
		return "", err
	}
	return payload + strconv.Itoa(check), nil
}

// Parts is a decomposed barcode.
type Parts struct {
	Prefix       string `json:"prefix"`
	CategoryCode string `json:"category_code"`
	Sequence     int    `json:"sequence"`
	CheckDigit   int    `json:"check_digit"`
}

// Parse validates code and splits it into its segments.
func Parse(code string) (Parts, error) {
	if err := Validate(code); err != nil {
		return Parts{}, err
	}
	sequence, err := strconv.Atoi(code[prefixLength+categoryLength : payloadLength])
	if err != nil {
		return Parts{}, ErrMalformed
	}
	return Parts{
		Prefix:       code[:prefixLength],
		CategoryCode: code[prefixLength : prefixLength+categoryLength],
		Sequence:     sequence,
		CheckDigit:   int(code[payloadLength] - '0'),
	}, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
