package model

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxPrice is the largest representable price (99 999 999.99).
const MaxPrice Price = 9_999_999_999

// ErrInvalidPrice is returned by ParsePrice for malformed input.
var ErrInvalidPrice = errors.New("invalid price")

// Price is a fixed-point amount in cents.  It is stored as an integer
// column and rendered as a decimal string with exactly two fractional
// digits, so no float ever touches money.
type Price int64

// ParsePrice parses "12", "12.5" or "12.50".  At most two fractional
// digits are accepted; a leading minus sign is parsed so that callers can
// report negative amounts as a range error rather than a syntax error.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || (hasDot && (frac == "" || len(frac) > 2)) {
		return 0, ErrInvalidPrice
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, ErrInvalidPrice
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w > int64(MaxPrice/100) {
		return 0, ErrInvalidPrice
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	p := Price(w*100 + f)
	if p > MaxPrice {
		return 0, ErrInvalidPrice
	}
	if neg {
		p = -p
	}
	return p, nil
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Cents returns the raw amount in cents.
func (p Price) Cents() int64 { return int64(p) }

// String renders the price as a decimal, e.g. "12.50".
func (p Price) String() string {
	sign := ""
	v := int64(p)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the price as a JSON string.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// UnmarshalJSON accepts both JSON numbers and numeric strings.
func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		var err error
		if s, err = strconv.Unquote(s); err != nil {
			return ErrInvalidPrice
		}
	}
	v, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
