// Package randompkg provides functionality for generating random application items in tests.
package randompkg

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz"
	digits   = "0123456789"
)

// Intn is a shortcut for generating a random integer between 0 and max using crypto/rand.
func Intn(max int) int64 {
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(err)
	}

	return nBig.Int64()
}

// IntBetween generates a random integer between min and max inclusive.
func IntBetween(min, max int64) int64 {
	return min + Intn(int(max-min+1))
}

func fromSet(set string, n int) string {
	var sb strings.Builder

	k := len(set)

	for i := 0; i < n; i++ {
		c := set[Intn(k)]

		_ = sb.WriteByte(c) // The returned err is always nil.
	}

	return sb.String()
}

// String generates a random string of length n.
func String(n int) string {
	return fromSet(alphabet, n)
}

// Digits generates a random string of n decimal digits.
func Digits(n int) string {
	return fromSet(digits, n)
}

// ClientGUID generates a random client identifier.
func ClientGUID() string {
	return uuid.NewString()
}

// IBAN generates a random Spanish IBAN.
func IBAN() string {
	return "ES" + Digits(22)
}

// CardNumber generates a random 16 digit card number.
func CardNumber() string {
	return Digits(16)
}

// Creditor generates a random creditor name.
func Creditor() string {
	return strings.ToUpper(String(8))
}

// Amount generates a random positive amount between min and max cents formatted with two decimals.
func Amount(min, max int64) string {
	return decimal.New(IntBetween(min, max), -2).StringFixed(2)
}
