package util

import (
	"crypto/rand"
	"math/big"
)

const orderNumberAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const orderNumberLength = 8

// GenerateOrderNumber returns a short human-shareable order identifier.
// It lives in a different identifier space than the gateway's payment
// reference.
func GenerateOrderNumber() string {
	buf := make([]byte, orderNumberLength)
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken
			panic(err)
		}
		buf[i] = orderNumberAlphabet[n.Int64()]
	}
	return string(buf)
}
