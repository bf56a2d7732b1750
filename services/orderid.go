package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	orderIDLen      = 6
	orderIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// maxOrderIDAttempts bounds regeneration on collision.
	maxOrderIDAttempts = 16
)

// NewOrderID returns a random 6-character alphanumeric code. Uses crypto/rand.
func NewOrderID() (string, error) {
	result := make([]byte, orderIDLen)
	max := big.NewInt(int64(len(orderIDAlphabet)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("order id: %w", err)
		}
		result[i] = orderIDAlphabet[n.Int64()]
	}
	return string(result), nil
}

// uniqueOrderID draws from gen until taken reports a free code.
func uniqueOrderID(gen func() (string, error), taken func(string) bool) (string, error) {
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		id, err := gen()
		if err != nil {
			return "", err
		}
		if !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free order id after %d attempts", maxOrderIDAttempts)
}
