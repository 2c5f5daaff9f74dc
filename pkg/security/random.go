package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomInt returns a uniformly distributed integer in [min, max].
func RandomInt(min, max int) (int, error) {
	if max < min {
		return 0, fmt.Errorf("invalid range [%d,%d]", min, max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)+1))
	if err != nil {
		return 0, fmt.Errorf("reading random: %w", err)
	}
	return min + int(n.Int64()), nil
}
