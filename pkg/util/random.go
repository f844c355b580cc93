package util

import (
	"crypto/rand"
	"errors"
	"math/big"
)

var ErrEmptyAlphabet = errors.New("alphabet must not be empty")

// RandomString draws n characters uniformly from alphabet using crypto/rand.
// rand.Int rejects out-of-range samples internally, so there is no modulo bias.
func RandomString(alphabet string, n int) (string, error) {
	if len(alphabet) == 0 {
		return "", ErrEmptyAlphabet
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
