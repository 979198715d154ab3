package utils

import (
	"crypto/rand"
	"errors"
)

const rnsCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RNSLength is the length of strings returned by GenerateRNS.
const RNSLength = 12

// GenerateRNS returns a random 12 character alphanumeric string, used as
// the lookup key for stored credentials.
func GenerateRNS() (string, error) {
	return GenerateRNSN(RNSLength)
}

// GenerateRNSN returns a random alphanumeric string of length n. Bytes that
// would bias the distribution are rejected.
func GenerateRNSN(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("length must be positive")
	}
	// largest multiple of len(charset) that fits in a byte
	limit := 256 - 256%len(rnsCharset)

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, rnsCharset[int(b)%len(rnsCharset)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
