package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// NewFlowID returns the identifier for a new wizard session. Flow IDs are
// opaque correlation handles, not credentials.
func NewFlowID() string {
	return uuid.NewString()
}

const otpAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOTP returns a random alphanumeric code of the given length. The alphabet
// omits characters that read ambiguously in email clients.
func NewOTP(length int) (string, error) {
	if length < 4 || length > 10 {
		return "", errors.New("invalid otp length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(otpAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(otpAlphabet[n.Int64()])
	}

	return b.String(), nil
}
