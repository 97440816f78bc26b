package game

import (
	"crypto/rand"
	"math/big"
)

const inviteCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a random invite token without ambiguous characters.
func GenerateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteCharset))))
		if err != nil {
			return "", err
		}
		code[i] = inviteCharset[num.Int64()]
	}
	return string(code), nil
}
