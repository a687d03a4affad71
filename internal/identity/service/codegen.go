package service

import (
	"crypto/rand"
	"fmt"
	"strings"

	dErrors "agora/pkg/domain-errors"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I/L) so codes
// survive being read aloud or written down.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of enrollment-code values.
const CodeLength = 12

const codeGenerationAttempts = 5

// GenerateCodeValue returns a fresh random code value. Uniqueness is enforced
// by the store; callers retry on collision.
func GenerateCodeValue() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	var b strings.Builder
	b.Grow(CodeLength)
	for _, c := range buf {
		b.WriteByte(codeAlphabet[int(c)%len(codeAlphabet)])
	}
	return b.String(), nil
}

// ValidateCodeValue checks that a code value has the expected length and
// alphabet. Used when seeding codes from configuration.
func ValidateCodeValue(value string) error {
	if len(value) != CodeLength {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("enrollment code must be %d characters", CodeLength))
	}
	for _, r := range value {
		if !strings.ContainsRune(codeAlphabet, r) {
			return dErrors.New(dErrors.CodeInvalidInput, "enrollment code contains an invalid character")
		}
	}
	return nil
}
