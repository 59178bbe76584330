package utils

import (
	"crypto/rand"
)

// GenerateOTP returns a numeric one-time passcode of the given length, drawn
// from crypto/rand so every combination including leading zeros is reachable.
func GenerateOTP(length int) (string, error) {
	const otpChars = "0123456789"
	buffer := make([]byte, length)
	_, err := rand.Read(buffer)
	if err != nil {
		return "", err
	}

	otpCharsLength := len(otpChars)
	for i := 0; i < length; i++ {
		buffer[i] = otpChars[int(buffer[i])%otpCharsLength]
	}

	return string(buffer), nil
}
