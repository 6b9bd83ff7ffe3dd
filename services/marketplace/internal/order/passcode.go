package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	passcodeMin = 1000
	passcodeMax = 9999
)

// PasscodeGenerator returns the four digit code the customer shows at collection.
type PasscodeGenerator func() (string, error)

// RandomPasscode draws uniformly from 1000..9999.
func RandomPasscode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(passcodeMax-passcodeMin+1))
	if err != nil {
		return "", fmt.Errorf("cannot generate passcode: %w", err)
	}
	return fmt.Sprintf("%d", passcodeMin+n.Int64()), nil
}
