package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	dashboardCodeLength = 8
	referencePrefix     = "TKT-"
	referenceRandLength = 6
	maxReferenceLength  = 32
)

var (
	dashboardCodeAlphabet = []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	referenceAlphabet     = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
)

// generateAccessCode returns a uniformly random six digit code.
func generateAccessCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func generateDashboardCode() (string, error) {
	return randomString(dashboardCodeAlphabet, dashboardCodeLength)
}

// newOrderReference returns the internal reference sent to gateways as the order id.
func newOrderReference() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	suffix, err := randomString(referenceAlphabet, referenceRandLength)
	if err != nil {
		return "", err
	}
	hex := strings.ReplaceAll(id.String(), "-", "")
	ref := referencePrefix + hex[len(hex)-16:] + suffix
	if len(ref) > maxReferenceLength {
		ref = ref[:maxReferenceLength]
	}
	return ref, nil
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func randomString(alphabet []rune, length int) (string, error) {
	b := make([]rune, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}
