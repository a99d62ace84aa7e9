package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// ReferenceGenerator produces booking references.  References need
// not be unique; the ledger retries on collision.
type ReferenceGenerator interface {
	Generate(now time.Time) (string, error)
}

// DefaultReferencePrefix is used when RandomReference.Prefix is empty.
const DefaultReferencePrefix = "LCP"

// RandomReference yields Prefix + YYYYMMDD + a random number in
// [1000, 9999].
type RandomReference struct {
	Prefix string
}

func (g RandomReference) Generate(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	prefix := g.Prefix
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	return fmt.Sprintf("%s%s%d", prefix, now.Format("20060102"), 1000+n.Int64()), nil
}
