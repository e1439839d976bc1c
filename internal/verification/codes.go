package verification

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCodeTTL is how long an issued code stays valid.
	DefaultCodeTTL = 5 * time.Minute
	// MaxAttempts is the number of wrong guesses allowed per code.
	MaxAttempts = 5

	codeDigits = 6
)

// Code is what the store keeps per address. The plain code is never stored.
type Code struct {
	Hash     []byte
	Attempts int
}

// Notifier delivers a freshly issued code to its owner.
type Notifier interface {
	SendCode(ctx context.Context, address, code string) error
}

// LogNotifier writes codes to the log instead of sending them. It is meant
// for development setups without a mail transport.
type LogNotifier struct {
	Log zerolog.Logger
}

// SendCode implements Notifier.
func (n LogNotifier) SendCode(_ context.Context, address, code string) error {
	n.Log.Debug().Str("address", address).Str("code", code).Msg("Verification code issued")
	return nil
}

// Codes issues and checks six-digit one-time codes.
type Codes struct {
	// mu makes each read-compare-write on the store a single step.
	mu       sync.Mutex
	store    *Store[Code]
	notifier Notifier
	ttl      time.Duration
	cost     int
	log      zerolog.Logger
}

// NewCodes creates a code issuer backed by store. A non-positive ttl uses DefaultCodeTTL.
func NewCodes(store *Store[Code], notifier Notifier, ttl time.Duration, log zerolog.Logger) *Codes {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &Codes{
		store:    store,
		notifier: notifier,
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		log:      log,
	}
}

// NormalizeAddress lowercases and trims an address so lookups are stable.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Issue generates a new code for address, replacing any pending one, and hands
// it to the notifier.
func (c *Codes) Issue(ctx context.Context, address string) error {
	address = NormalizeAddress(address)
	if address == "" {
		return fmt.Errorf("Issue: address is required")
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("Issue: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), c.cost)
	if err != nil {
		return fmt.Errorf("Issue: hash code: %w", err)
	}

	c.mu.Lock()
	c.store.Put(address, Code{Hash: hash}, c.ttl)
	c.mu.Unlock()

	if c.notifier != nil {
		if err := c.notifier.SendCode(ctx, address, code); err != nil {
			c.discard(address, hash)
			return fmt.Errorf("Issue: send code: %w", err)
		}
	}

	c.log.Info().Str("address", address).Dur("ttl", c.ttl).Msg("Verification code stored")
	return nil
}

// Verify checks code for address. A matching code is consumed.
func (c *Codes) Verify(address, code string) error {
	address = NormalizeAddress(address)

	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.store.Get(address)
	if err != nil {
		return fmt.Errorf("Verify: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(stored.Hash, []byte(strings.TrimSpace(code))); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("Verify: compare: %w", err)
		}
		stored.Attempts++
		if stored.Attempts >= MaxAttempts {
			c.store.Delete(address)
			c.log.Warn().Str("address", address).Msg("Verification code revoked after repeated failures")
			return fmt.Errorf("Verify: %w", ErrTooManyAttempts)
		}
		c.store.Update(address, stored)
		return fmt.Errorf("Verify: %w", ErrMismatch)
	}

	c.store.Delete(address)
	return nil
}

// discard removes the code for address unless a newer one replaced it.
func (c *Codes) discard(address string, hash []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stored, err := c.store.Get(address); err == nil && bytes.Equal(stored.Hash, hash) {
		c.store.Delete(address)
	}
}

func generateCode() (string, error) {
	limit := big.NewInt(900000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()+100000), nil
}
