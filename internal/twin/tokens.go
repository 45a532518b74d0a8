package twin

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pf274/jwt-pizza/internal/pizza"
	"github.com/pf274/jwt-pizza/pkg/store"
)

// DefaultVendor signs every pizza the twin makes.
var DefaultVendor = pizza.Vendor{ID: "pf274", Name: "Peter Fullmer"}

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("invalid jwt")

// authClaims is the payload of a login token.
type authClaims struct {
	User pizza.User `json:"user"`
	jwt.RegisteredClaims
}

// orderClaims is the payload of a pizza factory receipt.
type orderClaims struct {
	pizza.VerifyPayload
	jwt.RegisteredClaims
}

// TokenManager signs login tokens and order receipts with HS256. Both use
// the simulated clock for iat so advancing time is reflected in tokens.
type TokenManager struct {
	authKey    []byte
	factoryKey []byte
	vendor     pizza.Vendor
	clock      *store.Clock
}

// NewTokenManager creates a manager with random signing keys. A nil clock
// uses wall time.
func NewTokenManager(clock *store.Clock, vendor pizza.Vendor) (*TokenManager, error) {
	authKey, err := randomKey()
	if err != nil {
		return nil, err
	}
	factoryKey, err := randomKey()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = store.NewClock()
	}
	return &TokenManager{authKey: authKey, factoryKey: factoryKey, vendor: vendor, clock: clock}, nil
}

func randomKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return key, nil
}

// Vendor returns the vendor stamped into receipts.
func (m *TokenManager) Vendor() pizza.Vendor { return m.vendor }

// SignUser issues a login token for u. The random jti keeps two logins of
// the same user in the same second distinct.
func (m *TokenManager) SignUser(u pizza.User) (string, error) {
	jti := make([]byte, 8)
	if _, err := rand.Read(jti); err != nil {
		return "", err
	}
	claims := authClaims{
		User: u,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(m.clock.Now()),
			ID:       hex.EncodeToString(jti),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.authKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

// ParseUser verifies a login token and returns its user.
func (m *TokenManager) ParseUser(token string) (pizza.User, error) {
	var claims authClaims
	if err := m.parse(token, m.authKey, &claims); err != nil {
		return pizza.User{}, err
	}
	return claims.User, nil
}

// SignOrder issues the receipt for an order placed by diner.
func (m *TokenManager) SignOrder(diner pizza.User, order pizza.Order) (string, error) {
	claims := orderClaims{
		VerifyPayload: pizza.VerifyPayload{Vendor: m.vendor, Diner: &diner, Order: &order},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(m.clock.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.factoryKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

// VerifyOrder checks a receipt and returns its payload.
func (m *TokenManager) VerifyOrder(token string) (pizza.VerifyPayload, error) {
	var claims orderClaims
	if err := m.parse(token, m.factoryKey, &claims); err != nil {
		return pizza.VerifyPayload{}, err
	}
	return claims.VerifyPayload, nil
}

func (m *TokenManager) parse(token string, key []byte, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithLeeway(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
