package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"studyhall/internal/nonce"
)

var (
	ErrInvalidNonce     = errors.New("invalid nonce")
	ErrNonValidToken    = errors.New("token did not pass validation")
	ErrInvalidClaimType = errors.New("invalid claim type")
)

var tokenSignatureAlg = jwt.SigningMethodHS256

// Signer issues and verifies the application's JWTs. Tokens carry a nonce
// as their jti so they can be revoked through the nonce store.
type Signer struct {
	secret []byte
	ttl    uint // default TTL in seconds
	nonces nonce.NonceStoreInterface
}

func NewSigner(secret string, ttl uint, nonces nonce.NonceStoreInterface) *Signer {
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		nonces: nonces,
	}
}

// AuthClaims is the session cookie claim. Revocable: logout consumes the
// jti nonce, after which decoding fails.
type AuthClaims struct {
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	MustRenew bool   `json:"must_renew,omitempty"`
	jwt.RegisteredClaims
}

// LoginClaims is a single-use email login link claim.
type LoginClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// WidgetClaims authorizes the read-only widget feed. Stateless, long-lived,
// verified on every poll without touching the nonce store.
type WidgetClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

func (s *Signer) NewAuthClaims(userID int64, role string, ttlDays uint) AuthClaims {
	ttl := ttlDays * 24 * 60 * 60
	return AuthClaims{
		UserID:           userID,
		Role:             role,
		RegisteredClaims: s.mustCreateRegisteredClaim(ttl),
	}
}

func (s *Signer) NewLoginClaims(email string, ttl uint) LoginClaims {
	return LoginClaims{
		Email:            email,
		RegisteredClaims: s.mustCreateRegisteredClaim(ttl),
	}
}

func (s *Signer) NewWidgetClaims(userID int64, ttlDays uint) WidgetClaims {
	ttl := ttlDays * 24 * 60 * 60
	return WidgetClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtExpiry(ttl),
		},
	}
}

// DecodeAuthJWT verifies a session token. The jti nonce must still exist;
// a consumed nonce means the session was logged out or renewed away.
func (s *Signer) DecodeAuthJWT(tokenString string) (*AuthClaims, error) {
	claims, err := decodeJWT(s.secret, tokenString, &AuthClaims{})
	if err != nil {
		return nil, err
	}
	if !s.nonces.Exists(context.Background(), claims.ID) {
		return nil, ErrInvalidNonce
	}
	return claims, nil
}

// DecodeLoginJWT verifies a login link token and consumes its nonce, so a
// link works exactly once.
func (s *Signer) DecodeLoginJWT(tokenString string) (*LoginClaims, error) {
	claims, err := decodeJWT(s.secret, tokenString, &LoginClaims{})
	if err != nil {
		return nil, err
	}
	if ok, err := s.nonces.Consume(context.Background(), claims.ID); err != nil || !ok {
		if err != nil {
			return nil, err
		}
		return nil, ErrInvalidNonce
	}
	return claims, nil
}

func (s *Signer) DecodeWidgetJWT(tokenString string) (*WidgetClaims, error) {
	return decodeJWT(s.secret, tokenString, &WidgetClaims{})
}

// RevokeAuth consumes the jti of a session token, invalidating it.
func (s *Signer) RevokeAuth(ctx context.Context, claims *AuthClaims) {
	s.nonces.Consume(ctx, claims.ID)
}

func (s *Signer) mustCreateRegisteredClaim(ttl uint) jwt.RegisteredClaims {
	nonceValue, err := nonce.NewToken()
	if err != nil {
		panic(fmt.Sprintf("failed to generate nonce: %v", err))
	}

	// nonce TTL is slightly longer than token TTL to allow for clock skew
	nonceTTL := time.Duration(ttl+10) * time.Second
	if err := s.nonces.Put(context.Background(), nonceValue, nonceTTL); err != nil {
		panic(fmt.Sprintf("failed to store nonce: %v", err))
	}

	return jwt.RegisteredClaims{
		ID:        nonceValue,
		IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		ExpiresAt: jwtExpiry(ttl),
	}
}

// Convert TTL to time in future
func tokenTTL(ttl uint) time.Time {
	if ttl <= 0 {
		panic("invalid token TTL")
	}
	return time.Now().UTC().Add(time.Duration(ttl) * time.Second)
}

func jwtExpiry(ttl uint) *jwt.NumericDate {
	expiry := tokenTTL(ttl)
	return jwt.NewNumericDate(expiry)
}

// Generate signs claims into a compact JWT.
func (s *Signer) Generate(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(tokenSignatureAlg, claims)
	return token.SignedString(s.secret)
}

func decodeJWT[T jwt.Claims](secret []byte, tokenString string, claimsType T) (T, error) {
	var zero T

	parsedToken, err := jwt.ParseWithClaims(tokenString, claimsType, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{tokenSignatureAlg.Alg()}))

	if err != nil {
		return zero, err
	} else if parsedToken == nil || !parsedToken.Valid {
		return zero, ErrNonValidToken
	} else if claims, ok := parsedToken.Claims.(T); ok {
		return claims, nil
	}

	return zero, ErrInvalidClaimType
}
