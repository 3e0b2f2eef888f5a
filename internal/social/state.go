package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bremersee/authman/internal/cache"
)

// StateAudience is the audience of login state tokens.
const StateAudience = "social-state"

const statePrefix = "social:state:"

// StateClaims travel through the provider round trip inside the state parameter.
type StateClaims struct {
	Provider    string `json:"provider"`
	RedirectURI string `json:"redir"`
	// UserName is the local account to link, empty for anonymous logins.
	UserName string `json:"usr,omitempty"`
	jwtv5.RegisteredClaims
}

// Errors for state operations.
var (
	ErrStateInvalid  = errors.New("invalid state token")
	ErrStateExpired  = errors.New("state token expired")
	ErrStateReplayed = errors.New("state token already used")
	ErrStateProvider = errors.New("state provider mismatch")
)

// StateSigner issues HS256 state tokens and accepts each of them once. The
// jti of every issued token is kept in the cache until it is consumed or
// expires, so a state can only complete one exchange.
type StateSigner struct {
	key    []byte
	issuer string
	ttl    time.Duration
	nonces cache.Client
	now    func() time.Time
}

func NewStateSigner(key []byte, issuer string, ttl time.Duration, nonces cache.Client) (*StateSigner, error) {
	if len(key) == 0 {
		return nil, errors.New("social: empty state signing key")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{key: key, issuer: issuer, ttl: ttl, nonces: nonces, now: time.Now}, nil
}

// Issue signs claims and registers their jti.
func (s *StateSigner) Issue(ctx context.Context, claims StateClaims) (string, error) {
	now := s.now().UTC()
	claims.RegisteredClaims = jwtv5.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Audience:  jwtv5.ClaimStrings{StateAudience},
		IssuedAt:  jwtv5.NewNumericDate(now),
		NotBefore: jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	if err := s.nonces.Set(ctx, statePrefix+claims.ID, claims.Provider, s.ttl); err != nil {
		return "", fmt.Errorf("store state nonce: %w", err)
	}
	return signed, nil
}

// Consume validates token and burns its jti.
func (s *StateSigner) Consume(ctx context.Context, token string) (*StateClaims, error) {
	var claims StateClaims
	_, err := jwtv5.ParseWithClaims(token, &claims,
		func(*jwtv5.Token) (any, error) { return s.key, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithAudience(StateAudience),
		jwtv5.WithIssuer(s.issuer),
		jwtv5.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrStateInvalid, err)
	}
	if claims.ID == "" {
		return nil, ErrStateInvalid
	}

	provider, err := s.nonces.Take(ctx, statePrefix+claims.ID)
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrStateReplayed
		}
		return nil, err
	}
	if provider != claims.Provider {
		return nil, ErrStateProvider
	}
	return &claims, nil
}
