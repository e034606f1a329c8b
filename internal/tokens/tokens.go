package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fieldform/backend/internal/claims"
)

// ClaimLastUpdateKey carries the unix-millisecond issue timestamp that ties
// a token to its session-cache entry.
const ClaimLastUpdateKey = "lastUpdateKey"

var ErrInvalidToken = errors.New("invalid token")

// Signer builds and verifies the bearer tokens. The same configured value
// is used as issuer and audience; signing is HS256 with a symmetric key.
type Signer struct {
	Key    []byte
	Issuer string
	TTL    time.Duration
}

func NewSigner(key []byte, issuer string, ttl time.Duration) *Signer {
	return &Signer{Key: key, Issuer: issuer, TTL: ttl}
}

// TokenInput is everything embedded into a token. Claims are a snapshot:
// role claims granted after issuance only become visible on reissue.
type TokenInput struct {
	UserID    uint
	Locale    string
	TimeStamp int64
	Roles     []string
	Claims    []claims.Claim
}

// Generate signs a token for the input and returns it with its expiry.
// Expiry counts from signing time, not from the embedded timestamp.
func (s *Signer) Generate(in TokenInput) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.TTL)

	mc := jwt.MapClaims{
		"sub":              strconv.FormatUint(uint64(in.UserID), 10),
		"jti":              uuid.NewString(),
		"iss":              s.Issuer,
		"aud":              s.Issuer,
		"iat":              jwt.NewNumericDate(now),
		"exp":              jwt.NewNumericDate(exp),
		ClaimLastUpdateKey: strconv.FormatInt(in.TimeStamp, 10),
	}
	if in.Locale != "" {
		mc["locale"] = in.Locale
	}
	if len(in.Roles) > 0 {
		mc["role"] = in.Roles[0]
		mc["roles"] = in.Roles
	}
	for _, c := range in.Claims {
		if _, taken := mc[c.Type]; !taken {
			mc[c.Type] = c.Value
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	signed, err := token.SignedString(s.Key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// AccessClaims is the subset of token claims the server reads back. The
// flattened permission claims are never consulted server-side; authoritative
// claims live in the session cache.
type AccessClaims struct {
	Role       string   `json:"role"`
	Roles      []string `json:"roles"`
	Locale     string   `json:"locale"`
	LastUpdate string   `json:"lastUpdateKey"`
	jwt.RegisteredClaims
}

// UserID parses the numeric subject.
func (c *AccessClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// Parse verifies signature, algorithm, issuer, audience and expiry.
func (s *Signer) Parse(tokenString string) (*AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.Key, nil
	}, jwt.WithIssuer(s.Issuer), jwt.WithAudience(s.Issuer))
	if err != nil {
		return nil, ErrInvalidToken
	}
	accessClaims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return accessClaims, nil
}
