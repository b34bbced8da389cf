package local

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// mintAccessToken signs an HS256 access token for the account. The token
// travels inside the BackendSession; nothing in the session core inspects
// it.
func (b *Backend) mintAccessToken(account *Account, now time.Time) (string, *time.Time, error) {
	expiration := 24
	if b.cfg.GetTokenExpiration() > 0 {
		expiration = b.cfg.GetTokenExpiration()
	}
	expiresAt := now.Add(time.Duration(expiration) * time.Hour)

	var aud jwt.ClaimStrings
	if audience := b.cfg.GetAudience(); len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	claims := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Issuer:    b.cfg.GetIssuer(),
		Subject:   account.ID.String(),
		Audience:  aud,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(b.cfg.GetSigningKey()))
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CategoryInternal, "failed to sign access token")
	}

	return signed, &expiresAt, nil
}
