package auth

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/runavault/runavault/internal/common"
)

// groupsClaim is the claim the user pool stores group memberships under.
const groupsClaim = "cognito:groups"

// CognitoVerifier validates RS256 access tokens issued by a Cognito user
// pool, fetching and caching the pool's JWKS.
type CognitoVerifier struct {
	issuer  string
	keyfunc jwt.Keyfunc
}

// NewCognitoVerifier builds a verifier for the given user pool. The JWKS is
// fetched eagerly so misconfiguration surfaces at startup, then refreshed in
// the background for the lifetime of ctx.
func NewCognitoVerifier(ctx context.Context, region, userPoolID string) (*CognitoVerifier, error) {
	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{issuer + "/.well-known/jwks.json"})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}

	return &CognitoVerifier{issuer: issuer, keyfunc: kf.Keyfunc}, nil
}

func (v *CognitoVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, v.keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", common.ErrUnauthorized)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: token has no subject", common.ErrUnauthorized)
	}

	return &Principal{ID: sub, Groups: NormalizeGroups(claims[groupsClaim])}, nil
}
