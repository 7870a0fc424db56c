package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService issues and verifies the two token classes. Access and refresh
// tokens are signed with distinct secrets, so one class can never be replayed
// as the other even if the token_use marker were stripped.
type TokenService interface {
	IssueAccessToken(identity Identity) (string, error)
	IssueRefreshToken(identity Identity, extended bool) (string, error)
	VerifyAccessToken(tokenString string) (*AccessClaims, error)
	VerifyRefreshToken(tokenString string) (*RefreshClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	accessKey   []byte
	refreshKey  []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	extendedTTL time.Duration
	issuer      string
	audience    jwt.ClaimStrings
	logger      Logger
}

// NewTokenService creates a new TokenService instance from config
func NewTokenService(config Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		accessKey:   []byte(config.GetAccessSigningKey()),
		refreshKey:  []byte(config.GetRefreshSigningKey()),
		accessTTL:   config.GetAccessTokenDuration(),
		refreshTTL:  config.GetRefreshTokenDuration(),
		extendedTTL: config.GetExtendedRefreshDuration(),
		issuer:      config.GetIssuer(),
		audience:    config.GetAudience(),
		logger:      logger,
	}
}

// IssueAccessToken creates a short-lived token carrying identity and roles
func (ts *TokenServiceImpl) IssueAccessToken(identity Identity) (string, error) {
	if identity == nil {
		return "", goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.copyAudience(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTTL)),
		},
		UID:          identity.ID(),
		AccountEmail: identity.Email(),
		AccountRoles: append([]RoleName(nil), identity.Roles()...),
		TokenUse:     TokenUseAccess,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.signClaims(claims, ts.accessKey)
}

// IssueRefreshToken creates a long-lived token carrying identity only. The
// extended flag stretches the lifetime for remember-me sessions.
func (ts *TokenServiceImpl) IssueRefreshToken(identity Identity, extended bool) (string, error) {
	if identity == nil {
		return "", goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	ttl := ts.refreshTTL
	if extended {
		ttl = ts.extendedTTL
	}

	now := time.Now()
	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.copyAudience(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:          identity.ID(),
		AccountEmail: identity.Email(),
		TokenUse:     TokenUseRefresh,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.signClaims(claims, ts.refreshKey)
}

// VerifyAccessToken parses and validates an access token, returning
// structured claims. A refresh token will fail here on its signature.
func (ts *TokenServiceImpl) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := ts.parse(tokenString, &AccessClaims{}, ts.accessKey)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService could not decode access claims")
		return nil, ErrTokenMalformed
	}

	if claims.TokenUse != "" && claims.TokenUse != TokenUseAccess {
		ts.logger.Warn("TokenService rejected token with use %q on the access path", claims.TokenUse)
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// VerifyRefreshToken parses and validates a refresh token
func (ts *TokenServiceImpl) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := ts.parse(tokenString, &RefreshClaims{}, ts.refreshKey)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService could not decode refresh claims")
		return nil, ErrTokenMalformed
	}

	if claims.TokenUse != "" && claims.TokenUse != TokenUseRefresh {
		ts.logger.Warn("TokenService rejected token with use %q on the refresh path", claims.TokenUse)
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func (ts *TokenServiceImpl) parse(tokenString string, claims jwt.Claims, key []byte) (*jwt.Token, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	return token, nil
}

func (ts *TokenServiceImpl) signClaims(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

func (ts *TokenServiceImpl) copyAudience() jwt.ClaimStrings {
	if len(ts.audience) == 0 {
		return nil
	}
	aud := make(jwt.ClaimStrings, len(ts.audience))
	copy(aud, ts.audience)
	return aud
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
