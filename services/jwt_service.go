package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"helperhand-server/apperror"
	"helperhand-server/config"
	"helperhand-server/types"
)

const (
	tokenIssuer     = "helperhand-server"
	audienceUsers   = "users"
	audienceWorkers = "workers"
	bcryptCost      = 12
)

// TokenResponse is returned by every login and registration endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// JWTService issues and validates tokens for the two credential spaces:
// customers and admins share one secret, workers use another.
type JWTService struct {
	cfg config.JWTConfig
	now func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{cfg: cfg, now: time.Now}
}

func (js *JWTService) space(kind types.PrincipalKind) (secret []byte, audience string, ttl time.Duration, err error) {
	switch kind {
	case types.KindCustomer, types.KindAdmin:
		return []byte(js.cfg.Secret), audienceUsers, time.Duration(js.cfg.ExpiryHours) * time.Hour, nil
	case types.KindWorker:
		return []byte(js.cfg.WorkerSecret), audienceWorkers, time.Duration(js.cfg.WorkerExpiryHours) * time.Hour, nil
	default:
		return nil, "", 0, errors.New("unknown principal kind")
	}
}

// GenerateToken signs an access token for the principal.
func (js *JWTService) GenerateToken(p types.Principal) (*TokenResponse, error) {
	secret, audience, ttl, err := js.space(p.Kind)
	if err != nil {
		return nil, err
	}

	now := js.now()
	claims := &types.Claims{
		Kind: p.Kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: signed,
		ExpiresIn:   int64(ttl.Seconds()),
		TokenType:   "Bearer",
	}, nil
}

// Authenticate validates a bearer token from either credential space and
// returns the principal it names. Only ID and Kind are populated.
func (js *JWTService) Authenticate(tokenString string) (types.Principal, error) {
	if tokenString == "" {
		return types.Principal{}, apperror.Unauthorized("Authorization token required")
	}

	if p, err := js.parse(tokenString, []byte(js.cfg.Secret), audienceUsers); err == nil {
		return p, nil
	}
	if p, err := js.parse(tokenString, []byte(js.cfg.WorkerSecret), audienceWorkers); err == nil {
		return p, nil
	}
	return types.Principal{}, apperror.Unauthorized("Invalid or expired token")
}

func (js *JWTService) parse(tokenString string, secret []byte, audience string) (types.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &types.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwt.WithAudience(audience),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(js.now),
	)
	if err != nil {
		return types.Principal{}, err
	}

	claims, ok := token.Claims.(*types.Claims)
	if !ok || !token.Valid {
		return types.Principal{}, errors.New("invalid token claims")
	}

	kind, err := types.ParsePrincipalKind(claims.Kind)
	if err != nil {
		return types.Principal{}, err
	}
	// A worker kind signed with the user secret (or the reverse) is not valid.
	if (kind == types.KindWorker) != (audience == audienceWorkers) {
		return types.Principal{}, errors.New("principal kind does not match credential space")
	}
	if claims.Subject == "" {
		return types.Principal{}, errors.New("token has no subject")
	}

	return types.Principal{ID: claims.Subject, Kind: kind}, nil
}

// HashPassword hashes a password using bcrypt
func (js *JWTService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func (js *JWTService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
