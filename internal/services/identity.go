package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

var ErrInvalidToken = errors.New("invalid token")

// IdentityClaims is the access token body: sub carries the user id, tier the plan tier.
type IdentityClaims struct {
	Tier string `json:"tier"`
	jwt.RegisteredClaims
}

// IdentityService resolves bearer tokens into callers. Accounts live upstream; this
// service only verifies what the account service signed.
type IdentityService interface {
	Verify(tokenString string) (ctxutil.Caller, error)
	Issue(userID uuid.UUID, tier tasting.Tier, ttl time.Duration) (string, error)
}

type identityService struct {
	log    *logger.Logger
	secret []byte
	now    func() time.Time
}

func NewIdentityService(baseLog *logger.Logger, secret string, now func() time.Time) IdentityService {
	if now == nil {
		now = time.Now
	}
	return &identityService{
		log:    baseLog.With("service", "IdentityService"),
		secret: []byte(secret),
		now:    now,
	}
}

func (s *identityService) Issue(userID uuid.UUID, tier tasting.Tier, ttl time.Duration) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("issue token: empty user id")
	}
	now := s.now().UTC()
	claims := IdentityClaims{
		Tier: string(tier),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *identityService) Verify(tokenString string) (ctxutil.Caller, error) {
	if len(s.secret) == 0 {
		return ctxutil.Caller{}, fmt.Errorf("%w: signing key not configured", ErrInvalidToken)
	}
	claims := &IdentityClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return ctxutil.Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	userID, err := uuid.Parse(strings.TrimSpace(claims.Subject))
	if err != nil || userID == uuid.Nil {
		return ctxutil.Caller{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	// A signed-in user is never anonymous; missing or unknown tiers fall back to free.
	tier, ok := tasting.ParseTier(claims.Tier)
	if !ok || tier == tasting.TierAnonymous {
		tier = tasting.TierFree
	}
	return ctxutil.Caller{UserID: userID, Tier: string(tier)}, nil
}
