package middlewares

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"crm/schemas"
	"crm/utils"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const SessionContextKey = contextKey("session")

const TOKEN_ISSUER = "crm"

// Session is the verified identity behind a request.
type Session struct {
	UserID    string `json:"userId"`
	CompanyID string `json:"companyId"`
	Role      string `json:"role"`
}

type Claims struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	issuer string
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: TOKEN_ISSUER}
}

func (tm *TokenManager) GenerateToken(session Session, expiresIn time.Duration) (string, error) {
	if session.UserID == "" || session.CompanyID == "" {
		return "", errors.New("user_id and company_id required")
	}
	now := time.Now()
	claims := Claims{
		UserID:    session.UserID,
		CompanyID: session.CompanyID,
		Role:      session.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Issuer:    tm.issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
}

func (tm *TokenManager) ValidateToken(tokenString string) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tm.issuer))
	if err != nil {
		return Session{}, fmt.Errorf("parse token failed: %w", err)
	}
	if !token.Valid {
		return Session{}, errors.New("invalid token claims")
	}
	return Session{UserID: claims.UserID, CompanyID: claims.CompanyID, Role: claims.Role}, nil
}

// ExtractToken reads a bearer token from the Authorization header, falling
// back to the token query parameter browsers use for websocket upgrades.
func ExtractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", errors.New("invalid authorization header")
		}
		return parts[1], nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errors.New("missing token")
}

func JWTAuth(tm *TokenManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := ExtractToken(r)
			if err != nil {
				utils.SendResponse(w, http.StatusUnauthorized, schemas.Envelope{Error: "Unauthorized: " + err.Error()})
				return
			}

			session, err := tm.ValidateToken(tokenString)
			if err != nil {
				logger.Warn("rejected token", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
				utils.SendResponse(w, http.StatusUnauthorized, schemas.Envelope{Error: "Unauthorized: invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(SessionContextKey).(Session)
	return session, ok
}
