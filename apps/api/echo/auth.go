package echoapi

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/user"
)

var (
	contextClaimsKey = "userClaims"
	signingMethod    = jwt.SigningMethodHS256
)

// Claims represents the claims transmitted via a JWT. They identify the caller; they grant nothing.
type Claims struct {
	jwt.StandardClaims
	Role     user.Role `json:"role"`
	Username string    `json:"username,omitempty"`
	Email    string    `json:"email,omitempty"`
}

func GetUserClaims(usr user.User, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role:     usr.Role,
		Username: usr.Username,
		Email:    usr.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(signingMethod, claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(tokenStr, secretKey string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != signingMethod.Alg() {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// identifyMiddleware attaches the Claims of a valid bearer token to the request context.
// Requests without a (valid) token go through untouched.
func identifyMiddleware(secretKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if tokenStr := strings.TrimPrefix(auth, "Bearer "); tokenStr != "" && tokenStr != auth {
				if claims, err := parseToken(tokenStr, secretKey); err == nil {
					ctx.Set(contextClaimsKey, *claims)
				}
			}
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (Claims, bool) {
	claims, ok := ctx.Get(contextClaimsKey).(Claims)
	return claims, ok
}
