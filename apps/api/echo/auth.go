package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/ablespace/ablespace/core"
	"github.com/ablespace/ablespace/core/user"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		TokenLookup:   "header:" + echo.HeaderAuthorization,
		Claims:        new(Claims),
	}
	contextUserKey = "user"
)

// appJWTMiddleware authenticates requests against appJWTConfig. The JWT
// middleware only reads the Authorization header, so a token supplied
// via the "token" cookie (browser clients) or the "token" query
// parameter (websocket connects, which cannot set headers) is copied
// there first.
func appJWTMiddleware() echo.MiddlewareFunc {
	jwt := middleware.JWTWithConfig(appJWTConfig)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		authed := jwt(next)
		return func(ctx echo.Context) error {
			req := ctx.Request()
			if req.Header.Get(echo.HeaderAuthorization) == "" {
				if token := requestToken(ctx); token != "" {
					req.Header.Set(echo.HeaderAuthorization, middleware.DefaultJWTConfig.AuthScheme+" "+token)
				}
			}
			return authed(ctx)
		}
	}
}

func requestToken(ctx echo.Context) string {
	if cookie, err := ctx.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ctx.QueryParam("token")
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`   // -> TEACHER | STUDENT PORTAL
	Branch string `json:"branch,omitempty"` // students only
}

func (c Claims) IsTeacher() bool { return c.Role == user.RoleTeacher }
func (c Claims) IsStudent() bool { return c.Role == user.RoleStudent }

func GetUserClaims(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			Audience:  "Academia",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:   usr.Name,
		Email:  usr.Email,
		Role:   usr.Role,
		Branch: usr.Branch,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc *user.Service, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}
