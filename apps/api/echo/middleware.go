package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func staffMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(claims Claims) bool { return claims.IsStaff || claims.IsAdmin })
}

func officeMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(claims Claims) bool { return claims.IsOffice })
}

func hodMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(claims Claims) bool { return claims.IsHOD })
}

func studentMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(claims Claims) bool { return claims.IsStudent })
}

// selfOrStaffMiddleware allows staff through, and students only when the
// `roll` path param is their own.
func selfOrStaffMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(claims Claims) bool { return claims.IsStaff || claims.IsAdmin },
		func(ctx echo.Context, claims Claims) bool {
			return claims.IsStudent && ctx.Param("roll") == claims.Subject
		})
}

func claimsMiddleware(allowed func(Claims) bool, ctxAllowed ...func(echo.Context, Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if allowed(claims) {
				return next(ctx)
			}
			for _, fn := range ctxAllowed {
				if fn(ctx, claims) {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}
