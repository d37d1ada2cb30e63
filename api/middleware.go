package api

import (
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

const identityKey = "identity"

// Identify verifies the token cookie and stores the identity on the context.
// A missing or invalid token leaves the request anonymous.
func Identify(v Verifier, logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			id := identify(c, v, logger)
			m := metricsFrom(c)
			m.ObserveAuth(time.Since(start))
			m.SetAnonymous(id == nil)
			if id != nil {
				c.Set(identityKey, id)
			}
			return next(c)
		}
	}
}

func identify(c echo.Context, v Verifier, logger *log.Logger) *domain.Identity {
	token, err := tokenFromRequest(c.Request())
	if err != nil {
		return nil
	}
	id, err := v.Verify(token)
	if err != nil {
		logger.WithError(err).WithField("path", c.Path()).Debug("token rejected")
		return nil
	}
	return &id
}

func identityFrom(c echo.Context) *domain.Identity {
	id, _ := c.Get(identityKey).(*domain.Identity)
	return id
}
