package http

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/observability"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// MiddlewareConfig bundles the global middleware dependencies.
type MiddlewareConfig struct {
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Timeout  time.Duration
	Statuses apperrors.StatusTable
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The request logger runs outermost so it sees the status written by the error handler.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	statuses := cfg.Statuses
	if statuses == nil {
		statuses = apperrors.DefaultStatusTable()
	}
	app.Use(requestid.New(requestid.Config{ContextKey: observability.RequestIDLocal}))
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	app.Use(errorHandlingMiddleware(cfg.Logger, cfg.Metrics, statuses))
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics, statuses apperrors.StatusTable) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err != nil {
				domainErr := toDomainError(err)
				if metrics != nil {
					metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				}
				response := fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}
				if len(domainErr.Details) > 0 {
					response["details"] = domainErr.Details
				}
				status := statuses.Status(domainErr)
				if status >= fiber.StatusInternalServerError {
					logger.Error("request failed", zap.Error(domainErr), zap.String("path", c.Path()))
				}
				_ = c.Status(status).JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// toDomainError also understands the *fiber.Error values the router produces
// for unknown routes and rejected methods.
func toDomainError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := fmt.Sprintf("HTTP_%d", fiberErr.Code)
		if fiberErr.Code == fiber.StatusNotFound {
			code = apperrors.CodeNotFound
		}
		return apperrors.NewDomainError(code, fiberErr.Message, fiberErr.Code, nil)
	}
	return apperrors.ToDomainError(err)
}
