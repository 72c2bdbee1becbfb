package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, service string) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", service),
	}
}

// Logger exposes the underlying slog logger scoped to the service.
func (l *ServiceLogger) Logger() *slog.Logger {
	return l.logger
}

// ===== OPERATION LOGGING =====

// LogOperation logs the outcome of one service call. Expected refusals
// (validation, permission, guard blocks) log at warn, not-found at info and
// everything else at error.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation, userID, resourceID string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		switch {
		case IsValidation(err) || IsBusinessRule(err):
			level = slog.LevelWarn
			status = "validation_error"
		case IsUnauthorized(err) || errors.Is(err, ErrLoginRequired):
			level = slog.LevelWarn
			status = "unauthorized"
		case IsNotFound(err):
			status = "not_found"
		default:
			if _, ok := IsBlocked(err); ok {
				level = slog.LevelWarn
				status = "blocked"
			}
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.String("resource_id", resourceID),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var ve ValidationErrors
		var bre *BusinessRuleError
		var pe *PermissionError
		switch {
		case errors.As(err, &ve):
			attrs = append(attrs, slog.Int("validation_errors_count", len(ve)))
		case errors.As(err, &bre):
			attrs = append(attrs, slog.String("business_rule", bre.Rule))
		case errors.As(err, &pe):
			attrs = append(attrs, slog.String("permission_action", pe.Action))
		}
		if d, ok := IsBlocked(err); ok {
			attrs = append(attrs, slog.String("reason", string(d.Reason)))
		}
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) LogValidationError(ctx context.Context, operation, userID string, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.Int("error_count", len(validationErrors)),
	}

	for i, err := range validationErrors {
		if i >= 5 {
			break
		}
		attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
			slog.String("field", err.Field),
			slog.String("message", err.Message),
		))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Validation failed", attrs...)
}

// ===== OPERATION SCOPE =====

// Operation times one service call and logs its result.
type Operation struct {
	logger    *ServiceLogger
	ctx       context.Context
	name      string
	userID    string
	startTime time.Time
}

func (l *ServiceLogger) WithOperation(ctx context.Context, name, userID string) *Operation {
	return &Operation{
		logger:    l,
		ctx:       ctx,
		name:      name,
		userID:    userID,
		startTime: time.Now(),
	}
}

func (o *Operation) LogResult(resourceID string, err error) {
	o.logger.LogOperation(o.ctx, o.name, o.userID, resourceID, time.Since(o.startTime), err)

	var ve ValidationErrors
	if errors.As(err, &ve) {
		o.logger.LogValidationError(o.ctx, o.name, o.userID, ve)
	}
}
