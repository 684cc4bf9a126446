package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"gorm.io/gorm"
)

// translateError maps driver and gorm errors onto the domain error categories.
// The original error stays in the chain for logging.
func translateError(err error, entity string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s %w", entity, domain.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", entity, domain.ErrConflict, err)
	case isTransient(err):
		return fmt.Errorf("%s: %w: %w", entity, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", entity, err)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "sqlstate 23505")
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"too many connections",
		"database is locked",
		"sqlstate 40001", // serialization failure
		"sqlstate 40p01", // deadlock detected
		"sqlstate 57p03", // cannot connect now
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
