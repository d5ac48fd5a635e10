package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/rbac-control-plane/repositories"
)

// SQLSTATE codes surfaced as repository sentinels
const (
	uniqueViolation     pq.ErrorCode = "23505"
	foreignKeyViolation pq.ErrorCode = "23503"
)

// translateError maps constraint violations onto repository sentinels and
// wraps everything else as "failed to <action>".
func translateError(action string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("failed to %s: %w", action, repositories.ErrConflict)
		case foreignKeyViolation:
			return fmt.Errorf("failed to %s: %w", action, repositories.ErrReferential)
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
