package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/gatehouse/pkg/claims"
	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// UserStore reads the users claims are generated for.
type UserStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewUserStore creates a user store; metrics may be nil.
func NewUserStore(db *sql.DB, metrics *observability.Metrics) *UserStore {
	return &UserStore{db: db, metrics: metrics}
}

// ErrUserNotFound is returned when no user matches.
var ErrUserNotFound = fmt.Errorf("user not found")

// GetUser loads one user by id.
func (s *UserStore) GetUser(ctx context.Context, userID string) (*claims.User, error) {
	query := `
		SELECT id, is_super_user
		FROM users
		WHERE id = $1
	`
	var user claims.User
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&user.ID, &user.IsSuperUser)
	if err == sql.ErrNoRows {
		s.count("ok")
		return nil, ErrUserNotFound
	} else if err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	s.count("ok")
	return &user, nil
}

func (s *UserStore) count(status string) {
	if s.metrics != nil {
		s.metrics.DBQueriesTotal.WithLabelValues("users", status).Inc()
	}
}
