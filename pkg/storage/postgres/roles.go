package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// RoleStore reads global role grants.
type RoleStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewRoleStore creates a role store; metrics may be nil.
func NewRoleStore(db *sql.DB, metrics *observability.Metrics) *RoleStore {
	return &RoleStore{db: db, metrics: metrics}
}

// UserRoleWebservices lists the webservice ids reachable through any of the
// user's global roles.
func (s *RoleStore) UserRoleWebservices(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT DISTINCT rw.webservice_id
		FROM user_roles ur
		JOIN role_webservices rw ON rw.role_id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY rw.webservice_id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list role webservices: %w", err)
	}
	defer rows.Close()

	var wsIDs []string
	for rows.Next() {
		var wsID string
		if err := rows.Scan(&wsID); err != nil {
			s.count("error")
			return nil, fmt.Errorf("failed to scan role webservice: %w", err)
		}
		wsIDs = append(wsIDs, wsID)
	}
	if err := rows.Err(); err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list role webservices: %w", err)
	}

	s.count("ok")
	return wsIDs, nil
}

// UserHasRoleWebservice reports whether any of the user's global roles
// grants the webservice.
func (s *RoleStore) UserHasRoleWebservice(ctx context.Context, userID, webserviceID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN role_webservices rw ON rw.role_id = ur.role_id
			WHERE ur.user_id = $1 AND rw.webservice_id = $2
		)
	`
	var has bool
	if err := s.db.QueryRowContext(ctx, query, userID, webserviceID).Scan(&has); err != nil {
		s.count("error")
		return false, fmt.Errorf("failed to check role webservice: %w", err)
	}
	s.count("ok")
	return has, nil
}

func (s *RoleStore) count(status string) {
	if s.metrics != nil {
		s.metrics.DBQueriesTotal.WithLabelValues("roles", status).Inc()
	}
}
