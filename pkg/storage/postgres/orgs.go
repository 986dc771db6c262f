package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// OrgStore reads organization ownership and organization role grants.
type OrgStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewOrgStore creates an organization store; metrics may be nil.
func NewOrgStore(db *sql.DB, metrics *observability.Metrics) *OrgStore {
	return &OrgStore{db: db, metrics: metrics}
}

// OwnedClientIDs lists the clients the user owns.
func (s *OrgStore) OwnedClientIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT id
		FROM clients
		WHERE owner_user_id = $1
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list owned clients: %w", err)
	}
	defer rows.Close()

	var clientIDs []string
	for rows.Next() {
		var clientID string
		if err := rows.Scan(&clientID); err != nil {
			s.count("error")
			return nil, fmt.Errorf("failed to scan owned client: %w", err)
		}
		clientIDs = append(clientIDs, clientID)
	}
	if err := rows.Err(); err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list owned clients: %w", err)
	}

	s.count("ok")
	return clientIDs, nil
}

// ClientRoleWebservices maps client id to the webservices the user's roles
// inside that client grant.
func (s *OrgStore) ClientRoleWebservices(ctx context.Context, userID string) (map[string][]string, error) {
	query := `
		SELECT DISTINCT ogr.org_id, rw.webservice_id
		FROM organization_roles ogr
		JOIN role_webservices rw ON rw.role_id = ogr.role_id
		WHERE ogr.user_id = $1 AND ogr.org_kind = 'client'
		ORDER BY ogr.org_id, rw.webservice_id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list client role webservices: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var clientID, wsID string
		if err := rows.Scan(&clientID, &wsID); err != nil {
			s.count("error")
			return nil, fmt.Errorf("failed to scan client role webservice: %w", err)
		}
		out[clientID] = append(out[clientID], wsID)
	}
	if err := rows.Err(); err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list client role webservices: %w", err)
	}

	s.count("ok")
	return out, nil
}

// UserOrgRolesForWebservice returns the organizations, per kind, where one
// of the user's organization roles grants the webservice.
func (s *OrgStore) UserOrgRolesForWebservice(ctx context.Context, userID, webserviceID string) (access.OrgScope, error) {
	query := `
		SELECT DISTINCT ogr.org_kind, ogr.org_id
		FROM organization_roles ogr
		JOIN role_webservices rw ON rw.role_id = ogr.role_id
		WHERE ogr.user_id = $1 AND rw.webservice_id = $2
		ORDER BY ogr.org_kind, ogr.org_id
	`
	rows, err := s.db.QueryContext(ctx, query, userID, webserviceID)
	if err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list organization roles: %w", err)
	}
	defer rows.Close()

	var scope access.OrgScope
	for rows.Next() {
		var kind, orgID string
		if err := rows.Scan(&kind, &orgID); err != nil {
			s.count("error")
			return nil, fmt.Errorf("failed to scan organization role: %w", err)
		}
		if scope == nil {
			scope = make(access.OrgScope)
		}
		scope[access.OrgKind(kind)] = append(scope[access.OrgKind(kind)], orgID)
	}
	if err := rows.Err(); err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list organization roles: %w", err)
	}

	s.count("ok")
	return scope, nil
}

func (s *OrgStore) count(status string) {
	if s.metrics != nil {
		s.metrics.DBQueriesTotal.WithLabelValues("orgs", status).Inc()
	}
}
