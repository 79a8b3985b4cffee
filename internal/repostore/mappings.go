package repostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"
)

// AddMapping registers a project-to-path mapping. Re-adding an existing
// mapping ID updates its project and path but keeps the original creation
// time, so a path correction does not look like a brand new repository.
func (s *SQLStore) AddMapping(ctx context.Context, mapping schema.RepositoryMapping) error {
	if s.disabled() {
		return nil
	}
	if mapping.ID == "" || mapping.LocalPath == "" {
		return errors.New("mapping requires an id and a local path")
	}

	createdAt := mapping.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var query string
	switch s.backend {
	case schema.MySQLBackend:
		query = fmt.Sprintf(`INSERT INTO %s (id, project_id, local_path, user_id, created_at)
			VALUES (?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE
				project_id = new.project_id,
				local_path = new.local_path,
				user_id = new.user_id`, mappingsTable)
	default:
		query = s.rebind(fmt.Sprintf(`INSERT INTO %s (id, project_id, local_path, user_id, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				project_id = excluded.project_id,
				local_path = excluded.local_path,
				user_id = excluded.user_id`, mappingsTable))
	}

	_, err := s.db.ExecContext(ctx, query,
		mapping.ID, mapping.ProjectID, mapping.LocalPath, mapping.UserID, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to add mapping %s: %w", mapping.ID, err)
	}
	return nil
}

// RemoveMapping deletes a mapping and its cache entry. Removing an unknown
// mapping returns ErrMappingNotFound.
func (s *SQLStore) RemoveMapping(ctx context.Context, mappingID string) error {
	if s.disabled() {
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		s.rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ?", mappingsTable)), mappingID)
	if err != nil {
		return fmt.Errorf("failed to remove mapping %s: %w", mappingID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return contract.ErrMappingNotFound
	}

	// The entry is useless without its mapping.
	_, err = s.db.ExecContext(ctx,
		s.rebind(fmt.Sprintf("DELETE FROM %s WHERE mapping_id = ?", entriesTable)), mappingID)
	if err != nil {
		return fmt.Errorf("failed to remove cache entry %s: %w", mappingID, err)
	}
	return nil
}

// ListMappings returns every registered mapping ordered by creation time.
func (s *SQLStore) ListMappings(ctx context.Context) ([]schema.RepositoryMapping, error) {
	if s.disabled() {
		return nil, nil
	}
	return s.queryMappings(ctx, fmt.Sprintf(
		"SELECT id, project_id, local_path, user_id, created_at FROM %s ORDER BY created_at, id", mappingsTable))
}

// ListMappingsByProject returns the mappings belonging to one project.
func (s *SQLStore) ListMappingsByProject(ctx context.Context, projectID string) ([]schema.RepositoryMapping, error) {
	if s.disabled() {
		return nil, nil
	}
	query := s.rebind(fmt.Sprintf(
		"SELECT id, project_id, local_path, user_id, created_at FROM %s WHERE project_id = ? ORDER BY created_at, id", mappingsTable))
	return s.queryMappings(ctx, query, projectID)
}

func (s *SQLStore) queryMappings(ctx context.Context, query string, args ...any) ([]schema.RepositoryMapping, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []schema.RepositoryMapping
	for rows.Next() {
		var m schema.RepositoryMapping
		var createdAt sql.NullInt64
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.LocalPath, &m.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan mapping row: %w", err)
		}
		if createdAt.Valid {
			m.CreatedAt = time.Unix(createdAt.Int64, 0).UTC()
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}
