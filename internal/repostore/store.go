package repostore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"
)

// entryPayload is the JSON-encoded body of a cache entry. Denormalized
// columns (validity, error, timestamp) live outside the payload so the
// staleness and health queries never have to decode it.
type entryPayload struct {
	Commits      []schema.CommitRecord       `json:"commits"`
	Branches     []schema.BranchRecord       `json:"branches"`
	Remotes      map[string]string           `json:"remotes"`
	Contributors []schema.ContributorSummary `json:"contributors"`
	Summary      schema.ActivitySummary      `json:"summary"`
	State        *schema.RepoState           `json:"state,omitempty"`
}

// GetEntry returns the cache entry for a mapping, or ErrEntryNotFound.
// Entries written with an older payload schema version are treated as absent.
func (s *SQLStore) GetEntry(ctx context.Context, mappingID string) (*schema.CacheEntry, error) {
	if s.disabled() {
		return nil, contract.ErrEntryNotFound
	}

	query := s.rebind(fmt.Sprintf(`
		SELECT project_id, local_path, payload, schema_version, is_valid, scan_error, last_updated_at
		FROM %s WHERE mapping_id = ?`, entriesTable))
	row := s.db.QueryRowContext(ctx, query, mappingID)

	var projectID, localPath, payload, scanError string
	var version, isValid int
	var updatedAt sql.NullInt64
	if err := row.Scan(&projectID, &localPath, &payload, &version, &isValid, &scanError, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contract.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to read cache entry %s: %w", mappingID, err)
	}
	if version != currentSchemaVersion {
		return nil, contract.ErrEntryNotFound
	}

	var body entryPayload
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry %s: %w", mappingID, err)
	}

	entry := &schema.CacheEntry{
		MappingID:         mappingID,
		ProjectID:         projectID,
		LocalPath:         localPath,
		Commits:           body.Commits,
		Branches:          body.Branches,
		Remotes:           body.Remotes,
		Contributors:      body.Contributors,
		Summary:           body.Summary,
		State:             body.State,
		IsValidRepository: isValid != 0,
		ScanError:         scanError,
	}
	if updatedAt.Valid {
		entry.LastUpdatedAt = time.Unix(updatedAt.Int64, 0).UTC()
	}
	return entry, nil
}

// UpsertEntry inserts or replaces a mapping's cache entry. The write wins
// only if the incoming LastUpdatedAt is not older than the stored one, so a
// slow stale scan cannot clobber a fresher result.
func (s *SQLStore) UpsertEntry(ctx context.Context, entry *schema.CacheEntry) error {
	if s.disabled() {
		return nil
	}

	payload, err := json.Marshal(entryPayload{
		Commits:      entry.Commits,
		Branches:     entry.Branches,
		Remotes:      entry.Remotes,
		Contributors: entry.Contributors,
		Summary:      entry.Summary,
		State:        entry.State,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", entry.MappingID, err)
	}

	isValid := 0
	if entry.IsValidRepository {
		isValid = 1
	}
	var updatedAt any
	if !entry.LastUpdatedAt.IsZero() {
		updatedAt = entry.LastUpdatedAt.UTC().Unix()
	}

	query := s.upsertEntryQuery()
	_, err = s.db.ExecContext(ctx, query,
		entry.MappingID, entry.ProjectID, entry.LocalPath, string(payload),
		currentSchemaVersion, isValid, entry.ScanError, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to persist cache entry %s: %w", entry.MappingID, err)
	}
	return nil
}

// upsertEntryQuery returns the newer-wins UPSERT for the backend.
func (s *SQLStore) upsertEntryQuery() string {
	switch s.backend {
	case schema.MySQLBackend:
		// Assignment order matters: last_updated_at must be set last so the
		// IF conditions on the other columns still see the stored value.
		cond := "(last_updated_at IS NULL OR new.last_updated_at >= last_updated_at)"
		return fmt.Sprintf(`INSERT INTO %s
			(mapping_id, project_id, local_path, payload, schema_version, is_valid, scan_error, last_updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE
				project_id = IF(%s, new.project_id, project_id),
				local_path = IF(%s, new.local_path, local_path),
				payload = IF(%s, new.payload, payload),
				schema_version = IF(%s, new.schema_version, schema_version),
				is_valid = IF(%s, new.is_valid, is_valid),
				scan_error = IF(%s, new.scan_error, scan_error),
				last_updated_at = IF(%s, new.last_updated_at, last_updated_at)`,
			entriesTable, cond, cond, cond, cond, cond, cond, cond)

	default: // SQLite and PostgreSQL share the ON CONFLICT syntax
		return s.rebind(fmt.Sprintf(`INSERT INTO %s
			(mapping_id, project_id, local_path, payload, schema_version, is_valid, scan_error, last_updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (mapping_id) DO UPDATE SET
				project_id = excluded.project_id,
				local_path = excluded.local_path,
				payload = excluded.payload,
				schema_version = excluded.schema_version,
				is_valid = excluded.is_valid,
				scan_error = excluded.scan_error,
				last_updated_at = excluded.last_updated_at
			WHERE %s.last_updated_at IS NULL
				OR excluded.last_updated_at >= %s.last_updated_at`,
			entriesTable, entriesTable, entriesTable))
	}
}

// RecordScanFailure updates a mapping's entry after a failed scan,
// preserving any previously scanned commit data. Only the error text,
// validity flag, optional probed state and timestamp change.
func (s *SQLStore) RecordScanFailure(ctx context.Context, mapping schema.RepositoryMapping, scanErr string, valid bool, state *schema.RepoState, at time.Time) error {
	if s.disabled() {
		return nil
	}

	entry, err := s.GetEntry(ctx, mapping.ID)
	if errors.Is(err, contract.ErrEntryNotFound) {
		entry = &schema.CacheEntry{
			MappingID: mapping.ID,
			ProjectID: mapping.ProjectID,
			LocalPath: mapping.LocalPath,
		}
	} else if err != nil {
		return err
	}

	entry.ScanError = scanErr
	entry.IsValidRepository = valid
	entry.LastUpdatedAt = at
	if state != nil {
		entry.State = state
	}
	return s.UpsertEntry(ctx, entry)
}

// ListOlderThan returns refs for mappings whose cache entry is missing,
// never completed, or older than the threshold, oldest first. Mappings with
// no entry at all sort before everything else.
func (s *SQLStore) ListOlderThan(ctx context.Context, threshold time.Duration) ([]schema.StaleEntryRef, error) {
	if s.disabled() {
		return nil, nil
	}

	cutoff := time.Now().Add(-threshold).UTC().Unix()
	query := s.rebind(fmt.Sprintf(`
		SELECT m.id, m.local_path, m.project_id, e.last_updated_at
		FROM %s m
		LEFT JOIN %s e ON e.mapping_id = m.id
		WHERE e.last_updated_at IS NULL OR e.last_updated_at < ?
		ORDER BY COALESCE(e.last_updated_at, 0) ASC`, mappingsTable, entriesTable))

	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("staleness query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []schema.StaleEntryRef
	for rows.Next() {
		var ref schema.StaleEntryRef
		var updatedAt sql.NullInt64
		if err := rows.Scan(&ref.MappingID, &ref.LocalPath, &ref.ProjectID, &updatedAt); err != nil {
			return nil, fmt.Errorf("staleness query scan failed: %w", err)
		}
		if updatedAt.Valid {
			ts := time.Unix(updatedAt.Int64, 0).UTC()
			ref.LastUpdatedAt = &ts
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ListByProject returns all cache entries for a project's mappings.
func (s *SQLStore) ListByProject(ctx context.Context, projectID string) ([]*schema.CacheEntry, error) {
	if s.disabled() {
		return nil, nil
	}

	query := s.rebind(fmt.Sprintf(`
		SELECT mapping_id FROM %s WHERE project_id = ? ORDER BY mapping_id`, entriesTable))
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for project %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries := make([]*schema.CacheEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := s.GetEntry(ctx, id)
		if errors.Is(err, contract.ErrEntryNotFound) {
			continue // written with an older schema version
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ProjectHealth summarizes the cache state of one project's mappings. The
// classification happens in Go to stay portable across backends: errored
// beats stale, stale beats healthy.
func (s *SQLStore) ProjectHealth(ctx context.Context, projectID string, staleThreshold time.Duration) (schema.ProjectCacheHealth, error) {
	health := schema.ProjectCacheHealth{ProjectID: projectID}
	if s.disabled() {
		return health, nil
	}

	query := s.rebind(fmt.Sprintf(`
		SELECT e.is_valid, e.scan_error, e.last_updated_at
		FROM %s m
		LEFT JOIN %s e ON e.mapping_id = m.id
		WHERE m.project_id = ?`, mappingsTable, entriesTable))
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return health, fmt.Errorf("health query failed for project %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	now := time.Now().UTC()
	cutoff := now.Add(-staleThreshold)
	var ageSum time.Duration
	var aged int

	for rows.Next() {
		var isValid sql.NullInt64
		var scanError sql.NullString
		var updatedAt sql.NullInt64
		if err := rows.Scan(&isValid, &scanError, &updatedAt); err != nil {
			return health, err
		}
		health.TotalRepositories++

		var updated time.Time
		if updatedAt.Valid {
			updated = time.Unix(updatedAt.Int64, 0).UTC()
			ageSum += now.Sub(updated)
			aged++
			if health.OldestCacheTime.IsZero() || updated.Before(health.OldestCacheTime) {
				health.OldestCacheTime = updated
			}
			if updated.After(health.NewestCacheTime) {
				health.NewestCacheTime = updated
			}
		}

		switch {
		case isValid.Valid && (isValid.Int64 == 0 || scanError.String != ""):
			health.ErroredRepositories++
		case updated.IsZero() || updated.Before(cutoff):
			health.StaleRepositories++
		default:
			health.HealthyRepositories++
		}
	}
	if err := rows.Err(); err != nil {
		return health, err
	}

	if aged > 0 {
		health.AverageCacheAge = ageSum / time.Duration(aged)
	}
	return health, nil
}

// Status returns connection and volume information for the store.
func (s *SQLStore) Status(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:   string(s.backend),
		Connected: s.db != nil,
	}
	if s.disabled() {
		return status, nil
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", mappingsTable))
	if err := row.Scan(&status.TotalMappings); err != nil {
		return status, fmt.Errorf("failed to count mappings: %w", err)
	}

	row = s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", entriesTable))
	if err := row.Scan(&status.TotalEntries); err != nil {
		return status, fmt.Errorf("failed to count cache entries: %w", err)
	}

	if status.TotalEntries > 0 {
		var newest, oldest sql.NullInt64
		row = s.db.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT MAX(last_updated_at), MIN(last_updated_at) FROM %s", entriesTable))
		if err := row.Scan(&newest, &oldest); err != nil {
			return status, fmt.Errorf("failed to read entry timestamps: %w", err)
		}
		if newest.Valid {
			status.LastEntryTime = time.Unix(newest.Int64, 0).UTC()
		}
		if oldest.Valid {
			status.OldestEntryTime = time.Unix(oldest.Int64, 0).UTC()
		}
	}

	// Table size is best effort; only SQLite exposes it cheaply.
	if s.backend == schema.SQLiteBackend {
		row = s.db.QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&status.TableSizeBytes); err != nil {
			status.TableSizeBytes = 0
		}
	}

	return status, nil
}
