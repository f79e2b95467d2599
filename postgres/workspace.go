package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/lineage"
)

// SaveWorkspace persists a workspace (metadata + node records + edges) in
// one transaction with replace semantics: a prior save of the same
// workspace id is overwritten. Nodes whose content fails to serialize are
// stored with their inline error markers, exactly as the workspace document
// captures them.
func (s *PGStore) SaveWorkspace(ctx context.Context, w *lineage.Workspace) error {
	doc := w.Document()

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("lineage: marshal metadata: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("lineage: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO workspaces (id, name, metadata) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = $2, metadata = $3`,
		doc.ID, doc.Name, metadata,
	); err != nil {
		return fmt.Errorf("lineage: upsert workspace: %w", err)
	}

	// Delete existing graph data if any (replace semantics).
	if _, err := tx.Exec(ctx, `DELETE FROM workspace_edges WHERE workspace_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("lineage: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM workspace_nodes WHERE workspace_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("lineage: delete nodes: %w", err)
	}

	for id, rec := range doc.Nodes {
		record, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("lineage: marshal node %s: %w", id, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO workspace_nodes (id, workspace_id, record) VALUES ($1, $2, $3)`,
			id, doc.ID, record,
		); err != nil {
			return fmt.Errorf("lineage: insert node %s: %w", id, err)
		}
	}

	for _, edge := range doc.Relationships {
		if _, err := tx.Exec(ctx,
			`INSERT INTO workspace_edges (workspace_id, parent_id, child_id) VALUES ($1, $2, $3)`,
			doc.ID, edge.ParentID, edge.ChildID,
		); err != nil {
			return fmt.Errorf("lineage: insert edge %s->%s: %w", edge.ParentID, edge.ChildID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("lineage: commit: %w", err)
	}
	return nil
}

// LoadWorkspace reconstructs a stored workspace by its id.
// Returns nil, nil, nil if it does not exist; the string slice carries
// per-node load warnings for entries that were skipped.
func (s *PGStore) LoadWorkspace(ctx context.Context, id string) (*lineage.Workspace, []string, error) {
	doc := lineage.WorkspaceDocument{
		ID:    id,
		Nodes: make(map[string]lineage.NodeRecord),
	}

	var metadata json.RawMessage
	err := s.db.QueryRow(ctx,
		`SELECT name, metadata FROM workspaces WHERE id = $1`, id,
	).Scan(&doc.Name, &metadata)
	if err != nil {
		if isNoRows(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("lineage: get workspace: %w", err)
	}
	if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
		return nil, nil, fmt.Errorf("lineage: unmarshal metadata: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, record FROM workspace_nodes WHERE workspace_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("lineage: query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var nodeID string
		var record json.RawMessage
		if err := rows.Scan(&nodeID, &record); err != nil {
			return nil, nil, fmt.Errorf("lineage: scan node: %w", err)
		}
		var rec lineage.NodeRecord
		if err := json.Unmarshal(record, &rec); err != nil {
			return nil, nil, fmt.Errorf("lineage: unmarshal node %s: %w", nodeID, err)
		}
		doc.Nodes[nodeID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("lineage: rows nodes: %w", err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT parent_id, child_id FROM workspace_edges WHERE workspace_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("lineage: query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var edge lineage.Edge
		if err := rows.Scan(&edge.ParentID, &edge.ChildID); err != nil {
			return nil, nil, fmt.Errorf("lineage: scan edge: %w", err)
		}
		doc.Relationships = append(doc.Relationships, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("lineage: rows edges: %w", err)
	}

	w, warnings := lineage.FromDocument(doc)
	return w, warnings, nil
}

// DeleteWorkspace removes a stored workspace and, by cascade, its nodes and
// edges. No error if the id doesn't exist.
func (s *PGStore) DeleteWorkspace(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("lineage: delete workspace: %w", err)
	}
	return nil
}

// ListWorkspaces returns all stored workspaces with their node counts,
// ordered by creation time. Returns an empty slice (not nil) if none exist.
func (s *PGStore) ListWorkspaces(ctx context.Context) ([]lineage.WorkspaceRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT w.id, w.name, w.created_at, COUNT(n.id)
		FROM workspaces w
		LEFT JOIN workspace_nodes n ON n.workspace_id = w.id
		GROUP BY w.id, w.name, w.created_at
		ORDER BY w.created_at`)
	if err != nil {
		return nil, fmt.Errorf("lineage: list workspaces: %w", err)
	}
	defer rows.Close()

	records := []lineage.WorkspaceRecord{}
	for rows.Next() {
		var rec lineage.WorkspaceRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &rec.NodeCount); err != nil {
			return nil, fmt.Errorf("lineage: scan workspace: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lineage: rows workspaces: %w", err)
	}

	return records, nil
}
