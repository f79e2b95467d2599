package lineage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnsupportedData    = errors.New("lineage: unsupported data kind")
	ErrNoWorkspace        = errors.New("lineage: node requires an owning workspace")
	ErrNodeNotFound       = errors.New("lineage: node not found")
	ErrWorkspaceNotFound  = errors.New("lineage: workspace not found")
	ErrCapabilityNotFound = errors.New("lineage: capability not found")
)

// WorkspaceRecord is a stored-workspace listing entry.
type WorkspaceRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NodeCount int       `json:"node_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the contract for persisting and retrieving workspaces.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Workspaces
	SaveWorkspace(ctx context.Context, w *Workspace) error
	// LoadWorkspace returns nil, nil, nil if the workspace does not exist.
	// The string slice carries per-node load warnings.
	LoadWorkspace(ctx context.Context, id string) (*Workspace, []string, error)
	DeleteWorkspace(ctx context.Context, id string) error
	ListWorkspaces(ctx context.Context) ([]WorkspaceRecord, error)
}
