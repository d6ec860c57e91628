// Package binstore keeps the content of Binary property values out of band,
// one row per (node, property, value index).
//
// All functions take a DBTX so they run inside the caller's transaction.
package binstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBTX is the subset of *sql.DB and *sql.Tx used here.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Replace discards every stored value of (nodeID, property) and stores
// values with their indices. An empty values slice only discards.
func Replace(ctx context.Context, db DBTX, workspaceID, nodeID int64, property string, values [][]byte) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM binary_data WHERE node_id = ? AND property_name = ?
	`, nodeID, property)
	if err != nil {
		return fmt.Errorf("replace binary %s: delete: %w", property, err)
	}

	for idx, data := range values {
		if data == nil {
			data = []byte{}
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO binary_data (node_id, property_name, workspace_id, idx, data)
			VALUES (?, ?, ?, ?, ?)
		`, nodeID, property, workspaceID, idx, data)
		if err != nil {
			return fmt.Errorf("replace binary %s: insert index %d: %w", property, idx, err)
		}
	}
	return nil
}

// Fetch returns the stored values of (nodeID, property) in index order.
// Returns an empty slice (not nil) when nothing is stored.
func Fetch(ctx context.Context, db DBTX, nodeID int64, property string) ([][]byte, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT data FROM binary_data
		WHERE node_id = ? AND property_name = ?
		ORDER BY idx ASC
	`, nodeID, property)
	if err != nil {
		return nil, fmt.Errorf("fetch binary %s: %w", property, err)
	}
	defer rows.Close()

	values := make([][]byte, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("fetch binary %s: scan: %w", property, err)
		}
		if data == nil {
			data = []byte{}
		}
		values = append(values, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch binary %s: %w", property, err)
	}
	return values, nil
}

// CopyNode duplicates every binary row of fromNodeID onto toNodeID in the
// given workspace.
func CopyNode(ctx context.Context, db DBTX, workspaceID, fromNodeID, toNodeID int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO binary_data (node_id, property_name, workspace_id, idx, data)
		SELECT ?, property_name, ?, idx, data
		FROM binary_data
		WHERE node_id = ?
	`, toNodeID, workspaceID, fromNodeID)
	if err != nil {
		return fmt.Errorf("copy binaries of node %d: %w", fromNodeID, err)
	}
	return nil
}

// Retain discards the stored values of every property of nodeID that is not
// named in properties.
func Retain(ctx context.Context, db DBTX, nodeID int64, properties []string) error {
	query := `DELETE FROM binary_data WHERE node_id = ?`
	args := []any{nodeID}
	if len(properties) > 0 {
		query += ` AND property_name NOT IN (?` + strings.Repeat(", ?", len(properties)-1) + `)`
		for _, name := range properties {
			args = append(args, name)
		}
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("retain binaries of node %d: %w", nodeID, err)
	}
	return nil
}
