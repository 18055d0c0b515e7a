package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/crucial707/tools-sys/internal/db"
	"github.com/crucial707/tools-sys/internal/models"
)

// ========================
// REPOSITORY STRUCT
// ========================

type ToolRepo struct {
	DB *db.DB
}

func NewToolRepo(database *db.DB) *ToolRepo {
	return &ToolRepo{DB: database}
}

const toolColumns = `id, name, description, version, route, icon, created_at, updated_at`

// ========================
// CREATE TOOL
// ========================

func (r *ToolRepo) Create(ctx context.Context, in models.ToolInput) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, r.DB.Rebind(
		`INSERT INTO tools (name, description, version, route, icon)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`),
		in.Name, in.Description, in.Version, in.Route, in.Icon,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert tool: %w", err)
	}
	return id, nil
}

// ========================
// GET TOOL BY ID
// ========================

func (r *ToolRepo) Get(ctx context.Context, id int64) (models.Tool, error) {
	row := r.DB.QueryRowContext(ctx, r.DB.Rebind(
		`SELECT `+toolColumns+`
		 FROM tools
		 WHERE id = ?`),
		id,
	)

	var t models.Tool
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Version, &t.Route, &t.Icon, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Tool{}, ErrNotFound
	}
	if err != nil {
		return models.Tool{}, fmt.Errorf("query tool: %w", err)
	}
	return t, nil
}

// ========================
// UPDATE TOOL BY ID
// ========================

// Update overwrites every writable column and bumps updated_at.
func (r *ToolRepo) Update(ctx context.Context, id int64, in models.ToolInput) error {
	result, err := r.DB.ExecContext(ctx, r.DB.Rebind(
		`UPDATE tools
		 SET name = ?, description = ?, version = ?, route = ?, icon = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`),
		in.Name, in.Description, in.Version, in.Route, in.Icon, id,
	)
	if err != nil {
		return fmt.Errorf("update tool: %w", err)
	}
	return expectOneRow(result)
}

// ========================
// DELETE TOOL BY ID
// ========================

func (r *ToolRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM tools WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete tool: %w", err)
	}
	return expectOneRow(result)
}

// ========================
// LIST ALL TOOLS
// ========================

// List returns every tool, newest first.
func (r *ToolRepo) List(ctx context.Context) ([]models.Tool, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+toolColumns+" FROM tools ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	return scanTools(rows)
}

// ========================
// SEARCH TOOLS
// ========================

// likeEscaper escapes the LIKE wildcards so user input only matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches query case-insensitively against name and description.
// % and _ in query are matched literally.
func (r *ToolRepo) Search(ctx context.Context, query string) ([]models.Tool, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(`
        SELECT `+toolColumns+`
        FROM tools
        WHERE LOWER(name) LIKE LOWER(?) ESCAPE '\'
           OR LOWER(COALESCE(description, '')) LIKE LOWER(?) ESCAPE '\'
        ORDER BY created_at DESC, id DESC
    `), pattern, pattern)
	if err != nil {
		return nil, err
	}
	return scanTools(rows)
}

func scanTools(rows *sql.Rows) ([]models.Tool, error) {
	defer rows.Close()

	tools := []models.Tool{}
	for rows.Next() {
		var t models.Tool
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Version, &t.Route, &t.Icon, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
