package notification

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// Resolver maps a set of bases to their member users. It is read-only;
// each call recomputes membership fresh so the composer can treat the
// result as the authoritative snapshot for that compose.
type Resolver struct {
	db *sql.DB
}

func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve returns the users belonging to any of the given bases. An empty
// base set resolves to an empty result without touching the database; there
// is no implicit "all users" fallback.
func (r *Resolver) Resolve(ctx context.Context, baseIDs []string) ([]User, error) {
	if len(baseIDs) == 0 {
		return []User{}, nil
	}

	query := `
		SELECT id, name, COALESCE(email, ''), base_id
		FROM users
		WHERE base_id = ANY($1)
		ORDER BY name, id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(baseIDs))
	if err != nil {
		return nil, &ResolutionError{Err: err}
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.BaseID); err != nil {
			return nil, &ResolutionError{Err: err}
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, &ResolutionError{Err: err}
	}
	return users, nil
}

// Bases lists the organizational units available for targeting, ordered
// by name for display.
func (r *Resolver) Bases(ctx context.Context) ([]Base, error) {
	query := `SELECT id, name FROM bases ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &ResolutionError{Err: err}
	}
	defer rows.Close()

	bases := []Base{}
	for rows.Next() {
		var b Base
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, &ResolutionError{Err: err}
		}
		bases = append(bases, b)
	}
	if err := rows.Err(); err != nil {
		return nil, &ResolutionError{Err: err}
	}
	return bases, nil
}
