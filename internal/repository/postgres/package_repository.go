package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trainhub/trainhub-server/internal/model"
)

var _ model.PackageStore = (*PackageRepository)(nil)

type PackageRepository struct {
	db *Connection
}

func NewPackageRepository(db *Connection) *PackageRepository {
	return &PackageRepository{
		db: db,
	}
}

func (r *PackageRepository) Create(ctx context.Context, pkg model.Package) (model.Package, error) {
	query := `INSERT INTO packages (id, client_id, sessions_included, sessions_used, status, purchase_date, transaction_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id, client_id, sessions_included, sessions_used, status, purchase_date, transaction_id, created_at, updated_at`

	var saved model.Package
	err := r.db.QueryRow(ctx, query,
		pkg.ID, pkg.ClientID, pkg.SessionsIncluded, pkg.SessionsUsed,
		string(pkg.Status), pkg.PurchaseDate, pkg.TransactionID,
	).Scan(
		&saved.ID, &saved.ClientID, &saved.SessionsIncluded, &saved.SessionsUsed,
		&saved.Status, &saved.PurchaseDate, &saved.TransactionID,
		&saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return model.Package{}, fmt.Errorf("failed to create package: %w", err)
	}

	return saved, nil
}

func (r *PackageRepository) GetByClientID(ctx context.Context, clientID uuid.UUID) ([]model.Package, error) {
	query := `SELECT id, client_id, sessions_included, sessions_used, status, purchase_date, transaction_id, created_at, updated_at
			  FROM packages
			  WHERE client_id = $1
			  ORDER BY purchase_date DESC, created_at DESC`

	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get packages by client id: %w", err)
	}
	defer rows.Close()

	var packages []model.Package
	for rows.Next() {
		var pkg model.Package
		err := rows.Scan(
			&pkg.ID, &pkg.ClientID, &pkg.SessionsIncluded, &pkg.SessionsUsed,
			&pkg.Status, &pkg.PurchaseDate, &pkg.TransactionID,
			&pkg.CreatedAt, &pkg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return packages, nil
}

// UpdateCounts is the serialization point for concurrent consume/refund against
// the same package. The WHERE clause compares the stored counters against the
// values the caller read; a concurrent writer makes RowsAffected zero and the
// caller retries its select-then-update cycle.
func (r *PackageRepository) UpdateCounts(ctx context.Context, id uuid.UUID, expectedUsed, expectedIncluded, newUsed, newIncluded int, status model.PackageStatus) error {
	query := `UPDATE packages
			  SET sessions_used = $4, sessions_included = $5, status = $6, updated_at = NOW()
			  WHERE id = $1 AND sessions_used = $2 AND sessions_included = $3`

	cmd, err := r.db.Exec(ctx, query, id, expectedUsed, expectedIncluded, newUsed, newIncluded, string(status))
	if err != nil {
		return fmt.Errorf("failed to update package counts: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.getByID(ctx, id); errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		return model.ErrConflict
	}

	return nil
}

func (r *PackageRepository) getByID(ctx context.Context, id uuid.UUID) (model.Package, error) {
	query := `SELECT id, client_id, sessions_included, sessions_used, status, purchase_date, transaction_id, created_at, updated_at
			  FROM packages WHERE id = $1`

	var pkg model.Package
	err := r.db.QueryRow(ctx, query, id).Scan(
		&pkg.ID, &pkg.ClientID, &pkg.SessionsIncluded, &pkg.SessionsUsed,
		&pkg.Status, &pkg.PurchaseDate, &pkg.TransactionID,
		&pkg.CreatedAt, &pkg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Package{}, model.ErrNotFound
		}
		return model.Package{}, fmt.Errorf("failed to get package by id: %w", err)
	}

	return pkg, nil
}
