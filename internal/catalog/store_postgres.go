// Copyright (c) 2026 Costar. All rights reserved.

package catalog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moviegraph/costar/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed catalog store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

/*
GetWork retrieves one work's aggregation attributes.

Parameters:
  - context: context.Context
  - workID: int64

Returns:
  - *Work: Hydrated entity
  - error: ErrNotFound if the work does not exist
*/
func (repository *PostgresRepository) GetWork(context context.Context, workID int64) (*Work, error) {
	const query = `
		SELECT id, releaseyear, rating, revenue, genres
		FROM catalog.work
		WHERE id = $1
	`
	work := &Work{}
	err := repository.db.QueryRow(context, query, workID).Scan(
		&work.ID, &work.ReleaseYear, &work.Rating, &work.Revenue, &work.Genres,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "get_work")
	}
	return work, nil
}

/*
ListCredits returns every credit attached to a work.

Description: The ordering is fixed so repeated reads of the same work hand
the edge builder an identical credit list.

Parameters:
  - context: context.Context
  - workID: int64

Returns:
  - []Credit: All credits for the work
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) ListCredits(context context.Context, workID int64) ([]Credit, error) {
	const query = `
		SELECT workid, personid, rolekind, billingordinal
		FROM catalog.credit
		WHERE workid = $1
		ORDER BY rolekind, billingordinal NULLS LAST, personid
	`
	rows, err := repository.db.Query(context, query, workID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_credits")
	}
	defer rows.Close()

	var credits []Credit
	for rows.Next() {
		credit := Credit{}
		if err := rows.Scan(&credit.WorkID, &credit.PersonID, &credit.RoleKind, &credit.BillingOrdinal); err != nil {
			return nil, dberr.Wrap(err, "scan_credit")
		}
		credits = append(credits, credit)
	}

	return credits, rows.Err()
}

/*
ListWorkIDs returns the identifiers of every work in the catalog.

Parameters:
  - context: context.Context

Returns:
  - []int64: All work IDs in ascending order
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) ListWorkIDs(context context.Context) ([]int64, error) {
	const query = `SELECT id FROM catalog.work ORDER BY id ASC`

	rows, err := repository.db.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_work_ids")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dberr.Wrap(err, "scan_work_id")
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

/*
PersonExists reports whether a person is present in the catalog.

Parameters:
  - context: context.Context
  - personID: int64

Returns:
  - bool: true if the person exists
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) PersonExists(context context.Context, personID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM catalog.person WHERE id = $1)`

	var exists bool
	if err := repository.db.QueryRow(context, query, personID).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "person_exists")
	}
	return exists, nil
}
