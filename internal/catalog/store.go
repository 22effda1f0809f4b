// Copyright (c) 2026 Costar. All rights reserved.

package catalog

import "context"

// # Catalog Data Access

// Repository defines the read-only data access contract for the catalog.
type Repository interface {

	/*
		GetWork retrieves one work's aggregation attributes.

		Parameters:
		  - context: context.Context
		  - workID: int64

		Returns:
		  - *Work: Hydrated entity
		  - error: ErrNotFound if the work does not exist
	*/
	GetWork(context context.Context, workID int64) (*Work, error)

	/*
		ListCredits returns every credit attached to a work.

		Parameters:
		  - context: context.Context
		  - workID: int64

		Returns:
		  - []Credit: All credits for the work, in a fixed order
		  - error: Database retrieval failures
	*/
	ListCredits(context context.Context, workID int64) ([]Credit, error)

	/*
		ListWorkIDs returns the identifiers of every work in the catalog.
		Used by the full graph rebuild to iterate the corpus.

		Parameters:
		  - context: context.Context

		Returns:
		  - []int64: All work IDs in ascending order
		  - error: Database retrieval failures
	*/
	ListWorkIDs(context context.Context) ([]int64, error)

	/*
		PersonExists reports whether a person is present in the catalog.
		Path queries use this to distinguish "unknown person" from
		"known person with no connecting path".

		Parameters:
		  - context: context.Context
		  - personID: int64

		Returns:
		  - bool: true if the person exists
		  - error: Database retrieval failures
	*/
	PersonExists(context context.Context, personID int64) (bool, error)
}
