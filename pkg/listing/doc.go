// Package listing caches paginated, filtered entity listings.
//
// Listing keys are built positionally from entity, page, limit and filters so
// that the same request always maps to the same cache entry:
//
//	q := listing.NewQuery("clients", page, limit, 7).WithFilter(0, status)
//	result, err := listing.List(ctx, store, q, repo.ListClients)
//
// Write handlers call Invalidator.AfterMutation once the database commit
// succeeded, which removes every cached page of the entity:
//
//	if _, err := inv.AfterMutation(ctx, "clients"); err != nil {
//		// already logged; the response is not affected
//	}
package listing
