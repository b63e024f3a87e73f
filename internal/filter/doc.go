// Package filter parses and evaluates the search filters used to select
// entries when iterating the entry store.
//
// Filters use the usual parenthesized string form:
//
//	f, err := filter.Parse("(&(objectClass=person)(uid=alice))")
//	if err != nil {
//	    return err
//	}
//	if filter.Evaluate(f, entry) {
//	    // entry matches
//	}
//
// Matching is case-insensitive for attribute names and values. Substring
// components are matched in order; >= and <= compare lexicographically.
//
// # Index Candidates
//
// Candidates turns a filter into a roaring bitmap of entry IDs using the
// configured attribute indexes. The bitmap is a superset of the matches and
// is nil when no index applies, in which case the caller scans every entry:
//
//	bm, err := filter.Candidates(txn, set, f)
//	if bm == nil {
//	    // full scan
//	}
package filter
