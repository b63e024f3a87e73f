// Package storage defines the directory entry model shared by the obakv
// storage layers: entry identifiers, entries and their attributes, search
// scopes and the error values every layer reports.
//
// # Identifiers
//
// Every entry is identified by a positive ID. ID 0 is the implicit root of
// the DN tree and NOID marks an invalid or unallocated identifier:
//
//	id, err := tool.Put(entry)
//	if err != nil {
//	    return err
//	}
//
// IDs are stored big-endian so the key order of every tree keyed by ID
// matches numeric order (see EncodeID).
//
// # Entries
//
// Attributes keep their insertion order and the order of their values.
// Attribute type lookups are case-insensitive:
//
//	e := storage.NewEntry("uid=alice,ou=users,dc=example,dc=com")
//	e.AddAttributeValue("objectClass", []byte("person"))
//	e.SetStringAttribute("cn", "Alice Smith")
//
// # Errors
//
// Lookup misses are reported as ErrNoSuchObject. Structural conflicts
// (ErrHasChildren, ErrAlreadyExists, ErrEntriesMissing) fail the current
// operation only. Engine failures are reported by the kv package and abort
// the whole bulk transaction.
package storage
