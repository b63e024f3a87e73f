// Package index maintains the attribute index trees and the deferred index
// cache used by bulk loads.
//
// # Index Types
//
// Three index types can be configured per attribute:
//
//	index.TypeEq   // equality, key "e" + normalized value
//	index.TypePres // presence, key "p"
//	index.TypeSub  // substring, key "s" + trigram of the normalized value
//
// Values are normalized by lowercasing and collapsing whitespace. Keys
// longer than MaxKeyLen are replaced by "h" + sha256 of the key.
//
// # Postings
//
// Every key maps to a set of entry IDs stored as 8-byte big-endian
// duplicates. A key holding more than the range threshold of IDs is promoted
// to a range: the duplicates {0, first, last}. ID 0 is never an entry, so a
// leading zero duplicate marks the range form. A range is never turned back
// into a list.
//
//	bm, err := index.Lookup(txn, storage.IndexTree("cn"), index.EqualityKey([]byte("Alice")))
//
// # Cache
//
// During bulk loads postings are collected per attribute and key in a Cache
// and written with one ordered bulk append per key when the attribute is
// flushed:
//
//	cache := index.NewCache(set, shards, index.DefaultRangeThreshold)
//	err := cache.Add(txn, pos, keys, id)
//	...
//	err = cache.Flush(txn, pos)
//
// Attributes are assigned to shards by position (pos % shards). Each shard
// owns its buckets and blocks, so different shards can be used from
// different goroutines.
package index
