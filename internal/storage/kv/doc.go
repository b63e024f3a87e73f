// Package kv adapts go.etcd.io/bbolt to the capability surface the directory
// backend needs from its transactional key-value engine.
//
// # Overview
//
// The engine is treated as given. This package only exposes:
//
//   - environments holding named, ordered trees (bbolt buckets)
//   - read-only and read-write transactions with atomic commit/abort
//   - cursors over plain trees
//   - duplicate-aware ("dupsort") trees: one key maps to an ordered set of
//     values, with append, point delete and count operations
//
// # Duplicate Trees
//
// A dup tree stores each key as a nested bucket whose keys are the duplicate
// values. Values are ordered bytewise, so fixed-width big-endian IDs sort
// numerically:
//
//	tx.AppendDups("idx.cn", key, [][]byte{id1, id2, id3}) // ascending only
//	n, err := tx.CountDups("idx.cn", key)
//
// AppendDups requires every value to sort after the key's current last value.
// A smaller value is a contract violation reported as ErrNotAscending.
//
// # Transactions
//
// Only one read-write transaction can be open at a time. Txn methods are
// serialized by a per-transaction mutex, which lets several goroutines read
// one write transaction. Commit and Abort close every cursor opened on the
// transaction first; no cursor survives a commit boundary.
//
// Options.MaxTxnWrites bounds the number of mutations one transaction may
// carry, standing in for the engine's dirty page budget. Exceeding it fails
// with ErrTxnFull.
package kv
