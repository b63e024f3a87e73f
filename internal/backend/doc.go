// Package backend implements the offline tool layer of the database: bulk
// loading, reindexing, export and deletion of entries outside a running
// server.
//
// # Overview
//
// A Backend owns the key-value environment and the structures stored in it:
//
//   - id2entry: encoded entries by ID; placeholders have an empty record
//   - dn2id: the DN tree (see package dn2id)
//   - idx.<attribute>: one postings tree per configured index
//   - meta: the ID high-water mark and format flags
//
// Work happens in a Tool session opened with ToolOpen. Only one session can
// be open at a time.
//
//	b, err := backend.Open(cfg.Backend, logger)
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	tool, err := b.ToolOpen(backend.ModeQuick, cfg.Tool)
//	if err != nil {
//	    return err
//	}
//	for _, e := range entries {
//	    if _, err := tool.Put(e); err != nil {
//	        return err
//	    }
//	}
//	return tool.Close()
//
// # Modes
//
// In safe mode every operation commits on its own. ModeQuick groups
// WritesPerCommit operations per transaction and collects index postings in
// an index.Cache that is flushed at commit. With more than one thread the
// indexes are split into shards, shard i%threads being served by worker i;
// shard 0 runs on the calling goroutine.
//
// # Failures
//
// Errors about the request (DN outside the suffix, existing entry, entry
// with children) keep the current batch. Engine errors, including a full
// transaction, abort it: the index cache and the placeholder list return to
// the last commit. Such errors are reported as *ToolError.
//
// Close reports placeholders that never received their entry with an error
// wrapping storage.ErrEntriesMissing.
package backend
