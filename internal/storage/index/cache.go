package index

import (
	"bytes"
	"fmt"
	"slices"
	"sort"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

// IDBlockSize is the number of IDs per cache block.
const IDBlockSize = 1024

// block is a fixed-size chunk of pending IDs.
type block struct {
	ids  [IDBlockSize]storage.ID
	n    int
	next *block
}

// bucket accumulates the pending postings of one key.
type bucket struct {
	key []byte
	p   postings
	// count includes the IDs already stored for the key.
	count    int
	wasFound bool
	wasRange bool
	// diskFirst and diskLast bound the stored IDs when wasFound is set.
	diskFirst storage.ID
	diskLast  storage.ID
}

// postings is the pending representation of a bucket: a list of blocks or
// a range.
type postings interface {
	// add records id and returns the representation to keep.
	add(b *bucket, id storage.ID, p *pool, threshold int) postings
	// flush writes the bucket to tree.
	flush(s Store, tree string, b *bucket) error
	// release returns owned blocks to the pool.
	release(p *pool)
}

// inlinePostings is a list of pending IDs.
type inlinePostings struct {
	head, tail *block
	last       storage.ID
	n          int
	sorted     bool
}

func (l *inlinePostings) add(b *bucket, id storage.ID, p *pool, threshold int) postings {
	if l.n > 0 && id == l.last {
		return l
	}

	if b.count >= threshold {
		first, last := l.bounds()
		if b.wasFound {
			first, last = min(first, b.diskFirst), max(last, b.diskLast)
		}
		l.release(p)
		b.count++
		return &rangePostings{first: min(first, id), last: max(last, id)}
	}

	if l.n > 0 && id < l.last {
		l.sorted = false
	}

	if l.tail == nil || l.tail.n == IDBlockSize {
		blk := p.getBlock()
		if l.tail == nil {
			l.head = blk
		} else {
			l.tail.next = blk
		}
		l.tail = blk
	}
	l.tail.ids[l.tail.n] = id
	l.tail.n++
	l.n++
	l.last = id
	b.count++
	return l
}

// bounds returns the smallest and largest pending ID. With nothing pending
// it returns NOID and 0 so min and max ignore it.
func (l *inlinePostings) bounds() (storage.ID, storage.ID) {
	first, last := storage.NOID, storage.ID(0)
	for blk := l.head; blk != nil; blk = blk.next {
		for _, id := range blk.ids[:blk.n] {
			first = min(first, id)
			last = max(last, id)
		}
	}
	return first, last
}

// ids returns the pending IDs ascending and without repeats.
func (l *inlinePostings) ids() []storage.ID {
	out := make([]storage.ID, 0, l.n)
	for blk := l.head; blk != nil; blk = blk.next {
		out = append(out, blk.ids[:blk.n]...)
	}
	if !l.sorted {
		slices.Sort(out)
		out = slices.Compact(out)
	}
	return out
}

func (l *inlinePostings) flush(s Store, tree string, b *bucket) error {
	ids := l.ids()
	if len(ids) == 0 {
		return nil
	}

	// IDs at or below the stored last one cannot be appended.
	split := 0
	if b.wasFound {
		split = sort.Search(len(ids), func(i int) bool { return ids[i] > b.diskLast })
		for _, id := range ids[:split] {
			if err := s.PutDup(tree, b.key, storage.EncodeID(id)); err != nil {
				return err
			}
		}
	}

	tail := ids[split:]
	if len(tail) == 0 {
		return nil
	}
	vals := make([][]byte, len(tail))
	for i, id := range tail {
		vals[i] = storage.EncodeID(id)
	}
	return s.AppendDups(tree, b.key, vals)
}

func (l *inlinePostings) release(p *pool) {
	p.putBlocks(l.head)
	*l = inlinePostings{}
}

// rangePostings is a key in range form.
type rangePostings struct {
	first, last storage.ID
}

func (r *rangePostings) add(b *bucket, id storage.ID, _ *pool, _ int) postings {
	r.first = min(r.first, id)
	r.last = max(r.last, id)
	b.count++
	return r
}

func (r *rangePostings) flush(s Store, tree string, b *bucket) error {
	return writeRange(s, tree, b.key, r.first, r.last)
}

func (r *rangePostings) release(*pool) {}

// pool recycles buckets and blocks of one shard.
type pool struct {
	blocks  *block
	buckets []*bucket
}

func (p *pool) getBlock() *block {
	if blk := p.blocks; blk != nil {
		p.blocks = blk.next
		blk.next = nil
		blk.n = 0
		return blk
	}
	return new(block)
}

func (p *pool) putBlocks(head *block) {
	for head != nil {
		next := head.next
		head.next = p.blocks
		p.blocks = head
		head = next
	}
}

func (p *pool) getBucket(key []byte) *bucket {
	var b *bucket
	if n := len(p.buckets); n > 0 {
		b = p.buckets[n-1]
		p.buckets = p.buckets[:n-1]
	} else {
		b = new(bucket)
	}
	b.key = append(b.key[:0], key...)
	return b
}

func (p *pool) putBucket(b *bucket) {
	if b.p != nil {
		b.p.release(p)
	}
	key := b.key[:0]
	*b = bucket{key: key}
	p.buckets = append(p.buckets, b)
}

// attrCache holds the pending buckets of one index.
type attrCache struct {
	idx     Index
	pending map[string]*bucket
}

// Cache batches postings per index and key until the index is flushed.
// Calls for indexes in the same shard must not run concurrently.
type Cache struct {
	threshold int
	attrs     []attrCache
	pools     []*pool
}

// NewCache returns a cache for the indexes of set split into shards.
func NewCache(set *Set, shards, threshold int) *Cache {
	if shards < 1 {
		shards = 1
	}
	if threshold <= 0 {
		threshold = DefaultRangeThreshold
	}

	c := &Cache{
		threshold: threshold,
		attrs:     make([]attrCache, set.Len()),
		pools:     make([]*pool, shards),
	}
	for i := range c.attrs {
		c.attrs[i].idx = set.At(i)
	}
	for i := range c.pools {
		c.pools[i] = &pool{}
	}
	return c
}

// Shards returns the number of shards.
func (c *Cache) Shards() int {
	return len(c.pools)
}

// Shard returns the shard owning index position pos.
func (c *Cache) Shard(pos int) int {
	return pos % len(c.pools)
}

// Threshold returns the range promotion threshold.
func (c *Cache) Threshold() int {
	return c.threshold
}

func (c *Cache) pool(pos int) *pool {
	return c.pools[pos%len(c.pools)]
}

// Add records id under every key of index pos. A key seen for the first
// time in this batch is read from disk to learn its stored state.
func (c *Cache) Add(s Store, pos int, keys [][]byte, id storage.ID) error {
	ac := &c.attrs[pos]
	p := c.pool(pos)
	tree := ac.idx.Tree()

	for _, key := range keys {
		b := ac.pending[string(key)]
		if b == nil {
			st, err := readState(s, tree, key)
			if err != nil {
				return fmt.Errorf("index %s: %w", ac.idx.Attribute, err)
			}

			b = p.getBucket(key)
			b.wasFound = st.found
			b.wasRange = st.isRange
			b.diskFirst, b.diskLast = st.first, st.last
			if st.isRange {
				b.p = &rangePostings{first: st.first, last: st.last}
			} else {
				b.count = st.count
				b.p = &inlinePostings{sorted: true}
			}

			if ac.pending == nil {
				ac.pending = make(map[string]*bucket)
			}
			ac.pending[string(b.key)] = b
		}
		b.p = b.p.add(b, id, p, c.threshold)
	}
	return nil
}

// Pending returns the number of pending keys of index pos.
func (c *Cache) Pending(pos int) int {
	return len(c.attrs[pos].pending)
}

// Flush writes the pending buckets of index pos in key order and recycles
// them. The pending buckets are released even when a write fails.
func (c *Cache) Flush(s Store, pos int) error {
	ac := &c.attrs[pos]
	if len(ac.pending) == 0 {
		ac.pending = nil
		return nil
	}

	buckets := make([]*bucket, 0, len(ac.pending))
	for _, b := range ac.pending {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return bytes.Compare(buckets[i].key, buckets[j].key) < 0 })

	tree := ac.idx.Tree()
	p := c.pool(pos)
	var err error
	for _, b := range buckets {
		if err == nil {
			if ferr := b.p.flush(s, tree, b); ferr != nil {
				err = fmt.Errorf("index %s: flush: %w", ac.idx.Attribute, ferr)
			}
		}
		p.putBucket(b)
	}
	ac.pending = nil
	return err
}

// FlushAll flushes every index.
func (c *Cache) FlushAll(s Store) error {
	for pos := range c.attrs {
		if err := c.Flush(s, pos); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops all pending postings.
func (c *Cache) Reset() {
	for pos := range c.attrs {
		p := c.pool(pos)
		for _, b := range c.attrs[pos].pending {
			p.putBucket(b)
		}
		c.attrs[pos].pending = nil
	}
}
