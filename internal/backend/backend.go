package backend

import (
	"errors"
	"fmt"
	"sync"

	"github.com/KilimcininKorOglu/obakv/internal/config"
	"github.com/KilimcininKorOglu/obakv/internal/logging"
	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/codec"
	"github.com/KilimcininKorOglu/obakv/internal/storage/dn"
	"github.com/KilimcininKorOglu/obakv/internal/storage/dn2id"
	"github.com/KilimcininKorOglu/obakv/internal/storage/idalloc"
	"github.com/KilimcininKorOglu/obakv/internal/storage/index"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

// Backend is an open backend database: the key-value environment with its
// entry store, DN tree, meta tree and index trees.
type Backend struct {
	cfg       config.BackendConfig
	log       logging.Logger
	env       *kv.Env
	tree      *dn2id.Tree
	alloc     *idalloc.Allocator
	indexes   *index.Set
	codec     *codec.Codec
	threshold int

	mu      sync.Mutex
	session *Tool
}

// Open opens or creates the backend described by cfg.
func Open(cfg config.BackendConfig, log logging.Logger) (*Backend, error) {
	return open(cfg, false, log)
}

// OpenReadOnly opens an existing backend without write access. Only
// read-only tool sessions can be opened on it.
func OpenReadOnly(cfg config.BackendConfig, log logging.Logger) (*Backend, error) {
	return open(cfg, true, log)
}

func open(cfg config.BackendConfig, readOnly bool, log logging.Logger) (*Backend, error) {
	if log == nil {
		log = logging.NewNop()
	}
	log = log.Named("backend")

	suffix, err := dn.Normalize(cfg.Suffix)
	if err != nil {
		return nil, fmt.Errorf("backend: suffix %q: %w", cfg.Suffix, err)
	}
	tree, err := dn2id.New(suffix)
	if err != nil {
		return nil, err
	}

	comp, err := codec.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	indexes, err := IndexSet(cfg.Indexes)
	if err != nil {
		return nil, err
	}
	mmap, err := config.ParseSize(cfg.MmapSize)
	if err != nil {
		return nil, fmt.Errorf("backend: mmap size: %w", err)
	}

	env, err := kv.Open(kv.Options{
		Dir:             cfg.DataDir,
		ReadOnly:        readOnly,
		NoSync:          cfg.NoSync,
		InitialMmapSize: int(mmap),
		MaxTxnWrites:    cfg.MaxTxnWrites,
		Timeout:         cfg.LockTimeout,
	})
	if err != nil {
		return nil, err
	}

	specs := []kv.TreeSpec{
		{Name: storage.TreeID2Entry},
		{Name: storage.TreeDN2ID, Dup: true},
		{Name: storage.TreeMeta},
	}
	if err := env.EnsureTrees(append(specs, indexes.TreeSpecs()...)...); err != nil {
		_ = env.Close()
		return nil, err
	}

	b := &Backend{
		cfg:       cfg,
		log:       log,
		env:       env,
		tree:      tree,
		alloc:     idalloc.New(),
		indexes:   indexes,
		codec:     codec.New(comp),
		threshold: cfg.RangeThreshold,
	}

	err = env.View(func(txn *kv.Txn) error {
		if err := b.alloc.Load(txn); err != nil {
			return err
		}
		legacy, err := dn2id.NeedsUpgrade(txn)
		if err != nil {
			return err
		}
		tree.SetLegacy(legacy)
		return nil
	})
	// a read-only open of a database that was never written has no trees
	if err != nil && !(readOnly && errors.Is(err, kv.ErrTreeNotFound)) {
		_ = env.Close()
		return nil, err
	}

	log.Info("backend opened",
		"suffix", suffix,
		"path", env.Path(),
		"indexes", indexes.Len(),
		"compression", comp.String(),
		"legacy_dn2id", tree.Legacy(),
		"last_id", uint64(b.alloc.Last()))
	return b, nil
}

// IndexSet builds the index set of the configured indexes.
func IndexSet(cfgs []config.IndexConfig) (*index.Set, error) {
	list := make([]index.Index, 0, len(cfgs))
	for _, ic := range cfgs {
		types, err := index.ParseTypes(ic.Types)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", ic.Attribute, err)
		}
		list = append(list, index.Index{Attribute: ic.Attribute, Types: types})
	}
	return index.NewSet(list)
}

// Suffix returns the normalized suffix.
func (b *Backend) Suffix() string {
	return b.tree.Suffix()
}

// Indexes returns the configured indexes.
func (b *Backend) Indexes() *index.Set {
	return b.indexes
}

// ReadOnly reports whether the backend was opened read-only.
func (b *Backend) ReadOnly() bool {
	return b.env.ReadOnly()
}

// NeedsUpgrade reports whether the DN tree is still in the legacy format.
func (b *Backend) NeedsUpgrade() bool {
	return b.tree.Legacy()
}

// Close closes the backend. An open tool session is closed first.
func (b *Backend) Close() error {
	b.mu.Lock()
	t := b.session
	b.mu.Unlock()

	var errs []error
	if t != nil {
		errs = append(errs, t.Close())
	}
	errs = append(errs, b.env.Close())
	return errors.Join(errs...)
}
