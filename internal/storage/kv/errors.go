package kv

import (
	"errors"

	bolt "go.etcd.io/bbolt"
)

// Engine errors.
var (
	ErrNotFound     = errors.New("key not found")
	ErrTreeNotFound = errors.New("tree not found")
	ErrTxnFull      = errors.New("transaction has too many dirty pages")
	ErrTxnClosed    = errors.New("transaction closed")
	ErrReadOnly     = errors.New("transaction is read-only")
	ErrNotAscending = errors.New("bulk append out of order")
	ErrEmptyKey     = errors.New("key required")
	ErrEnvClosed    = errors.New("environment closed")
)

// translate maps bbolt errors onto the package errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bolt.ErrTxClosed):
		return ErrTxnClosed
	case errors.Is(err, bolt.ErrTxNotWritable):
		return ErrReadOnly
	case errors.Is(err, bolt.ErrBucketNotFound):
		return ErrNotFound
	case errors.Is(err, bolt.ErrKeyRequired):
		return ErrEmptyKey
	case errors.Is(err, bolt.ErrDatabaseNotOpen):
		return ErrEnvClosed
	default:
		return err
	}
}
