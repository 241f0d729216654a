package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/WangYihang/storefront-detector/pkg/domain/repository"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var leveldbPrefix = []byte("c:")

// LevelDBStore implements repository.KVStore on an embedded LevelDB
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens (or creates) a LevelDB database at path
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBStore{db: db}, nil
}

func leveldbKey(key string) []byte {
	return append(append([]byte{}, leveldbPrefix...), key...)
}

func (s *LevelDBStore) Get(_ context.Context, key string) ([]byte, error) {
	b, err := s.db.Get(leveldbKey(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *LevelDBStore) Set(_ context.Context, key string, value []byte) error {
	return s.db.Put(leveldbKey(key), value, nil)
}

func (s *LevelDBStore) Delete(_ context.Context, key string) error {
	return s.db.Delete(leveldbKey(key), nil)
}

func (s *LevelDBStore) ForEachKey(ctx context.Context, fn func(key string) error) error {
	it := s.db.NewIterator(util.BytesPrefix(leveldbPrefix), nil)
	defer it.Release()

	for it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(string(bytes.TrimPrefix(it.Key(), leveldbPrefix))); err != nil {
			return err
		}
	}
	return it.Error()
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
