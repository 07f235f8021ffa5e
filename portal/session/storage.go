package session

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Storage is a string key/value store shaped like a browser storage area.
type Storage interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// MemoryStorage keeps items for the lifetime of the process.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (s *MemoryStorage) GetItem(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryStorage) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *MemoryStorage) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

var storageBucket = []byte("storage")

// BoltStorage persists items in a bbolt database file.
type BoltStorage struct {
	db *bolt.DB
}

var _ Storage = (*BoltStorage)(nil)

// OpenBoltStorage opens (creating if needed) the storage file at path.
func OpenBoltStorage(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(storageBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating bucket")
	}
	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) GetItem(key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(storageBucket).Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", false, errors.Wrap(err, "reading item")
	}
	return string(value), value != nil, nil
}

func (s *BoltStorage) SetItem(key, value string) error {
	return errors.Wrap(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(storageBucket).Put([]byte(key), []byte(value))
	}), "writing item")
}

func (s *BoltStorage) RemoveItem(key string) error {
	return errors.Wrap(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(storageBucket).Delete([]byte(key))
	}), "removing item")
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}
