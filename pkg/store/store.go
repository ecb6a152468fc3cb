// Package store persists analyzed commits in a bbolt database so repeated
// runs can skip commits they already analyzed.
package store

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Sumatoshi-tech/codealong/pkg/analysis"
)

const (
	bucketPrefix = "repo:"
	openTimeout  = 5 * time.Second
	fileMode     = 0o600
)

// ErrNotFound is returned by Get for a commit that was never stored.
var ErrNotFound = errors.New("commit not stored")

// Store is a commit result store. It is safe for concurrent use.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path is the database file.
func (s *Store) Path() string {
	return s.db.Path()
}

// Has reports whether commit id of repo was stored.
func (s *Store) Has(repo, id string) (bool, error) {
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(repo))
		found = b != nil && b.Get([]byte(id)) != nil

		return nil
	})

	return found, err
}

// Put stores commit under its repository and id, replacing any earlier value.
func (s *Store) Put(commit *analysis.AnalyzedCommit) error {
	value, err := encode(commit)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, bucketErr := tx.CreateBucketIfNotExists(bucketName(commit.Repo.Name))
		if bucketErr != nil {
			return bucketErr
		}

		return b.Put([]byte(commit.ID), value)
	})
}

// Get loads commit id of repo.
func (s *Store) Get(repo, id string) (*analysis.AnalyzedCommit, error) {
	var commit analysis.AnalyzedCommit

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(repo))
		if b == nil {
			return ErrNotFound
		}

		value := b.Get([]byte(id))
		if value == nil {
			return ErrNotFound
		}

		return decode(value, &commit)
	})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", repo, id, err)
	}

	return &commit, nil
}

// Count is the number of commits stored for repo.
func (s *Store) Count(repo string) (int, error) {
	n := 0

	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketName(repo)); b != nil {
			n = b.Stats().KeyN
		}

		return nil
	})

	return n, err
}

// ForEach calls fn with every commit stored for repo in id order.
func (s *Store) ForEach(repo string, fn func(*analysis.AnalyzedCommit) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(repo))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var commit analysis.AnalyzedCommit

			err := decode(v, &commit)
			if err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}

			return fn(&commit)
		})
	})
}

// Size is the database file size in bytes.
func (s *Store) Size() (int64, error) {
	var size int64

	err := s.db.View(func(tx *bolt.Tx) error {
		size = tx.Size()

		return nil
	})

	return size, err
}

func bucketName(repo string) []byte {
	return []byte(bucketPrefix + repo)
}
