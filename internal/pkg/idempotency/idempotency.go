// Package idempotency remembers which contribution a client supplied
// Idempotency-Key produced, so a retried donation is not booked twice.
package idempotency

import (
	"encoding/json"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "contribution_keys"

// PendingTimeout is how long a reservation may stay unfinished before another
// request may reclaim it.
const PendingTimeout = 5 * time.Minute

// ErrInProgress is returned when another request holds the same key.
var ErrInProgress = errors.New("a request with this idempotency key is still in progress")

// record is stored per key. While Pending, ContributionID is the id the
// holder is about to book.
type record struct {
	ContributionID string    `json:"contributionId,omitempty"`
	Pending        bool      `json:"pending"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Store keeps idempotency keys in a BoltDB file.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens (or creates) the key database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// SetClock replaces the clock used to age pending reservations.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func compositeKey(scope, key string) []byte {
	return []byte(scope + "\x00" + key)
}

// Reservation is the outcome of Reserve.
type Reservation struct {
	// ContributionID is the id the caller must book under, or the id an
	// earlier request completed with.
	ContributionID string
	// Completed means the key already produced ContributionID.
	Completed bool
	// Reclaimed means an abandoned request held the key. It may have booked
	// ContributionID before it stopped, so the caller checks the ledger first.
	Reclaimed bool
}

// Reserve claims key within scope for a contribution to be stored as
// candidateID. It returns ErrInProgress when another request still holds the
// key. A reclaimed reservation keeps the id the abandoned request planned.
func (s *Store) Reserve(scope, key, candidateID string) (Reservation, error) {
	var res Reservation
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		k := compositeKey(scope, key)
		res = Reservation{ContributionID: candidateID}

		if v := b.Get(k); v != nil {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if !rec.Pending {
				res = Reservation{ContributionID: rec.ContributionID, Completed: true}
				return nil
			}
			if s.now().Sub(rec.UpdatedAt) < PendingTimeout {
				return ErrInProgress
			}
			if rec.ContributionID != "" {
				res = Reservation{ContributionID: rec.ContributionID, Reclaimed: true}
			}
		}

		data, err := json.Marshal(record{ContributionID: res.ContributionID, Pending: true, UpdatedAt: s.now()})
		if err != nil {
			return err
		}
		return b.Put(k, data)
	})
	if err != nil {
		return Reservation{}, err
	}
	return res, nil
}

// Complete binds a reserved key to the contribution it produced.
func (s *Store) Complete(scope, key, contributionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(record{ContributionID: contributionID, UpdatedAt: s.now()})
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketName)).Put(compositeKey(scope, key), data)
	})
}

// Release frees a reservation after the request failed, so the client may retry.
func (s *Store) Release(scope, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete(compositeKey(scope, key))
	})
}
