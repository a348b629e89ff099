package audit

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var blockedBucket = []byte("blocked")

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Entry is one blocked decision.
type Entry struct {
	ID               uint64    `json:"id"`
	Time             time.Time `json:"time"`
	Runtime          string    `json:"runtime"`
	Tool             string    `json:"tool"`
	Target           string    `json:"target"`
	WorkingDirectory string    `json:"working_directory"`
	Reason           string    `json:"reason"`
}

type Store struct {
	db *bolt.DB
}

func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".leash-audit.db"
	}
	return filepath.Join(homeDir, ".leash", "audit.db")
}

// Open opens or creates the audit database at path, the default location when
// path is empty.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create audit directory failed: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open audit db failed: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(blockedBucket)
		return createErr
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit bucket failed: %w", err)
	}
	return &Store{db: db}, nil
}

func (store *Store) Close() error {
	if store == nil || store.db == nil {
		return nil
	}
	return store.db.Close()
}

// Record appends entry and returns it with its assigned ID and time.
func (store *Store) Record(entry Entry) (Entry, error) {
	err := store.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(blockedBucket)
		sequence, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		entry.ID = sequence
		if entry.Time.IsZero() {
			entry.Time = time.Now().UTC()
		}
		payload, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return bucket.Put(sequenceKey(sequence), payload)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("record audit entry failed: %w", err)
	}
	return entry, nil
}

// List returns up to limit entries, newest first. Non-positive limits mean
// the default and limits are capped.
func (store *Store) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	result := make([]Entry, 0, limit)
	err := store.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(blockedBucket).Cursor()
		for key, value := cursor.Last(); key != nil && len(result) < limit; key, value = cursor.Prev() {
			entry := Entry{}
			if decodeErr := json.Unmarshal(value, &entry); decodeErr != nil {
				continue
			}
			result = append(result, entry)
		}
		return nil
	})
	return result, err
}

func sequenceKey(sequence uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, sequence)
	return key
}

// FileRecorder opens the database at Path for each record, so processes that
// never block anything never touch it.
type FileRecorder struct {
	Path string
}

func (recorder FileRecorder) Record(entry Entry) (Entry, error) {
	store, err := Open(recorder.Path)
	if err != nil {
		return Entry{}, err
	}
	defer store.Close()
	return store.Record(entry)
}
