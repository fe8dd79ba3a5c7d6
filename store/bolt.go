// Package store persists named wallets and token metadata in bbolt.
package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/libcash-go/slp"
)

var (
	bucketWallets = []byte("wallets")
	bucketTokens  = []byte("tokens")
)

// DefaultFileName is the database file created inside a data directory.
const DefaultFileName = "libcash.db"

// BoltStore wraps a bbolt database.
type BoltStore struct {
	db *bbolt.DB
}

// Open opens or creates the bbolt database at dbPath. The parent directory
// is created if it does not exist.
func Open(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketWallets, bucketTokens} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("store: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Wallets returns the named wallet store.
func (s *BoltStore) Wallets() *WalletStore { return &WalletStore{db: s.db} }

// Tokens returns the token metadata store.
func (s *BoltStore) Tokens() *TokenStore { return &TokenStore{db: s.db} }

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// WalletRecord is a stored named wallet. Secret is opaque to the store;
// the keyring encrypts it before saving.
type WalletRecord struct {
	Name      string
	Network   string
	Secret    []byte
	CreatedAt time.Time
}

// WalletStore persists WalletRecords keyed by name.
type WalletStore struct {
	db *bbolt.DB
}

// PutWallet stores rec. An existing record with the same name is replaced
// only when overwrite is set.
func (s *WalletStore) PutWallet(rec *WalletRecord, overwrite bool) error {
	if rec == nil {
		return fmt.Errorf("%w: wallet record", ErrNilParam)
	}
	if rec.Name == "" {
		return ErrEmptyName
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketWallets)
		key := []byte(rec.Name)
		if !overwrite && b.Get(key) != nil {
			return fmt.Errorf("%w: %s", ErrWalletExists, rec.Name)
		}
		data, err := encodeGob(rec)
		if err != nil {
			return fmt.Errorf("store: encode wallet: %w", err)
		}
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("store: put wallet: %w", err)
		}
		return nil
	})
}

// GetWallet returns the record stored under name.
func (s *WalletStore) GetWallet(name string) (*WalletRecord, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	var rec WalletRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketWallets).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrWalletNotFound, name)
		}
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("store: decode wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// HasWallet reports whether a wallet is stored under name.
func (s *WalletStore) HasWallet(name string) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket(bucketWallets).Get([]byte(name)) != nil
		return nil
	})
	return ok, err
}

// DeleteWallet removes the record stored under name.
func (s *WalletStore) DeleteWallet(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketWallets)
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", ErrWalletNotFound, name)
		}
		return b.Delete([]byte(name))
	})
}

// ListWallets returns the stored wallet names in order.
func (s *WalletStore) ListWallets() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketWallets).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: list wallets: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// TokenStore caches token genesis metadata.
type TokenStore struct {
	db *bbolt.DB
}

var _ slp.MetadataCache = (*TokenStore)(nil)

// GetMetadata implements slp.MetadataCache.
func (s *TokenStore) GetMetadata(tokenID string) (slp.Metadata, bool, error) {
	var (
		md    slp.Metadata
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTokens).Get([]byte(tokenID))
		if data == nil {
			return nil
		}
		if err := decodeGob(data, &md); err != nil {
			return fmt.Errorf("store: decode token %s: %w", tokenID, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return slp.Metadata{}, false, err
	}
	return md, found, nil
}

// PutMetadata implements slp.MetadataCache.
func (s *TokenStore) PutMetadata(md slp.Metadata) error {
	if _, err := slp.ParseTokenID(md.TokenID); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTokenID, md.TokenID)
	}
	data, err := encodeGob(md)
	if err != nil {
		return fmt.Errorf("store: encode token: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTokens).Put([]byte(md.TokenID), data)
	})
}

// ListTokens returns every cached token, ordered by token id.
func (s *TokenStore) ListTokens() ([]slp.Metadata, error) {
	var out []slp.Metadata
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTokens).ForEach(func(_, v []byte) error {
			var md slp.Metadata
			if err := decodeGob(v, &md); err != nil {
				return fmt.Errorf("store: decode token: %w", err)
			}
			out = append(out, md)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
