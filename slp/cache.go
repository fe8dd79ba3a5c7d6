package slp

import "sync"

// Metadata describes a token as declared by its GENESIS transaction.
type Metadata struct {
	TokenID      string `json:"token_id"`
	Ticker       string `json:"ticker"`
	Name         string `json:"name"`
	DocumentURL  string `json:"document_url,omitempty"`
	DocumentHash []byte `json:"document_hash,omitempty"`
	Decimals     uint8  `json:"decimals"`
}

// MetadataFromGenesis extracts token metadata from a GENESIS message found
// in transaction txid.
func MetadataFromGenesis(txid string, m *Message) Metadata {
	return Metadata{
		TokenID:      txid,
		Ticker:       m.Ticker,
		Name:         m.Name,
		DocumentURL:  m.DocumentURL,
		DocumentHash: append([]byte(nil), m.DocumentHash...),
		Decimals:     m.Decimals,
	}
}

// MetadataCache stores token metadata by token id. Genesis data is
// immutable, so entries never expire.
type MetadataCache interface {
	GetMetadata(tokenID string) (Metadata, bool, error)
	PutMetadata(md Metadata) error
}

// MemCache is a MetadataCache held in memory.
type MemCache struct {
	mu sync.RWMutex
	m  map[string]Metadata
}

// NewMemCache creates an empty cache.
func NewMemCache() *MemCache {
	return &MemCache{m: make(map[string]Metadata)}
}

func (c *MemCache) GetMetadata(tokenID string) (Metadata, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	md, ok := c.m[tokenID]
	return md, ok, nil
}

func (c *MemCache) PutMetadata(md Metadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[md.TokenID] = md
	return nil
}
