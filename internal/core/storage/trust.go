package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-blemesh/pkg/types"
)

// TrustPrefix 信任记录键前缀
const TrustPrefix = "t/"

// TrustRecord 对端信任历史
type TrustRecord struct {
	PeerID      string           `json:"peer_id"`
	DisplayName string           `json:"display_name,omitempty"`
	Trust       types.TrustLevel `json:"trust"`
	PublicKey   []byte           `json:"public_key,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TrustBook 持久化的对端信任历史
type TrustBook struct {
	store *Store
}

// NewTrustBook 在引擎上创建信任簿
func NewTrustBook(e *Engine) *TrustBook {
	return &TrustBook{store: NewStore(e, TrustPrefix)}
}

// Get 读取信任记录；不存在时 ok 为 false
func (b *TrustBook) Get(peerID string) (rec TrustRecord, ok bool, err error) {
	err = b.store.GetJSON(peerID, &rec)
	if errors.Is(err, ErrNotFound) {
		return TrustRecord{}, false, nil
	}
	if err != nil {
		return TrustRecord{}, false, fmt.Errorf("load trust %s: %w", peerID, err)
	}
	return rec, true, nil
}

// Put 写入信任记录
func (b *TrustBook) Put(rec TrustRecord) error {
	if rec.PeerID == "" {
		return types.ErrEmptyPeerID
	}
	if err := b.store.PutJSON(rec.PeerID, rec); err != nil {
		return fmt.Errorf("save trust %s: %w", rec.PeerID, err)
	}
	return nil
}

// All 所有信任记录
func (b *TrustBook) All() ([]TrustRecord, error) {
	var out []TrustRecord
	err := b.store.ForEach(func(_ string, v []byte) error {
		var rec TrustRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}
