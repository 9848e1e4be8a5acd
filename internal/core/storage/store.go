package storage

import (
	"encoding/json"
)

// Store 带前缀隔离的 KV 视图
type Store struct {
	engine *Engine
	prefix []byte
}

// NewStore 创建前缀视图
func NewStore(e *Engine, prefix string) *Store {
	return &Store{engine: e, prefix: []byte(prefix)}
}

func (s *Store) key(k string) []byte {
	out := make([]byte, 0, len(s.prefix)+len(k))
	out = append(out, s.prefix...)
	return append(out, k...)
}

// Get 读取
func (s *Store) Get(k string) ([]byte, error) {
	return s.engine.Get(s.key(k))
}

// Put 写入
func (s *Store) Put(k string, v []byte) error {
	return s.engine.Put(s.key(k), v)
}

// Delete 删除
func (s *Store) Delete(k string) error {
	return s.engine.Delete(s.key(k))
}

// GetJSON 读取并反序列化
func (s *Store) GetJSON(k string, v any) error {
	data, err := s.Get(k)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// PutJSON 序列化并写入
func (s *Store) PutJSON(k string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(k, data)
}

// ForEach 遍历本前缀下所有键，传入去掉前缀后的键
func (s *Store) ForEach(fn func(k string, v []byte) error) error {
	return s.engine.Scan(s.prefix, func(key, value []byte) error {
		return fn(string(key[len(s.prefix):]), value)
	})
}
