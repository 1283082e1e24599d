package dht

import (
	"bytes"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// storedRecord 带主题的宣告记录
type storedRecord struct {
	topic  []byte
	record Record
}

// RecordStore 宣告记录存储
//
// 以 topicHex:publicKeyHex 为键，同一节点在同一主题下重复宣告会刷新 TTL。
type RecordStore struct {
	lru *expirable.LRU[string, storedRecord]
}

// NewRecordStore 创建记录存储
func NewRecordStore(size int, ttl time.Duration) *RecordStore {
	return &RecordStore{
		lru: expirable.NewLRU[string, storedRecord](size, nil, ttl),
	}
}

func recordKey(topic, publicKey []byte) string {
	return hex.EncodeToString(topic) + ":" + hex.EncodeToString(publicKey)
}

// Put 写入记录
func (s *RecordStore) Put(topic []byte, rec Record) {
	s.lru.Add(recordKey(topic, rec.PublicKey), storedRecord{
		topic: append([]byte(nil), topic...),
		record: Record{
			PublicKey: append([]byte(nil), rec.PublicKey...),
			Host:      rec.Host,
			Port:      rec.Port,
		},
	})
}

// Remove 删除记录
func (s *RecordStore) Remove(topic, publicKey []byte) {
	s.lru.Remove(recordKey(topic, publicKey))
}

// Get 返回主题下未过期的记录
func (s *RecordStore) Get(topic []byte, limit int) []Record {
	var out []Record
	for _, v := range s.lru.Values() {
		if !bytes.Equal(v.topic, topic) {
			continue
		}
		out = append(out, v.record)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Len 返回记录数量（可能包含尚未清理的过期记录）
func (s *RecordStore) Len() int {
	return s.lru.Len()
}
