// Package store persists digests of discovered broadcast sources, so a host
// reconnecting after a restart can present the last known audio landscape
// without a fresh scan.
package store

import (
	"io/ioutil"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Record is one persisted broadcast source, keyed by its address string.
type Record struct {
	Addr          string    `json:"addr"`
	AddrType      uint8     `json:"addrType"`
	SID           uint8     `json:"sid"`
	PAInterval    uint16    `json:"paInterval"`
	BroadcastID   uint32    `json:"broadcastId"`
	Name          string    `json:"name,omitempty"`
	BroadcastName string    `json:"broadcastName,omitempty"`
	RSSI          int8      `json:"rssi"`
	LastSeen      time.Time `json:"lastSeen"`
}

// SourceStore is the persistence interface handed to the daemon.
type SourceStore interface {
	Store(rec Record, replace bool) error
	Load(addr string) (Record, error)
	All() ([]Record, error)
	Clear() error
}

type sourceStore struct {
	filename string
	lock     sync.RWMutex
}

// New opens a file-backed store. The file is created lazily on the first
// Store.
func New(filename string) SourceStore {
	return &sourceStore{filename: filename}
}

func (s *sourceStore) Store(rec Record, replace bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	records, err := s.loadExisting()
	if err != nil {
		return err
	}

	if _, ok := records[rec.Addr]; ok && !replace {
		return errors.Errorf("store already contains source %s", rec.Addr)
	}

	records[rec.Addr] = rec

	return s.storeAll(records)
}

func (s *sourceStore) Load(addr string) (Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	records, err := s.loadExisting()
	if err != nil {
		return Record{}, err
	}

	rec, ok := records[addr]
	if !ok {
		return Record{}, errors.Errorf("source %s not found in store", addr)
	}

	return rec, nil
}

func (s *sourceStore) All() ([]Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	records, err := s.loadExisting()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *sourceStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	err := os.Remove(s.filename)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *sourceStore) loadExisting() (map[string]Record, error) {
	_, err := os.Stat(s.filename)
	if os.IsNotExist(err) {
		return map[string]Record{}, nil
	}

	in, err := ioutil.ReadFile(s.filename)
	if err != nil {
		return nil, err
	}

	var records map[string]Record
	if err := jsoniter.Unmarshal(in, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (s *sourceStore) storeAll(records map[string]Record) error {
	out, err := jsoniter.Marshal(records)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(s.filename, out, 0644)
}
