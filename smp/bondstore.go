package smp

import (
	"fmt"
	"io/ioutil"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// BondKeys is the persisted record for one peer, the Go-native counterpart
// of hci.BondInfo in the teacher's linux/hci/bond/manager.go.
type BondKeys struct {
	LTK      []byte
	EDIV     uint16
	Rand     uint64
	IRK      []byte
	CSRK     []byte
	Legacy   bool
	IdentityAddr string
}

// BondStore is the device-database collaborator, §4.3 "Persisted state
// layout: ... delegated to the device-database collaborator, realized here
// as the smp.BondStore interface modeled on the teacher's hci.BondManager".
type BondStore interface {
	Find(addr string) (BondKeys, error)
	Save(addr string, keys BondKeys) error
	Delete(addr string) error
}

// memoryBondStore is the small in-memory implementation and the Manager's
// default BondStore; jsonFileBondStore below is the file-backed one.
type memoryBondStore struct {
	mu    sync.RWMutex
	bonds map[string]BondKeys
}

// NewMemoryBondStore returns a BondStore backed by an in-process map, with
// no persistence across restarts.
func NewMemoryBondStore() BondStore {
	return &memoryBondStore{bonds: make(map[string]BondKeys)}
}

func (m *memoryBondStore) Find(addr string) (BondKeys, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bonds[addr]
	if !ok {
		return BondKeys{}, fmt.Errorf("smp: no bond for %s", addr)
	}
	return b, nil
}

func (m *memoryBondStore) Save(addr string, keys BondKeys) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bonds[addr] = keys
	return nil
}

func (m *memoryBondStore) Delete(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bonds, addr)
	return nil
}

// jsonFileBondStore persists bonds as a single JSON document, the same
// shape as the teacher's bond/manager.go but marshaled with
// github.com/json-iterator/go (jsoniter.ConfigCompatibleWithStandardLibrary)
// instead of encoding/json, and keyed by address in a map rather than a
// linear scan over a slice.
type jsonFileBondStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONFileBondStore returns a BondStore that persists to a single JSON
// file at path, creating it empty if it does not yet exist.
func NewJSONFileBondStore(path string) (BondStore, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := ioutil.WriteFile(path, []byte("{}"), 0600); err != nil {
			return nil, fmt.Errorf("smp: creating bond file: %w", err)
		}
	}
	return &jsonFileBondStore{path: path}, nil
}

func (j *jsonFileBondStore) load() (map[string]BondKeys, error) {
	data, err := ioutil.ReadFile(j.path)
	if err != nil {
		return nil, fmt.Errorf("smp: reading bond file: %w", err)
	}
	out := make(map[string]BondKeys)
	if len(data) == 0 {
		return out, nil
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("smp: decoding bond file: %w", err)
	}
	return out, nil
}

func (j *jsonFileBondStore) store(bonds map[string]BondKeys) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(bonds, "", "  ")
	if err != nil {
		return fmt.Errorf("smp: encoding bond file: %w", err)
	}
	return ioutil.WriteFile(j.path, data, 0600)
}

func (j *jsonFileBondStore) Find(addr string) (BondKeys, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	bonds, err := j.load()
	if err != nil {
		return BondKeys{}, err
	}
	b, ok := bonds[addr]
	if !ok {
		return BondKeys{}, fmt.Errorf("smp: no bond for %s", addr)
	}
	return b, nil
}

func (j *jsonFileBondStore) Save(addr string, keys BondKeys) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	bonds, err := j.load()
	if err != nil {
		return err
	}
	bonds[addr] = keys
	return j.store(bonds)
}

func (j *jsonFileBondStore) Delete(addr string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	bonds, err := j.load()
	if err != nil {
		return err
	}
	delete(bonds, addr)
	return j.store(bonds)
}
