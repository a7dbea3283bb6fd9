package metadata

import (
	"errors"
	"fmt"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/scale"
)

// Errors reported while loading or using runtime metadata.
var (
	ErrBadMagic           = errors.New("metadata: missing magic prefix")
	ErrUnsupportedVersion = errors.New("metadata: unsupported metadata version")
	ErrMalformed          = errors.New("metadata: malformed metadata blob")
	ErrNotFound           = errors.New("metadata: not found")
	ErrMismatch           = errors.New("metadata: artifact does not match the node runtime")
)

// Hasher enumerates the storage-key hashers a runtime can declare. The
// constant values match the on-chain encoding.
type Hasher uint8

const (
	HasherBlake2_128 Hasher = iota
	HasherBlake2_256
	HasherBlake2_128Concat
	HasherTwox128
	HasherTwox256
	HasherTwox64Concat
	HasherIdentity
)

// StorageEntry describes one storage item of a pallet.
type StorageEntry struct {
	Name    string
	Plain   bool
	Hashers []Hasher
	Key     scale.TypeID // zero for plain entries
	Value   scale.TypeID
	Default []byte
}

// Storage describes the storage namespace of a pallet.
type Storage struct {
	Prefix  string
	Entries map[string]StorageEntry
}

// Pallet describes one runtime pallet.
type Pallet struct {
	Name      string
	Index     uint8
	Storage   *Storage
	HasCalls  bool
	CallType  scale.TypeID
	HasEvents bool
	EventType scale.TypeID
}

// SignedExtension is one entry of the extrinsic signed-extension pipeline.
type SignedExtension struct {
	Name             string
	Type             scale.TypeID
	AdditionalSigned scale.TypeID
}

// Extrinsic describes the chain's extrinsic format.
type Extrinsic struct {
	Version          uint8
	AddressType      scale.TypeID
	CallType         scale.TypeID
	SignatureType    scale.TypeID
	ExtraType        scale.TypeID
	SignedExtensions []SignedExtension
}

// Metadata is the parsed runtime metadata: the portable type registry plus
// the pallet and extrinsic tables the indexer needs.
type Metadata struct {
	Version   uint8
	Registry  *scale.Registry
	Pallets   []Pallet
	Extrinsic Extrinsic

	byName  map[string]int
	byIndex map[uint8]int
}

// New assembles metadata from already-built tables. Parse is the normal
// entry point; New exists for programmatic construction.
func New(registry *scale.Registry, pallets []Pallet, extrinsic Extrinsic) *Metadata {
	m := &Metadata{Registry: registry, Pallets: pallets, Extrinsic: extrinsic}
	m.index()
	return m
}

// Pallet looks a pallet up by name.
func (m *Metadata) Pallet(name string) (*Pallet, bool) {
	i, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return &m.Pallets[i], true
}

// PalletByIndex looks a pallet up by its runtime index.
func (m *Metadata) PalletByIndex(idx uint8) (*Pallet, bool) {
	i, ok := m.byIndex[idx]
	if !ok {
		return nil, false
	}
	return &m.Pallets[i], true
}

// StorageEntry returns the named entry of the named pallet.
func (m *Metadata) StorageEntry(pallet, entry string) (StorageEntry, error) {
	p, ok := m.Pallet(pallet)
	if !ok {
		return StorageEntry{}, fmt.Errorf("%w: pallet %q", ErrNotFound, pallet)
	}
	if p.Storage == nil {
		return StorageEntry{}, fmt.Errorf("%w: pallet %q has no storage", ErrNotFound, pallet)
	}
	e, ok := p.Storage.Entries[entry]
	if !ok {
		return StorageEntry{}, fmt.Errorf("%w: storage entry %s.%s", ErrNotFound, pallet, entry)
	}
	return e, nil
}

// EventsType returns the type of the System.Events storage value, the
// vector of event records for one block.
func (m *Metadata) EventsType() (scale.TypeID, error) {
	e, err := m.StorageEntry("System", "Events")
	if err != nil {
		return 0, err
	}
	return e.Value, nil
}

func (m *Metadata) index() {
	m.byName = make(map[string]int, len(m.Pallets))
	m.byIndex = make(map[uint8]int, len(m.Pallets))
	for i, p := range m.Pallets {
		m.byName[p.Name] = i
		m.byIndex[p.Index] = i
	}
}
