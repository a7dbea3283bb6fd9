package metadata

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/tsenovilla/asset-hub-xcm-minimal-indexer/internal/scale"
)

// StorageKey builds the storage key for an entry of a pallet. Plain entries
// take no key values; map entries take one value per declared hasher, each
// encoded against the entry's key type before hashing.
func (m *Metadata) StorageKey(pallet, entry string, keys ...scale.Value) ([]byte, error) {
	p, ok := m.Pallet(pallet)
	if !ok {
		return nil, fmt.Errorf("%w: pallet %q", ErrNotFound, pallet)
	}
	if p.Storage == nil {
		return nil, fmt.Errorf("%w: pallet %q has no storage", ErrNotFound, pallet)
	}
	e, ok := p.Storage.Entries[entry]
	if !ok {
		return nil, fmt.Errorf("%w: storage entry %s.%s", ErrNotFound, pallet, entry)
	}

	key := append(twox128([]byte(p.Storage.Prefix)), twox128([]byte(e.Name))...)
	if e.Plain {
		if len(keys) != 0 {
			return nil, fmt.Errorf("metadata: %s.%s is a plain entry, got %d key values", pallet, entry, len(keys))
		}
		return key, nil
	}
	if len(keys) != len(e.Hashers) {
		return nil, fmt.Errorf("metadata: %s.%s wants %d key values, got %d", pallet, entry, len(e.Hashers), len(keys))
	}

	if len(e.Hashers) == 1 {
		enc, err := scale.Encode(m.Registry, e.Key, keys[0])
		if err != nil {
			return nil, fmt.Errorf("metadata: encode key for %s.%s: %w", pallet, entry, err)
		}
		return append(key, applyHasher(e.Hashers[0], enc)...), nil
	}

	// Multiple hashers mean the key type is a tuple with one component per
	// hasher.
	kt, err := m.Registry.Resolve(e.Key)
	if err != nil {
		return nil, err
	}
	if kt.Kind != scale.KindTuple || len(kt.Tuple) != len(e.Hashers) {
		return nil, fmt.Errorf("metadata: %s.%s key type does not match its hashers", pallet, entry)
	}
	for i, h := range e.Hashers {
		enc, err := scale.Encode(m.Registry, kt.Tuple[i], keys[i])
		if err != nil {
			return nil, fmt.Errorf("metadata: encode key %d for %s.%s: %w", i, pallet, entry, err)
		}
		key = append(key, applyHasher(h, enc)...)
	}
	return key, nil
}

func applyHasher(h Hasher, data []byte) []byte {
	switch h {
	case HasherIdentity:
		return data
	case HasherBlake2_128:
		return blake2_128(data)
	case HasherBlake2_128Concat:
		return append(blake2_128(data), data...)
	case HasherBlake2_256:
		sum := blake2b.Sum256(data)
		return sum[:]
	case HasherTwox128:
		return twox128(data)
	case HasherTwox256:
		return twox256(data)
	case HasherTwox64Concat:
		return append(twox64(data), data...)
	}
	return data
}

func blake2_128(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	return h.Sum(nil)
}

func twox64(data []byte) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, seededXXHash(0, data))
	return out
}

func twox128(data []byte) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[0:8], seededXXHash(0, data))
	binary.LittleEndian.PutUint64(out[8:16], seededXXHash(1, data))
	return out
}

func twox256(data []byte) []byte {
	out := make([]byte, 32)
	for seed := uint64(0); seed < 4; seed++ {
		binary.LittleEndian.PutUint64(out[seed*8:], seededXXHash(seed, data))
	}
	return out
}

func seededXXHash(seed uint64, data []byte) uint64 {
	h := xxhash.NewWithSeed(seed)
	h.Write(data)
	return h.Sum64()
}
