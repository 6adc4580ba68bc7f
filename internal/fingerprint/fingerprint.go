// Package fingerprint computes aggregate unit fingerprints and holds the
// fingerprint state that is carried from one run to the next.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"maps"

	"github.com/vk/ecow/internal/model"
)

// Map is a unit name to aggregate fingerprint mapping.
type Map map[string]string

// Clone returns a copy of m. A nil map clones to an empty one.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	maps.Copy(out, m)
	return out
}

// Store loads and saves fingerprint state.
type Store interface {
	// Load returns the last saved state. A store that was never saved to
	// returns an empty map.
	Load(ctx context.Context) (Map, error)
	// Save replaces the stored state.
	Save(ctx context.Context, m Map) error
}

// Dep is a resolved dependency together with its aggregate fingerprint.
type Dep struct {
	Name        string
	Fingerprint string
}

// Aggregate returns the aggregate fingerprint of u given the aggregates of
// its dependencies, in declared order.
func Aggregate(u *model.Unit, deps []Dep) string {
	h := sha256.New()
	writeField(h, "unit")
	writeField(h, u.Name)
	writeField(h, u.Kind)

	writeCount(h, len(u.Parts))
	for _, p := range u.Parts {
		writeField(h, p.Name)
		writeField(h, p.Kind)
		writeField(h, p.Fingerprint)
	}

	writeCount(h, len(deps))
	for _, d := range deps {
		writeField(h, d.Name)
		writeField(h, d.Fingerprint)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes a length-prefixed field so that adjacent fields can
// never run into each other.
func writeField(h hash.Hash, s string) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
	h.Write(lenBuf[:])
	h.Write([]byte(s))
}

func writeCount(h hash.Hash, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}
