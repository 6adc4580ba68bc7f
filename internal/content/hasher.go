// Package content resolves the input references of a part and computes the
// part's content fingerprint.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/ecow/internal/ctxlog"
	"github.com/vk/ecow/internal/model"
)

// DefaultCacheSize bounds the number of memoised file digests.
const DefaultCacheSize = 4096

// ErrNoMatch is returned when a literal input reference names no file.
var ErrNoMatch = errors.New("input not found")

// InputError reports a part input that could not be resolved or read.
type InputError struct {
	Unit string
	Part string
	Ref  string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("unit %q part %q: input %q: %v", e.Unit, e.Part, e.Ref, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Hasher fingerprints parts whose inputs live in fsys. Input references are
// slash separated paths or doublestar patterns relative to the declaring
// unit's directory.
type Hasher struct {
	fsys  fs.FS
	cache *lru.Cache[string, string]
}

// NewHasher returns a Hasher reading from fsys that memoises up to
// cacheSize file digests. A non-positive size selects DefaultCacheSize.
func NewHasher(fsys fs.FS, cacheSize int) (*Hasher, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Hasher{fsys: fsys, cache: cache}, nil
}

// Resolve expands the references of a part into a sorted, duplicate free
// list of file paths.
func (h *Hasher) Resolve(dir string, refs []string) ([]string, error) {
	var paths []string
	for _, ref := range refs {
		pattern := path.Join(dir, ref)
		if !isPattern(ref) {
			info, err := fs.Stat(h.fsys, pattern)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil, &InputError{Ref: ref, Err: ErrNoMatch}
				}
				return nil, &InputError{Ref: ref, Err: err}
			}
			if info.IsDir() {
				return nil, &InputError{Ref: ref, Err: errors.New("is a directory")}
			}
			paths = append(paths, pattern)
			continue
		}

		matches, err := doublestar.Glob(h.fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, &InputError{Ref: ref, Err: err}
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}

// Part returns the content fingerprint of a declared part of decl.
func (h *Hasher) Part(ctx context.Context, decl *model.Declaration, part model.PartDecl) (string, error) {
	dir := decl.Dir
	if dir == "" {
		dir = "."
	}
	kind := part.Kind
	if kind == "" {
		kind = model.DefaultPartKind
	}

	paths, err := h.Resolve(dir, part.Inputs)
	if err != nil {
		var inErr *InputError
		if errors.As(err, &inErr) {
			inErr.Unit, inErr.Part = decl.Name, part.Name
		}
		return "", err
	}

	sum := sha256.New()
	writeField(sum, "part")
	writeField(sum, kind)
	writeField(sum, part.Name)
	for _, p := range paths {
		digest, err := h.fileDigest(p)
		if err != nil {
			return "", &InputError{Unit: decl.Name, Part: part.Name, Ref: p, Err: err}
		}
		writeField(sum, strings.TrimPrefix(p, dir+"/"))
		writeField(sum, digest)
	}

	ctxlog.FromContext(ctx).Debug("Fingerprinted part.", "unit", decl.Name, "part", part.Name, "inputs", len(paths))
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// Unit fingerprints every part of decl, keyed by part name.
func (h *Hasher) Unit(ctx context.Context, decl *model.Declaration) (map[string]string, error) {
	out := make(map[string]string, len(decl.Parts))
	for _, part := range decl.Parts {
		fp, err := h.Part(ctx, decl, part)
		if err != nil {
			return nil, err
		}
		out[part.Name] = fp
	}
	return out, nil
}

// fileDigest hashes one file, reusing the previous digest while its size
// and modification time are unchanged.
func (h *Hasher) fileDigest(name string) (string, error) {
	info, err := fs.Stat(h.fsys, name)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s|%d|%d", name, info.Size(), info.ModTime().UnixNano())
	if digest, ok := h.cache.Get(key); ok {
		return digest, nil
	}

	data, err := fs.ReadFile(h.fsys, name)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	h.cache.Add(key, digest)
	return digest, nil
}

// CachedDigests returns how many file digests are currently memoised.
func (h *Hasher) CachedDigests() int { return h.cache.Len() }

func isPattern(ref string) bool {
	return strings.ContainsAny(ref, "*?[{")
}

func writeField(h hash.Hash, s string) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
	h.Write(lenBuf[:])
	h.Write([]byte(s))
}
