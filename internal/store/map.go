// Package store implements the compressed in-memory dictionary map (C1):
// a word -> definition table that batches entries into blocks, compresses
// each block with zstd once it grows past a threshold, and answers exact
// and prefix lookups by decompressing at most one block per hit.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/joshuafuller/dictd/internal/dicterrors"
)

const (
	targetBlockBytes   = 128 * 1024 // payload bytes before a block is compressed
	targetBlockEntries = 1024       // entries before a block is compressed
	defaultLRUBlocks   = 16
)

type location struct {
	blockID int
	offset  int
	length  int
}

type indexEntry struct {
	word string // original head-word bytes, as ingested
	loc  location
}

// Map is a word -> definition table with block-level zstd compression.
// Safe for concurrent readers once Finalize has returned; Insert/Extend
// must not be called concurrently with each other (ingest is single-writer
// per dictionary, see internal/ingest).
type Map struct {
	mu      sync.Mutex
	frozen  bool
	builder *blockBuilder
	blocks  [][]byte // compressed block payloads, indexed by blockID

	index      map[string]*indexEntry // normalized key -> entry
	sortedKeys []string                // built at Finalize, ascending byte order

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	cache   *blockLRU
}

// Option configures a Map at construction time.
type Option func(*Map)

// WithLRUSize overrides the number of decompressed blocks kept resident.
func WithLRUSize(n int) Option {
	return func(m *Map) { m.cache = newBlockLRU(n) }
}

// WithCompressionLevel selects the zstd compression level used for block
// payloads. Defaults to level 7, matching the spec's default for payload
// compression.
func WithCompressionLevel(level zstd.EncoderLevel) Option {
	return func(m *Map) {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if err == nil {
			m.encoder = enc
		}
	}
}

// New creates an empty, writable Map.
func New(opts ...Option) *Map {
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(7)))
	dec, _ := zstd.NewReader(nil)

	m := &Map{
		builder: newBlockBuilder(),
		index:   make(map[string]*indexEntry),
		encoder: enc,
		decoder: dec,
		cache:   newBlockLRU(defaultLRUBlocks),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Entry is one (word, definition) pair as accepted by Extend.
type Entry struct {
	Word       string
	Definition []byte
}

// Insert appends a single entry to the currently open block. Duplicate
// words (after normalization) overwrite the earlier index slot; the later
// insertion wins.
func (m *Map) Insert(word string, definition []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(word, definition)
}

// Extend inserts a batch atomically with respect to concurrent readers:
// since readers never observe a Map before Finalize has published it, a
// single lock acquisition for the whole batch is sufficient.
func (m *Map) Extend(batch []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range batch {
		if err := m.insertLocked(e.Word, e.Definition); err != nil {
			return err
		}
	}
	return nil
}

func (m *Map) insertLocked(word string, definition []byte) error {
	if m.frozen {
		return &dicterrors.FatalError{
			Operation: "insert",
			Err:       errors.New("compressed map is frozen"),
		}
	}

	blockID := len(m.blocks)
	offset, length := m.builder.append(word, definition)

	m.index[normalize(word)] = &indexEntry{
		word: word,
		loc:  location{blockID: blockID, offset: offset, length: length},
	}

	if m.builder.full() {
		if err := m.flushLocked(); err != nil {
			return &dicterrors.FatalError{Operation: "compress block", Err: err}
		}
	}
	return nil
}

func (m *Map) flushLocked() error {
	if m.builder.empty() {
		return nil
	}
	compressed := m.encoder.EncodeAll(m.builder.buf, nil)
	m.blocks = append(m.blocks, compressed)
	m.builder = newBlockBuilder()
	return nil
}

// Finalize closes all open blocks and freezes the map. Calling Finalize on
// an already-finalized map is a no-op that returns success.
func (m *Map) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return nil
	}

	if err := m.flushLocked(); err != nil {
		return &dicterrors.FatalError{Operation: "finalize", Err: err}
	}

	m.sortedKeys = make([]string, 0, len(m.index))
	for k := range m.index {
		m.sortedKeys = append(m.sortedKeys, k)
	}
	sort.Strings(m.sortedKeys)

	m.frozen = true
	return nil
}

// Get performs an exact lookup by byte equality after ASCII-only case
// folding. Lookups never panic on malformed block data; on decompression
// failure they simply report no match.
func (m *Map) Get(word string) (string, bool) {
	entry, ok := m.index[normalize(word)]
	if !ok {
		return "", false
	}
	def, err := m.readDefinition(entry.loc)
	if err != nil {
		return "", false
	}
	return string(def), true
}

// ExactWord reports whether word (after normalization) is present and, if
// so, returns the original head-word bytes as ingested. Used by MATCH's
// EXACT strategy, which reports the matched word rather than its
// definition.
func (m *Map) ExactWord(word string) (string, bool) {
	entry, ok := m.index[normalize(word)]
	if !ok {
		return "", false
	}
	return entry.word, true
}

// PrefixFind returns up to limit head-words (original case, as ingested)
// whose normalized form begins with the normalized prefix, in ascending
// byte order.
func (m *Map) PrefixFind(word string, limit int) []string {
	prefix := normalize(word)

	keys := m.sortedKeys
	if keys == nil {
		// Finalize has not run yet; fall back to an on-demand sort so the
		// method never panics, even though normal operation always calls
		// this after the dictionary is frozen and published.
		keys = make([]string, 0, len(m.index))
		for k := range m.index {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	start := sort.SearchStrings(keys, prefix)
	var out []string
	for i := start; i < len(keys) && len(out) < limit; i++ {
		if !hasBytePrefix(keys[i], prefix) {
			break
		}
		out = append(out, m.index[keys[i]].word)
	}
	return out
}

func (m *Map) readDefinition(loc location) ([]byte, error) {
	if payload, ok := m.cache.get(loc.blockID); ok {
		return sliceDefinition(payload, loc)
	}

	if loc.blockID < 0 || loc.blockID >= len(m.blocks) {
		return nil, fmt.Errorf("block %d out of range", loc.blockID)
	}
	payload, err := m.decoder.DecodeAll(m.blocks[loc.blockID], nil)
	if err != nil {
		return nil, fmt.Errorf("decompress block %d: %w", loc.blockID, err)
	}
	m.cache.put(loc.blockID, payload)
	return sliceDefinition(payload, loc)
}

func sliceDefinition(payload []byte, loc location) ([]byte, error) {
	if loc.offset < 0 || loc.offset+loc.length > len(payload) {
		return nil, fmt.Errorf("definition at offset %d length %d out of range (payload %d bytes)",
			loc.offset, loc.length, len(payload))
	}
	return payload[loc.offset : loc.offset+loc.length], nil
}

func hasBytePrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// normalize lowercases ASCII bytes; non-ASCII bytes pass through unchanged.
// This is the exact byte-level case folding the spec requires for EXACT and
// PREFIX matching — never Unicode normalization.
func normalize(word string) string {
	b := []byte(word)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return word
	}
	return string(b)
}
