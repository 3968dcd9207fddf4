package store

import (
	"encoding/binary"
)

// blockBuilder accumulates (word, definition) pairs into a single growable
// payload buffer before the block is compressed and archived. Each record
// is length-prefixed: a uint32 word length, the word bytes, a uint32
// definition length, then the definition bytes. The word bytes are only
// needed for debugging the raw payload; lookups never need to decode them
// because the sorted key index already carries the offset and length of
// the definition portion of each record.
type blockBuilder struct {
	buf     []byte
	entries int
}

func newBlockBuilder() *blockBuilder {
	return &blockBuilder{buf: make([]byte, 0, targetBlockBytes)}
}

// append writes one record and returns the offset and length of the
// definition bytes within the (still uncompressed) buffer.
func (b *blockBuilder) append(word string, def []byte) (offset, length int) {
	var hdr [4]byte

	binary.BigEndian.PutUint32(hdr[:], uint32(len(word)))
	b.buf = append(b.buf, hdr[:]...)
	b.buf = append(b.buf, word...)

	binary.BigEndian.PutUint32(hdr[:], uint32(len(def)))
	b.buf = append(b.buf, hdr[:]...)
	offset = len(b.buf)
	b.buf = append(b.buf, def...)
	length = len(def)

	b.entries++
	return offset, length
}

// full reports whether the builder has crossed either the payload-size or
// entry-count threshold and should be compressed and archived.
func (b *blockBuilder) full() bool {
	return len(b.buf) >= targetBlockBytes || b.entries >= targetBlockEntries
}

func (b *blockBuilder) empty() bool {
	return b.entries == 0
}
