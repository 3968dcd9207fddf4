// Package transport wires the TCP listener, per-IP connection throttling,
// and the protocol session FSM together into the server's accept loop.
package transport

import "sync"

// lineBufferSize matches the maximum CRLF-terminated line length the
// protocol FSM accepts.
const lineBufferSize = 1024

// linePool reuses read buffers across sessions instead of allocating one
// per connection.
var linePool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, lineBufferSize)
		return &buf
	},
}

// GetLineBuffer returns a pooled lineBufferSize-byte buffer. Callers must
// return it with PutLineBuffer once the session ends.
func GetLineBuffer() *[]byte {
	return linePool.Get().(*[]byte)
}

// PutLineBuffer clears and returns buf to the pool.
func PutLineBuffer(buf *[]byte) {
	b := *buf
	for i := range b {
		b[i] = 0
	}
	linePool.Put(buf)
}
