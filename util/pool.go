package util

import "sync"

// RecordBufSize is the largest TLS record plaintext (2^14 bytes).  A
// relay buffer of this size takes a whole decrypted record per Read.
const RecordBufSize = 16 * 1024

var bufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, RecordBufSize)
		return &buf
	},
}

// GetBuf retrieves a record-sized buffer.  Callers must return it with
// [PutBuf] when finished.
func GetBuf() *[]byte {
	return bufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool.  Buffers that were shrunk below
// RecordBufSize are dropped.
func PutBuf(buf *[]byte) {
	if buf == nil || cap(*buf) < RecordBufSize {
		return
	}
	*buf = (*buf)[:RecordBufSize]
	bufPool.Put(buf)
}
