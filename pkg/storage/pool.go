package storage

import "sync"

const pipeBufferSize = 32 * 1024

var bufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, pipeBufferSize)
		return &b
	},
}
