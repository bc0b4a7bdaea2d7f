package memory

// Buffer is a fixed-size linear memory backed by a byte slice.
// It stands in for engine memory when contracts are driven from Go.
type Buffer struct {
	data []byte
}

// NewBuffer allocates a zeroed memory of size bytes.
func NewBuffer(size uint32) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

func (b *Buffer) Size() uint32 {
	return uint32(len(b.data))
}

func (b *Buffer) Read(offset, byteCount uint32) ([]byte, bool) {
	if uint64(offset)+uint64(byteCount) > uint64(len(b.data)) {
		return nil, false
	}
	return b.data[offset : offset+byteCount], true
}

func (b *Buffer) Write(offset uint32, v []byte) bool {
	if uint64(offset)+uint64(len(v)) > uint64(len(b.data)) {
		return false
	}
	copy(b.data[offset:], v)
	return true
}

// Bytes exposes the backing slice.
func (b *Buffer) Bytes() []byte {
	return b.data
}
