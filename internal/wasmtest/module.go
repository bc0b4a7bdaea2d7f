// Package wasmtest assembles small WebAssembly contracts for tests.
package wasmtest

const (
	OpUnreachable = 0x00
	OpCall        = 0x10
	OpDrop        = 0x1a
	OpI32Const    = 0x41
	OpI64Const    = 0x42
	OpEnd         = 0x0b
)

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
)

type funcImport struct {
	name            string
	params, results []byte
}

type segment struct {
	offset uint32
	bytes  []byte
}

// Module is a single-function contract: imports from one host module,
// one page of exported memory and a main body.
type Module struct {
	host    string
	imports []funcImport
	data    []segment
	body    []byte

	// NoMain drops the main export.
	NoMain bool
}

// New starts a module importing from the host module named host.
func New(host string) *Module {
	return &Module{host: host}
}

// Import registers a function import and returns its index.
func (m *Module) Import(name string, params, results []byte) uint32 {
	m.imports = append(m.imports, funcImport{name: name, params: params, results: results})
	return uint32(len(m.imports) - 1)
}

// Data places b at offset when the module is instantiated.
func (m *Module) Data(offset uint32, b []byte) *Module {
	m.data = append(m.data, segment{offset: offset, bytes: b})
	return m
}

func (m *Module) I32(v int32) *Module {
	m.body = append(append(m.body, OpI32Const), sleb(int64(v))...)
	return m
}

func (m *Module) I64(v int64) *Module {
	m.body = append(append(m.body, OpI64Const), sleb(v)...)
	return m
}

func (m *Module) Call(idx uint32) *Module {
	m.body = append(append(m.body, OpCall), uleb(uint64(idx))...)
	return m
}

func (m *Module) Op(b byte) *Module {
	m.body = append(m.body, b)
	return m
}

// Bytes encodes the binary module.
func (m *Module) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// one type per import, then main's
	var typesec [][]byte
	for _, imp := range m.imports {
		typesec = append(typesec, funcType(imp.params, imp.results))
	}
	mainType := uint32(len(typesec))
	typesec = append(typesec, funcType(nil, nil))
	out = append(out, section(1, vec(typesec))...)

	var importsec [][]byte
	for i, imp := range m.imports {
		entry := append(name(m.host), name(imp.name)...)
		entry = append(entry, 0x00)
		entry = append(entry, uleb(uint64(i))...)
		importsec = append(importsec, entry)
	}
	if len(importsec) > 0 {
		out = append(out, section(2, vec(importsec))...)
	}

	out = append(out, section(3, vec([][]byte{uleb(uint64(mainType))}))...)
	out = append(out, section(5, vec([][]byte{{0x00, 0x01}}))...)

	exports := [][]byte{append(name("memory"), 0x02, 0x00)}
	if !m.NoMain {
		exports = append(exports, append(append(name("main"), 0x00), uleb(uint64(len(m.imports)))...))
	}
	out = append(out, section(7, vec(exports))...)

	body := append([]byte{0x00}, m.body...)
	body = append(body, OpEnd)
	out = append(out, section(10, vec([][]byte{append(uleb(uint64(len(body))), body...)}))...)

	if len(m.data) > 0 {
		var segs [][]byte
		for _, d := range m.data {
			seg := []byte{0x00, OpI32Const}
			seg = append(seg, sleb(int64(d.offset))...)
			seg = append(seg, OpEnd)
			seg = append(seg, uleb(uint64(len(d.bytes)))...)
			segs = append(segs, append(seg, d.bytes...))
		}
		out = append(out, section(11, vec(segs))...)
	}
	return out
}

func funcType(params, results []byte) []byte {
	t := []byte{0x60}
	t = append(t, uleb(uint64(len(params)))...)
	t = append(t, params...)
	t = append(t, uleb(uint64(len(results)))...)
	return append(t, results...)
}

func section(id byte, payload []byte) []byte {
	return append(append([]byte{id}, uleb(uint64(len(payload)))...), payload...)
}

func vec(items [][]byte) []byte {
	out := uleb(uint64(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
