package eval

import (
	"encoding/binary"
	"math"
	"math/big"

	"tlog.app/go/errors"

	"cirlower/ir"
	"cirlower/llvm"
)

// Memory is a flat little endian byte addressed memory.  Allocations are never
// freed.  The first bytes are reserved so that no allocation lives at the null
// address.
type Memory struct {
	dl   *llvm.DataLayout
	data []byte
}

// reservedBytes is the size of the reserved area at address zero.
const reservedBytes = 16

// NewMemory creates an empty memory for the given data layout.
func NewMemory(dl *llvm.DataLayout) *Memory {
	return &Memory{dl: dl, data: make([]byte, reservedBytes)}
}

// Alloc reserves size zeroed bytes aligned to align and returns their address.
func (m *Memory) Alloc(size, align uint64) uint64 {
	if align == 0 {
		align = 1
	}

	addr := (uint64(len(m.data)) + align - 1) / align * align
	if size == 0 {
		size = 1
	}

	m.data = append(m.data, make([]byte, addr+size-uint64(len(m.data)))...)
	return addr
}

func (m *Memory) bytes(addr, size uint64) ([]byte, error) {
	if addr < reservedBytes {
		return nil, errors.New("access to null address %#x", addr)
	}

	if addr+size > uint64(len(m.data)) {
		return nil, errors.New("out of bounds access of %d bytes at %#x", size, addr)
	}

	return m.data[addr : addr+size], nil
}

// Load reads a value of type typ at addr.  Only the store size of typ is
// read, which excludes its tail padding.
func (m *Memory) Load(typ ir.Type, addr uint64) (Value, error) {
	buf, err := m.bytes(addr, m.dl.StoreSize(typ))
	if err != nil {
		return nil, err
	}

	return m.decode(typ, buf)
}

// Store writes v, of type typ, at addr.  The tail padding of typ is left
// untouched.
func (m *Memory) Store(typ ir.Type, v Value, addr uint64) error {
	buf, err := m.bytes(addr, m.dl.StoreSize(typ))
	if err != nil {
		return err
	}

	return m.encode(typ, v, buf)
}

// -----------------------------------------------------------------------------

// encode writes the in-memory form of v into buf, which spans the allocation
// size of typ.
func (m *Memory) encode(typ ir.Type, v Value, buf []byte) error {
	switch t := typ.(type) {
	case *llvm.IntType:
		switch iv := v.(type) {
		case Int:
			putUint(buf[:(t.Width+7)/8], iv.Bits)
			return nil
		case Wide:
			putBig(buf[:(t.Width+7)/8], iv.X)
			return nil
		}
	case *llvm.FloatType:
		fv, ok := v.(Float)
		if !ok {
			break
		}

		switch t.Width() {
		case 32:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(fv.Value)))
			return nil
		case 64:
			binary.LittleEndian.PutUint64(buf, math.Float64bits(fv.Value))
			return nil
		}

		return errors.New("unsupported float format in memory: %s", t.Repr())
	case *llvm.PointerType:
		pv, ok := v.(Ptr)
		if !ok {
			break
		}

		putUint(buf[:m.dl.PointerWidth/8], pv.Addr)
		return nil
	case *llvm.ArrayType:
		return m.encodeElems(t.Elem, v, buf)
	case *llvm.VectorType:
		return m.encodeElems(t.Elem, v, buf)
	case *llvm.StructType:
		av, ok := v.(Agg)
		if !ok || len(av.Elems) != len(t.Fields) {
			break
		}

		for i, f := range t.Fields {
			off := m.dl.FieldOffset(t, i)
			if err := m.encode(f, av.Elems[i], buf[off:off+m.dl.TypeSize(f)]); err != nil {
				return err
			}
		}

		return nil
	}

	return errors.New("cannot store %s as %s", v, typ.Repr())
}

func (m *Memory) encodeElems(elem ir.Type, v Value, buf []byte) error {
	av, ok := v.(Agg)
	if !ok {
		return errors.New("cannot store %s as a sequence", v)
	}

	size := m.dl.TypeSize(elem)
	if uint64(len(av.Elems))*size > uint64(len(buf)) {
		return errors.New("unsupported packed sequence of %s in memory", elem.Repr())
	}

	for i, e := range av.Elems {
		off := uint64(i) * size
		if err := m.encode(elem, e, buf[off:off+size]); err != nil {
			return err
		}
	}

	return nil
}

// decode reads a value of type typ from buf.
func (m *Memory) decode(typ ir.Type, buf []byte) (Value, error) {
	switch t := typ.(type) {
	case *llvm.IntType:
		if t.Width > 64 {
			return MakeWide(t.Width, getBig(buf[:(t.Width+7)/8])), nil
		}

		return Int{Width: t.Width, Bits: truncate(getUint(buf[:(t.Width+7)/8]), t.Width)}, nil
	case *llvm.FloatType:
		switch t.Width() {
		case 32:
			return MakeFloat(32, float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))), nil
		case 64:
			return MakeFloat(64, math.Float64frombits(binary.LittleEndian.Uint64(buf))), nil
		}
	case *llvm.PointerType:
		return Ptr{Addr: getUint(buf[:m.dl.PointerWidth/8])}, nil
	case *llvm.ArrayType:
		return m.decodeElems(t.Elem, t.Len, buf)
	case *llvm.VectorType:
		return m.decodeElems(t.Elem, t.Len, buf)
	case *llvm.StructType:
		elems := make([]Value, len(t.Fields))
		for i, f := range t.Fields {
			off := m.dl.FieldOffset(t, i)
			ev, err := m.decode(f, buf[off:off+m.dl.TypeSize(f)])
			if err != nil {
				return nil, err
			}

			elems[i] = ev
		}

		return Agg{Elems: elems}, nil
	}

	return nil, errors.New("cannot load a value of type %s", typ.Repr())
}

func (m *Memory) decodeElems(elem ir.Type, n uint64, buf []byte) (Value, error) {
	size := m.dl.TypeSize(elem)
	if n*size > uint64(len(buf)) {
		return nil, errors.New("unsupported packed sequence of %s in memory", elem.Repr())
	}

	elems := make([]Value, n)
	for i := range elems {
		off := uint64(i) * size
		ev, err := m.decode(elem, buf[off:off+size])
		if err != nil {
			return nil, err
		}

		elems[i] = ev
	}

	return Agg{Elems: elems}, nil
}

func putUint(buf []byte, x uint64) {
	for i := range buf {
		buf[i] = byte(x >> (8 * i))
	}
}

func getUint(buf []byte) uint64 {
	var x uint64
	for i, b := range buf {
		x |= uint64(b) << (8 * i)
	}

	return x
}

// putBig writes the non-negative x little endian into buf.
func putBig(buf []byte, x *big.Int) {
	be := x.FillBytes(make([]byte, len(buf)))
	for i, b := range be {
		buf[len(buf)-1-i] = b
	}
}

func getBig(buf []byte) *big.Int {
	be := make([]byte, len(buf))
	for i, b := range buf {
		be[len(buf)-1-i] = b
	}

	return new(big.Int).SetBytes(be)
}
