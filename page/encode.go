package page

import "encoding/binary"

const (
	pageTypeMask  = uint16(0x8000)
	numCellsMask  = uint16(0x7FFF)
	fixedHeaderSz = 6
	varHeaderSz   = 2
)

// Encode serializes the page into exactly BlockSize bytes, zero-filling the
// unused middle region. It panics if the page somehow holds more cells than
// the 15-bit count field can represent (unreachable given AddCell's space
// accounting, but asserted anyway).
func (p *Page[K, V]) Encode() []byte {
	if p.NumCells() >= 1<<15 {
		panic(overflowErr(p.NumCells()))
	}

	buf := make([]byte, BlockSize)
	header := uint16(p.NumCells()) & numCellsMask

	var offsetTableStart int
	switch p.typ {
	case Fixed:
		binary.LittleEndian.PutUint16(buf[0:2], header)
		binary.LittleEndian.PutUint16(buf[2:4], uint16(p.kc.Width()))
		binary.LittleEndian.PutUint16(buf[4:6], uint16(p.vc.Width()+1))
		offsetTableStart = fixedHeaderSz
	case Variable:
		binary.LittleEndian.PutUint16(buf[0:2], header|pageTypeMask)
		offsetTableStart = varHeaderSz
	}

	var offset uint16
	for i, c := range p.cells {
		encoded := p.encodeCell(c)
		offset += uint16(len(encoded))

		slotStart := offsetTableStart + i*2
		binary.LittleEndian.PutUint16(buf[slotStart:slotStart+2], offset)

		cellStart := BlockSize - int(offset)
		copy(buf[cellStart:cellStart+len(encoded)], encoded)
	}

	return buf
}

func (p *Page[K, V]) encodeCell(c cell[K, V]) []byte {
	valueBytes := p.encodeValue(c.value, c.present)

	switch p.typ {
	case Fixed:
		out := make([]byte, 0, p.kc.Width()+len(valueBytes))
		out = append(out, p.kc.Encode(c.key)...)
		out = append(out, valueBytes...)
		return out
	default:
		keyBytes := p.kc.Encode(c.key)
		out := make([]byte, 0, 2+len(keyBytes)+2+len(valueBytes))
		out = appendUint16(out, uint16(len(keyBytes)))
		out = append(out, keyBytes...)
		out = appendUint16(out, uint16(len(valueBytes)))
		out = append(out, valueBytes...)
		return out
	}
}

// encodeValue writes the 1-byte Option discriminant followed by the encoded
// value (absent when present is false). In the Fixed layout the encoded
// value is zero-padded out to vc.Width() bytes so every cell has identical
// size; in the Variable layout it's simply omitted.
func (p *Page[K, V]) encodeValue(v V, present bool) []byte {
	if !present {
		if p.typ == Fixed {
			return make([]byte, 1+p.vc.Width())
		}
		return []byte{0}
	}

	encoded := p.vc.Encode(v)
	out := make([]byte, 0, 1+len(encoded))
	out = append(out, 1)
	out = append(out, encoded...)
	return out
}

func appendUint16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}
