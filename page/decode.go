package page

import (
	"encoding/binary"

	"github.com/flashkv/flashkv/codec"
)

// Decode reconstructs a page from BlockSize bytes previously produced by
// Encode, using kc and vc to decode individual keys and values. The
// resulting page's cells equal the ones that were encoded; SpaceLeft is
// recomputed with the same accounting AddCell uses, so a page that
// round-trips through Encode/Decode reports the same space budget either
// side of the trip.
func Decode[K codec.Ordered, V any](buf []byte, kc codec.Codec[K], vc codec.Codec[V]) *Page[K, V] {
	header := binary.LittleEndian.Uint16(buf[0:2])
	numCells := int(header & numCellsMask)
	isVariable := header&pageTypeMask != 0

	typ := Fixed
	offsetTableStart := fixedHeaderSz
	var keyWidth, valWidth int
	if isVariable {
		typ = Variable
		offsetTableStart = varHeaderSz
	} else {
		keyWidth = int(binary.LittleEndian.Uint16(buf[2:4]))
		valWidth = int(binary.LittleEndian.Uint16(buf[4:6]))
	}

	p := &Page[K, V]{kc: kc, vc: vc, typ: typ, spaceLeft: BlockSize}
	p.cells = make([]cell[K, V], 0, numCells)

	var prevOffset uint16
	for i := 0; i < numCells; i++ {
		slotStart := offsetTableStart + i*2
		offset := binary.LittleEndian.Uint16(buf[slotStart : slotStart+2])

		start := BlockSize - int(offset)
		end := BlockSize - int(prevOffset)
		cellBytes := buf[start:end]

		var c cell[K, V]
		if typ == Fixed {
			c = decodeFixedCell(cellBytes, keyWidth, valWidth, kc, vc)
		} else {
			c = decodeVariableCell(cellBytes, kc, vc)
		}
		p.cells = append(p.cells, c)
		p.spaceLeft -= p.cost(c.key, c.value, c.present)

		prevOffset = offset
	}

	return p
}

func decodeFixedCell[K codec.Ordered, V any](b []byte, keyWidth, valWidth int, kc codec.Codec[K], vc codec.Codec[V]) cell[K, V] {
	key := kc.Decode(b[:keyWidth])
	valueBytes := b[keyWidth : keyWidth+valWidth]

	var value V
	present := valueBytes[0] == 1
	if present {
		value = vc.Decode(valueBytes[1:])
	}
	return cell[K, V]{key: key, value: value, present: present}
}

func decodeVariableCell[K codec.Ordered, V any](b []byte, kc codec.Codec[K], vc codec.Codec[V]) cell[K, V] {
	pos := 0
	keyLen := int(binary.LittleEndian.Uint16(b[pos : pos+2]))
	pos += 2

	key := kc.Decode(b[pos : pos+keyLen])
	pos += keyLen

	valLen := int(binary.LittleEndian.Uint16(b[pos : pos+2]))
	pos += 2

	valueBytes := b[pos : pos+valLen]

	var value V
	present := valueBytes[0] == 1
	if present {
		value = vc.Decode(valueBytes[1:])
	}
	return cell[K, V]{key: key, value: value, present: present}
}
