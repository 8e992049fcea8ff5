package codec

// StringCodec is a variable-width codec for string keys and values.
type StringCodec struct{}

func (StringCodec) Width() int            { return -1 }
func (StringCodec) Encode(v string) []byte { return []byte(v) }
func (StringCodec) Decode(b []byte) string { return string(b) }

// BytesCodec is a variable-width codec for raw byte-slice keys and values.
type BytesCodec struct{}

func (BytesCodec) Width() int { return -1 }
func (BytesCodec) Encode(v []byte) []byte {
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp
}
func (BytesCodec) Decode(b []byte) []byte {
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
