package wire

// Encoder accumulates units into a single buffer.
// The zero value is ready to use.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with room for sizeHint bytes.
func NewEncoder(sizeHint int) *Encoder {
	return &Encoder{buf: make([]byte, 0, sizeHint)}
}

// Int appends an integer unit.
func (enc *Encoder) Int(n int64) *Encoder {
	enc.buf = AppendInt(enc.buf, n)

	return enc
}

// String appends a string unit.
func (enc *Encoder) String(s string) *Encoder {
	enc.buf = AppendString(enc.buf, s)

	return enc
}

// Raw appends bytes that are already a sequence of encoded units.
func (enc *Encoder) Raw(units []byte) *Encoder {
	enc.buf = append(enc.buf, units...)

	return enc
}

// Len returns the number of bytes written so far.
func (enc *Encoder) Len() int {
	return len(enc.buf)
}

// Bytes returns the encoded buffer. The encoder must not be used afterwards
// if the caller retains the slice.
func (enc *Encoder) Bytes() []byte {
	return enc.buf
}

// Reset clears the buffer while keeping its capacity.
func (enc *Encoder) Reset() {
	enc.buf = enc.buf[:0]
}

// Decoder reads units sequentially from a buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder positioned at the start of buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// NewDecoderAt creates a decoder positioned at pos.
func NewDecoderAt(buf []byte, pos int) *Decoder {
	return &Decoder{buf: buf, pos: pos}
}

// Int reads the next integer unit.
func (dec *Decoder) Int() (int64, error) {
	value, next, err := DecodeInt(dec.buf, dec.pos)
	if err != nil {
		return 0, err
	}

	dec.pos = next

	return value, nil
}

// Count reads the next integer unit as a non-negative count. The count is
// bounded by the remaining bytes since every unit takes at least one byte.
func (dec *Decoder) Count() (int, error) {
	pos := dec.pos

	value, err := dec.Int()
	if err != nil {
		return 0, err
	}

	if value < 0 || value > int64(dec.Remaining()) {
		return 0, corrupt(pos, errBadCount)
	}

	return int(value), nil
}

// String reads the next string unit.
func (dec *Decoder) String() (string, error) {
	value, next, err := DecodeString(dec.buf, dec.pos)
	if err != nil {
		return "", err
	}

	dec.pos = next

	return value, nil
}

// Pos returns the offset of the next unread byte.
func (dec *Decoder) Pos() int {
	return dec.pos
}

// Remaining returns the number of unread bytes.
func (dec *Decoder) Remaining() int {
	return len(dec.buf) - dec.pos
}

// Done reports whether the whole buffer has been consumed.
func (dec *Decoder) Done() bool {
	return dec.pos >= len(dec.buf)
}

// Finish returns an error when unread bytes remain.
func (dec *Decoder) Finish() error {
	if !dec.Done() {
		return corrupt(dec.pos, errTrailing)
	}

	return nil
}
