package util

import (
	"encoding/binary"
	"errors"
	"io"
)

var errNonCanonicalVarInt = errors.New("non-canonical varint")

// WriteVarInt writes val in bitcoin's CompactSize encoding.
func WriteVarInt(w io.Writer, val uint64) error {
	var buf [9]byte
	var n int
	switch {
	case val < 0xfd:
		buf[0] = byte(val)
		n = 1
	case val <= 0xffff:
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(val))
		n = 3
	case val <= 0xffffffff:
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(val))
		n = 5
	default:
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], val)
		n = 9
	}
	_, err := w.Write(buf[:n])
	return err
}

// ReadVarInt reads a CompactSize value and rejects non-minimal encodings.
func ReadVarInt(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, err
	}
	discriminant := buf[0]
	var rv, min uint64
	switch discriminant {
	case 0xff:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return 0, err
		}
		rv = binary.LittleEndian.Uint64(buf[:8])
		min = 0x100000000
	case 0xfe:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return 0, err
		}
		rv = uint64(binary.LittleEndian.Uint32(buf[:4]))
		min = 0x10000
	case 0xfd:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return 0, err
		}
		rv = uint64(binary.LittleEndian.Uint16(buf[:2]))
		min = 0xfd
	default:
		return uint64(discriminant), nil
	}
	if rv < min {
		return 0, errNonCanonicalVarInt
	}
	return rv, nil
}

// WriteVarLenInt writes n in the MSB base-128 encoding bitcoin uses for its
// database records. Each continuation byte carries an implicit +1 so that
// every value has exactly one encoding.
func WriteVarLenInt(w io.Writer, n uint64) error {
	var tmp [10]byte
	l := 0
	for {
		if l == 0 {
			tmp[l] = byte(n & 0x7f)
		} else {
			tmp[l] = byte(n&0x7f) | 0x80
		}
		if n <= 0x7f {
			break
		}
		n = (n >> 7) - 1
		l++
	}
	out := make([]byte, 0, l+1)
	for i := l; i >= 0; i-- {
		out = append(out, tmp[i])
	}
	_, err := w.Write(out)
	return err
}

func ReadVarLenInt(r io.Reader) (uint64, error) {
	var n uint64
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		if n > (^uint64(0) >> 7) {
			return 0, errors.New("ReadVarLenInt: size too large")
		}
		n = (n << 7) | uint64(b[0]&0x7f)
		if b[0]&0x80 == 0 {
			return n, nil
		}
		if n == ^uint64(0) {
			return 0, errors.New("ReadVarLenInt: size too large")
		}
		n++
	}
}
