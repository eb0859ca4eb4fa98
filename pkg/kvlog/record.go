package kvlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Record tags. The tag byte is the first byte of every record.
const (
	tagSet    byte = 0x01
	tagRemove byte = 0x02
)

// Length limits for encoded records. Decode rejects lengths beyond these
// before allocating, so garbage bytes cannot trigger huge allocations.
const (
	maxKeyLen   = 1 << 16 // 64 KiB
	maxValueLen = 1 << 28 // 256 MiB
)

// Record codec errors.
var (
	errInvalidTag   = errors.New("invalid record tag")
	errKeyTooLong   = fmt.Errorf("key exceeds %d bytes", maxKeyLen)
	errValueTooLong = fmt.Errorf("value exceeds %d bytes", maxValueLen)
)

// record is one entry in the log: a write (tagSet) or a tombstone
// (tagRemove). value is empty for tombstones.
type record struct {
	tag   byte
	key   string
	value string
}

// encodeRecord serializes a record:
//
//	tag      1 byte
//	key len  uvarint
//	key      bytes
//	val len  uvarint (tagSet only)
//	value    bytes   (tagSet only)
//
// The format is self-describing and headerless; records decode
// independently given only their start offset.
func encodeRecord(rec record) ([]byte, error) {
	if rec.tag != tagSet && rec.tag != tagRemove {
		return nil, fmt.Errorf("%w: 0x%02x", errInvalidTag, rec.tag)
	}

	if len(rec.key) > maxKeyLen {
		return nil, errKeyTooLong
	}

	if len(rec.value) > maxValueLen {
		return nil, errValueTooLong
	}

	buf := make([]byte, 0, 1+2*binary.MaxVarintLen32+len(rec.key)+len(rec.value))
	buf = append(buf, rec.tag)
	buf = binary.AppendUvarint(buf, uint64(len(rec.key)))
	buf = append(buf, rec.key...)

	if rec.tag == tagSet {
		buf = binary.AppendUvarint(buf, uint64(len(rec.value)))
		buf = append(buf, rec.value...)
	}

	return buf, nil
}

// decodeRecord reads exactly one record from r and reports the number of
// bytes consumed. Any failure (including EOF at the tag byte) means the
// bytes do not form a complete record; consumed bytes are still reported so
// callers can tell how far decoding got.
func decodeRecord(r io.Reader) (record, int64, error) {
	var n int64

	tag, err := readByte(r, &n)
	if err != nil {
		return record{}, n, fmt.Errorf("read tag: %w", err)
	}

	if tag != tagSet && tag != tagRemove {
		return record{}, n, fmt.Errorf("%w: 0x%02x", errInvalidTag, tag)
	}

	key, err := readString(r, &n, maxKeyLen)
	if err != nil {
		return record{}, n, fmt.Errorf("read key: %w", err)
	}

	rec := record{tag: tag, key: key}

	if tag == tagRemove {
		return rec, n, nil
	}

	value, err := readString(r, &n, maxValueLen)
	if err != nil {
		return record{}, n, fmt.Errorf("read value: %w", err)
	}

	rec.value = value

	return rec, n, nil
}

// readByte reads a single byte, advancing the consumed-byte counter.
func readByte(r io.Reader, n *int64) (byte, error) {
	var b [1]byte

	_, err := io.ReadFull(r, b[:])
	if err != nil {
		return 0, err
	}

	*n++

	return b[0], nil
}

// readString reads a uvarint length followed by that many bytes.
func readString(r io.Reader, n *int64, maxLen int) (string, error) {
	length, err := readUvarint(r, n)
	if err != nil {
		return "", err
	}

	if length > uint64(maxLen) {
		return "", fmt.Errorf("length %d exceeds %d bytes", length, maxLen)
	}

	buf := make([]byte, length)

	read, err := io.ReadFull(r, buf)
	*n += int64(read)

	if err != nil {
		return "", err
	}

	return string(buf), nil
}

// readUvarint decodes a uvarint byte by byte so the consumed count stays
// exact. Mirrors [binary.ReadUvarint] without requiring an io.ByteReader.
func readUvarint(r io.Reader, n *int64) (uint64, error) {
	var (
		value uint64
		shift uint
	)

	for i := 0; i < binary.MaxVarintLen64; i++ {
		b, err := readByte(r, n)
		if err != nil {
			return 0, err
		}

		if b < 0x80 {
			if i == binary.MaxVarintLen64-1 && b > 1 {
				return 0, errors.New("uvarint overflows uint64")
			}

			return value | uint64(b)<<shift, nil
		}

		value |= uint64(b&0x7f) << shift
		shift += 7
	}

	return 0, errors.New("uvarint too long")
}
