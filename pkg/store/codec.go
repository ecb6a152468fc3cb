package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Value encodings, stored in the first byte.
const (
	encodingRaw byte = iota
	encodingLZ4
)

// maxLZ4Ratio bounds how far an LZ4 block can expand; a length header
// beyond it is corrupt.
const maxLZ4Ratio = 255

// ErrCorrupt is returned when a stored value cannot be decoded.
var ErrCorrupt = errors.New("corrupt stored value")

// encode marshals v to JSON and compresses it with an LZ4 block. Payloads
// LZ4 cannot shrink are kept raw. Layout: encoding byte, uvarint length of
// the JSON, payload.
func encode(v any) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}

	header := make([]byte, 1+binary.MaxVarintLen64)
	n := binary.PutUvarint(header[1:], uint64(len(plain)))
	header = header[:1+n]

	compressed := make([]byte, lz4.CompressBlockBound(len(plain)))

	written, err := lz4.CompressBlock(plain, compressed, nil)
	if err != nil || written == 0 || written >= len(plain) {
		header[0] = encodingRaw

		return append(header, plain...), nil
	}

	header[0] = encodingLZ4

	return append(header, compressed[:written]...), nil
}

// decode reverses encode into v.
func decode(data []byte, v any) error {
	if len(data) < 2 {
		return ErrCorrupt
	}

	size, n := binary.Uvarint(data[1:])
	if n <= 0 {
		return ErrCorrupt
	}

	payload := data[1+n:]

	var plain []byte

	switch data[0] {
	case encodingRaw:
		plain = payload
	case encodingLZ4:
		if size > uint64(len(payload))*maxLZ4Ratio+16 {
			return fmt.Errorf("%w: length %d exceeds block bound", ErrCorrupt, size)
		}

		plain = make([]byte, size)

		read, err := lz4.UncompressBlock(payload, plain)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		plain = plain[:read]
	default:
		return fmt.Errorf("%w: encoding %d", ErrCorrupt, data[0])
	}

	if uint64(len(plain)) != size {
		return fmt.Errorf("%w: length %d, want %d", ErrCorrupt, len(plain), size)
	}

	err := json.Unmarshal(plain, v)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}
