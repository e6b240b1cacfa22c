package histdb

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

// EncodeOccupancy gzips the flat occupancy counters as little-endian uint32.
func EncodeOccupancy(counts []uint32) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := binary.Write(zw, binary.LittleEndian, counts); err != nil {
		return nil, fmt.Errorf("encode occupancy: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("encode occupancy: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeOccupancy reverses EncodeOccupancy.
func DecodeOccupancy(blob []byte) ([]uint32, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decode occupancy: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decode occupancy: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("decode occupancy: %d bytes is not a multiple of 4", len(raw))
	}
	counts := make([]uint32, len(raw)/4)
	for i := range counts {
		counts[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return counts, nil
}
