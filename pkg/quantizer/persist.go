package quantizer

import (
	"encoding/binary"
	"io"
	"math"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
)

// Encode serializes t per §6's wire format: (K u32, D u32, data f32[K·D]).
func (t *CentroidTable) Encode(w io.Writer) error {
	if err := writeU32(w, uint32(len(t.Centroids))); err != nil {
		return err
	}
	if err := writeU32(w, uint32(t.Dimensions)); err != nil {
		return err
	}
	for _, c := range t.Centroids {
		for _, x := range c {
			if err := writeU32(w, math.Float32bits(x)); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeCentroidTable deserializes the blob written by Encode.
func DecodeCentroidTable(r io.Reader) (*CentroidTable, error) {
	k, err := readU32(r)
	if err != nil {
		return nil, eng.StorageError("read centroid table header", err)
	}
	d, err := readU32(r)
	if err != nil {
		return nil, eng.StorageError("read centroid table header", err)
	}

	centroids := make([][]float32, k)
	for i := range centroids {
		row := make([]float32, d)
		for j := range row {
			bits, err := readU32(r)
			if err != nil {
				return nil, eng.StorageError("read centroid table data", err)
			}
			row[j] = math.Float32frombits(bits)
		}
		centroids[i] = row
	}
	return &CentroidTable{Dimensions: int(d), Centroids: centroids}, nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}
