package codec

import (
	"encoding/binary"
	"io"
	"math"

	eng "github.com/maxsimdb/maxsimdb/internal/errors"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
)

// Encode serializes a NoopCodec as just its dimensionality — it holds
// no learned state.
func (c *NoopCodec) Encode(w io.Writer) error {
	return writeU32(w, uint32(c.dimensions))
}

// Encode serializes a BinarizerCodec per §6's wire format:
// (nbits u8, D u32, cutoffs f32[nbits·D], weights f32[nbits·D], avg_residual f32).
func (c *BinarizerCodec) Encode(w io.Writer) error {
	if _, err := w.Write([]byte{byte(c.nbits)}); err != nil {
		return err
	}
	if err := writeU32(w, uint32(c.dimensions)); err != nil {
		return err
	}
	for _, x := range c.cutoffs {
		if err := writeU32(w, math.Float32bits(x)); err != nil {
			return err
		}
	}
	for _, x := range c.weights {
		if err := writeU32(w, math.Float32bits(x)); err != nil {
			return err
		}
	}
	return writeU32(w, math.Float32bits(c.avgResidual))
}

// Encode serializes a PQCodec per §6's wire format:
// (M u8, nbits u8, D u32, subcentroids f32[M · 2^nbits · (D/M)]).
func (c *PQCodec) Encode(w io.Writer) error {
	if _, err := w.Write([]byte{byte(c.subvectors), byte(c.nbits)}); err != nil {
		return err
	}
	if err := writeU32(w, uint32(c.dimensions)); err != nil {
		return err
	}
	for _, sub := range c.centroids {
		for _, row := range sub {
			for _, x := range row {
				if err := writeU32(w, math.Float32bits(x)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Load deserializes the codec blob written by Encode, dispatching on
// kind (carried by the field's schema, not by the blob itself — the
// wire formats of §6 carry no type tag of their own).
func Load(r io.Reader, kind schema.QuantizationKind, dimensions int) (Codec, error) {
	switch kind {
	case schema.QuantizationNone:
		d, err := readU32(r)
		if err != nil {
			return nil, eng.StorageError("read noop codec", err)
		}
		return NewNoopCodec(int(d)), nil

	case schema.QuantizationBinarizer:
		nbitsBuf := make([]byte, 1)
		if _, err := io.ReadFull(r, nbitsBuf); err != nil {
			return nil, eng.StorageError("read binarizer header", err)
		}
		nbits := int(nbitsBuf[0])
		d, err := readU32(r)
		if err != nil {
			return nil, eng.StorageError("read binarizer header", err)
		}
		dims := int(d)
		cutoffs := make([]float32, dims*nbits)
		if err := readFloats(r, cutoffs); err != nil {
			return nil, eng.StorageError("read binarizer cutoffs", err)
		}
		weights := make([]float32, dims*nbits)
		if err := readFloats(r, weights); err != nil {
			return nil, eng.StorageError("read binarizer weights", err)
		}
		avgBits, err := readU32(r)
		if err != nil {
			return nil, eng.StorageError("read binarizer avg_residual", err)
		}
		return &BinarizerCodec{
			dimensions:  dims,
			nbits:       nbits,
			cutoffs:     cutoffs,
			weights:     weights,
			avgResidual: math.Float32frombits(avgBits),
		}, nil

	case schema.QuantizationPQ:
		header := make([]byte, 2)
		if _, err := io.ReadFull(r, header); err != nil {
			return nil, eng.StorageError("read PQ header", err)
		}
		subvectors := int(header[0])
		nbits := int(header[1])
		d, err := readU32(r)
		if err != nil {
			return nil, eng.StorageError("read PQ header", err)
		}
		dims := int(d)
		subWidth := dims / subvectors
		numCentroids := 1 << uint(nbits)

		centroids := make([][][]float32, subvectors)
		for m := range centroids {
			sub := make([][]float32, numCentroids)
			for i := range sub {
				row := make([]float32, subWidth)
				if err := readFloats(r, row); err != nil {
					return nil, eng.StorageError("read PQ subcentroids", err)
				}
				sub[i] = row
			}
			centroids[m] = sub
		}
		return &PQCodec{
			dimensions: dims,
			subvectors: subvectors,
			nbits:      nbits,
			subWidth:   subWidth,
			centroids:  centroids,
		}, nil

	default:
		return nil, eng.InvalidSchema("unknown quantization kind on load", nil)
	}
}

func readFloats(r io.Reader, out []float32) error {
	for i := range out {
		bits, err := readU32(r)
		if err != nil {
			return err
		}
		out[i] = math.Float32frombits(bits)
	}
	return nil
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
