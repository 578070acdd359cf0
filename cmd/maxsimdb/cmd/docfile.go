package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/maxsimdb/maxsimdb/pkg/engine"
	"github.com/maxsimdb/maxsimdb/pkg/fieldstore"
	"github.com/maxsimdb/maxsimdb/pkg/schema"
)

// docInput is one document as accepted on the CLI's JSON input files
// for `add`/`update`: a document ID, its indexed tensor rows keyed by
// field name, and its scalar field values as raw JSON.
type docInput struct {
	ID      uint64                     `json:"id"`
	Tensors map[string][][]float32     `json:"tensors"`
	Fields  map[string]json.RawMessage `json:"fields"`
}

// loadDocsFile reads a JSON array of docInput from path and converts
// each to an engine.Document using s to interpret scalar field types.
func loadDocsFile(path string, s *schema.Schema) ([]engine.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read docs file %s: %w", path, err)
	}

	var inputs []docInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parse docs file %s: %w", path, err)
	}

	docs := make([]engine.Document, 0, len(inputs))
	for _, in := range inputs {
		fields, err := convertFields(in.Fields, s)
		if err != nil {
			return nil, fmt.Errorf("doc %d: %w", in.ID, err)
		}
		docs = append(docs, engine.Document{ID: in.ID, Tensors: in.Tensors, Fields: fields})
	}
	return docs, nil
}

func convertFields(raw map[string]json.RawMessage, s *schema.Schema) (map[string]fieldstore.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]fieldstore.Value, len(raw))
	for name, msg := range raw {
		f, err := s.MustField(name)
		if err != nil {
			return nil, err
		}

		var v fieldstore.Value
		v.Type = f.Type
		switch f.Type {
		case schema.FieldTypeInteger:
			if err := json.Unmarshal(msg, &v.Integer); err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
		case schema.FieldTypeFloat:
			if err := json.Unmarshal(msg, &v.Float); err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
		case schema.FieldTypeText:
			if err := json.Unmarshal(msg, &v.Text); err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
		case schema.FieldTypeDatetime:
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			v.Datetime = t
		default:
			return nil, fmt.Errorf("field %q: not a scalar field", name)
		}
		out[name] = v
	}
	return out, nil
}

// sampleInput is one training sample on the CLI's JSON input file for
// `train`: indexed tensor rows keyed by field name.
type sampleInput struct {
	Tensors map[string][][]float32 `json:"tensors"`
}

// loadSamplesFile reads a JSON array of sampleInput from path.
func loadSamplesFile(path string) ([]engine.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read samples file %s: %w", path, err)
	}

	var inputs []sampleInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parse samples file %s: %w", path, err)
	}

	samples := make([]engine.Sample, len(inputs))
	for i, in := range inputs {
		samples[i] = engine.Sample{Tensors: in.Tensors}
	}
	return samples, nil
}

// loadQueryFile reads a JSON array of token rows ([][]float32) from path.
func loadQueryFile(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query file %s: %w", path, err)
	}
	var q [][]float32
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("parse query file %s: %w", path, err)
	}
	return q, nil
}
