package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maxsimdb/maxsimdb/pkg/schema"
)

// fieldSpec is one field declaration in a schema YAML file, the
// human-editable counterpart to schema.Field passed to `create`.
type fieldSpec struct {
	Name            string   `yaml:"name"`
	Type            string   `yaml:"type"`
	Role            []string `yaml:"role"`
	Dimensions      int      `yaml:"dimensions"`
	Quantization    string   `yaml:"quantization"`
	NumCentroids    int      `yaml:"num_centroids"`
	TrainIterations int      `yaml:"train_iterations"`
	PQSubvectors    int      `yaml:"pq_subvectors"`
	BitsPerCode     int      `yaml:"bits_per_code"`
}

type schemaFile struct {
	Fields []fieldSpec `yaml:"fields"`
}

// loadSchemaFile reads a YAML schema declaration and builds a
// schema.Schema, validating it via schema.New (§3).
func loadSchemaFile(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file %s: %w", path, err)
	}

	var parsed schemaFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse schema file %s: %w", path, err)
	}

	fields := make([]schema.Field, 0, len(parsed.Fields))
	for _, fs := range parsed.Fields {
		ft, err := parseFieldType(fs.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fs.Name, err)
		}
		role, err := parseRole(fs.Role)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fs.Name, err)
		}
		qk, err := parseQuantization(fs.Quantization)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fs.Name, err)
		}

		fields = append(fields, schema.Field{
			Name: fs.Name,
			Type: ft,
			Role: role,
			Params: schema.Params{
				Dimensions:      fs.Dimensions,
				Quantization:    qk,
				NumCentroids:    fs.NumCentroids,
				TrainIterations: fs.TrainIterations,
				PQSubvectors:    fs.PQSubvectors,
				BitsPerCode:     fs.BitsPerCode,
			},
		})
	}

	return schema.New(fields)
}

func parseFieldType(s string) (schema.FieldType, error) {
	switch s {
	case "integer":
		return schema.FieldTypeInteger, nil
	case "float":
		return schema.FieldTypeFloat, nil
	case "text":
		return schema.FieldTypeText, nil
	case "datetime":
		return schema.FieldTypeDatetime, nil
	case "tensor":
		return schema.FieldTypeTensor, nil
	case "quantized_tensor":
		return schema.FieldTypeQuantizedTensor, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", s)
	}
}

func parseRole(roles []string) (schema.Role, error) {
	var out schema.Role
	for _, r := range roles {
		switch r {
		case "indexed":
			out |= schema.RoleIndexed
		case "stored":
			out |= schema.RoleStored
		case "context":
			out |= schema.RoleContext
		default:
			return 0, fmt.Errorf("unknown role %q", r)
		}
	}
	return out, nil
}

func parseQuantization(s string) (schema.QuantizationKind, error) {
	switch s {
	case "", "none":
		return schema.QuantizationNone, nil
	case "binarizer":
		return schema.QuantizationBinarizer, nil
	case "pq":
		return schema.QuantizationPQ, nil
	default:
		return 0, fmt.Errorf("unknown quantization kind %q", s)
	}
}
