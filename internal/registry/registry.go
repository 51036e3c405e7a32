// Package registry converts the shader registry from its YAML source into the
// JSON file Blender's pipeline script reads.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/utils/file"
)

// ConverterConfig is the configuration for the YAML to JSON converter.
type ConverterConfig struct {
	// Indent used for the JSON output, defaults to 4 spaces.
	Indent string
	Logger log.Logger
}

func (c *ConverterConfig) defaults() error {
	if c.Indent == "" {
		c.Indent = "    "
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "registry.YAMLToJSON"})
	return nil
}

// YAMLToJSON converts YAML registry files to JSON.
type YAMLToJSON struct {
	indent string
	logger log.Logger
}

// NewYAMLToJSON returns a new converter.
func NewYAMLToJSON(cfg ConverterConfig) (*YAMLToJSON, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &YAMLToJSON{indent: cfg.Indent, logger: cfg.Logger}, nil
}

// Convert reads the YAML file at src and writes the JSON version at dst.
// Every failure wraps model.ErrConversion.
func (c *YAMLToJSON) Convert(ctx context.Context, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("could not read registry %s: %w: %w", src, err, model.ErrConversion)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("could not parse registry %s: %w: %w", src, err, model.ErrConversion)
	}
	if doc == nil {
		return fmt.Errorf("registry %s is empty: %w", src, model.ErrConversion)
	}

	normalized, err := jsonCompatible(doc)
	if err != nil {
		return fmt.Errorf("registry %s: %w: %w", src, err, model.ErrConversion)
	}

	out, err := json.MarshalIndent(normalized, "", c.indent)
	if err != nil {
		return fmt.Errorf("could not encode registry: %w: %w", err, model.ErrConversion)
	}
	out = append(out, '\n')

	if err := file.WriteFile(dst, out); err != nil {
		return fmt.Errorf("%w: %w", err, model.ErrConversion)
	}

	c.logger.Debugf("Shader registry converted: %s -> %s", src, dst)
	return nil
}

// jsonCompatible turns the YAML decoded values into values encoding/json can
// marshal (YAML allows non string map keys).
func jsonCompatible(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			cv, err := jsonCompatible(v)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			key := fmt.Sprint(k)
			if _, ok := out[key]; ok {
				return nil, fmt.Errorf("duplicated key %q after string conversion", key)
			}
			cv, err := jsonCompatible(v)
			if err != nil {
				return nil, err
			}
			out[key] = cv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			cv, err := jsonCompatible(v)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	default:
		return v, nil
	}
}
