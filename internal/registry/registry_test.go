package registry_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/registry"
)

func TestYAMLToJSONConvert(t *testing.T) {
	tests := map[string]struct {
		yaml    string
		missing bool
		expJSON map[string]any
		expErr  bool
	}{
		"A shader registry should be converted": {
			yaml: `
kidney:
  shader: principled
  color: [0.8, 0.2, 0.2, 1.0]
  alpha: 0.9
tumor:
  shader: emission
  strength: 2
`,
			expJSON: map[string]any{
				"kidney": map[string]any{
					"shader": "principled",
					"color":  []any{0.8, 0.2, 0.2, 1.0},
					"alpha":  0.9,
				},
				"tumor": map[string]any{
					"shader":   "emission",
					"strength": float64(2),
				},
			},
		},

		"Non string keys should be stringified": {
			yaml: `
1: organ
true: enabled
`,
			expJSON: map[string]any{
				"1":    "organ",
				"true": "enabled",
			},
		},

		"Invalid YAML should fail": {
			yaml:   "kidney: [unclosed",
			expErr: true,
		},

		"Empty registry should fail": {
			yaml:   "",
			expErr: true,
		},

		"Missing source should fail": {
			missing: true,
			expErr:  true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			dir := t.TempDir()
			src := filepath.Join(dir, "shader_registry.yaml")
			dst := filepath.Join(dir, "tmp", "shader_registry.json")
			if !test.missing {
				require.NoError(os.WriteFile(src, []byte(test.yaml), 0644))
			}

			c, err := registry.NewYAMLToJSON(registry.ConverterConfig{Logger: log.Noop})
			require.NoError(err)

			err = c.Convert(context.Background(), src, dst)

			if test.expErr {
				assert.ErrorIs(err, model.ErrConversion)
				assert.NoFileExists(dst)
				return
			}

			require.NoError(err)
			data, err := os.ReadFile(dst)
			require.NoError(err)

			var got map[string]any
			require.NoError(json.Unmarshal(data, &got))
			assert.Equal(test.expJSON, got)
		})
	}
}
