package prompt_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tac2ar/internal/prompt"
)

func TestIsAffirmative(t *testing.T) {
	yes := []string{"y", "Y", "yes", "YES", "Yes", "s", "S", "si", "SI", "  y  ", "si\n", "yes\r\n"}
	no := []string{"", "n", "no", "N", "nope", "yess", "sì", "ok", "1", "true", "y y"}

	for _, a := range yes {
		assert.True(t, prompt.IsAffirmative(a), "%q should be affirmative", a)
	}
	for _, a := range no {
		assert.False(t, prompt.IsAffirmative(a), "%q should not be affirmative", a)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("tty gone") }

func TestConfirm(t *testing.T) {
	tests := map[string]struct {
		in     func() *strings.Reader
		expYes bool
	}{
		"A yes answer should confirm": {
			in:     func() *strings.Reader { return strings.NewReader("y\n") },
			expYes: true,
		},

		"An answer without trailing newline should be read": {
			in:     func() *strings.Reader { return strings.NewReader("si") },
			expYes: true,
		},

		"Only the first line should be considered": {
			in:     func() *strings.Reader { return strings.NewReader("n\ny\n") },
			expYes: false,
		},

		"Empty input should be a no": {
			in:     func() *strings.Reader { return strings.NewReader("") },
			expYes: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer

			got, err := prompt.Confirm(test.in(), &out, "Run it?")
			require.NoError(t, err)

			assert.Equal(t, test.expYes, got)
			assert.Equal(t, "Run it? [y/N]\n", out.String())
		})
	}
}

func TestConfirmReadError(t *testing.T) {
	_, err := prompt.Confirm(errReader{}, &bytes.Buffer{}, "Run it?")
	assert.Error(t, err)
}
