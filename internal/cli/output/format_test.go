package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "", want: FormatTable},
		{input: "table", want: FormatTable},
		{input: " JSON ", want: FormatJSON},
		{input: "yaml", want: FormatYAML},
		{input: "yml", want: FormatYAML},
		{input: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type shardView struct {
	Token string   `json:"token" yaml:"token"`
	Files []string `json:"files" yaml:"files"`
}

func (s shardView) Headers() []string { return []string{"#", "File"} }
func (s shardView) Rows() [][]string {
	rows := make([][]string, len(s.Files))
	for i, f := range s.Files {
		rows[i] = []string{string(rune('1' + i)), f}
	}
	return rows
}

func TestPrinterPrint(t *testing.T) {
	view := shardView{Token: "001_001_abc", Files: []string{"a.png", "b.png"}}

	t.Run("Table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(view))
		assert.Contains(t, buf.String(), "FILE")
		assert.Contains(t, buf.String(), "b.png")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatJSON, false).Print(view))
		assert.JSONEq(t, `{"token":"001_001_abc","files":["a.png","b.png"]}`, buf.String())
	})

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatYAML, false).Print(view))
		assert.Equal(t, "token: 001_001_abc\nfiles:\n  - a.png\n  - b.png\n", buf.String())
	})

	t.Run("TableFallsBackToJSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(map[string]int{"n": 1}))
		assert.JSONEq(t, `{"n":1}`, buf.String())
	})
}

func TestPrinterStructured(t *testing.T) {
	assert.False(t, NewPrinter(nil, FormatTable, false).Structured())
	assert.True(t, NewPrinter(nil, FormatJSON, false).Structured())
	assert.True(t, NewPrinter(nil, FormatYAML, false).Structured())
}

func TestPrinterMessages(t *testing.T) {
	var plain bytes.Buffer
	NewPrinter(&plain, FormatTable, false).Success("submitted")
	assert.Equal(t, "submitted\n", plain.String())

	var colored bytes.Buffer
	NewPrinter(&colored, FormatTable, true).Error("failed")
	assert.Equal(t, "\033[31mfailed\033[0m\n", colored.String())
}

func TestEncodeJSONKeepsUnicode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, map[string]string{"category": "清洗<a>"}))
	assert.Contains(t, buf.String(), "清洗<a>")
}
