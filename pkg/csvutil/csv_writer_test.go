package csvutil

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteHeader([]string{"page", "text"}))
	require.NoError(t, w.WriteRow([]string{"1", "plain, with comma"}))
	require.NoError(t, w.WriteRow([]string{"2", "=HYPERLINK(\"x\")"}))
	require.NoError(t, w.Flush())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"page", "text"},
		{"1", "plain, with comma"},
		{"2", "'=HYPERLINK(\"x\")"},
	}, rows)
}

func TestWriter_RowWidth(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	require.NoError(t, w.WriteHeader([]string{"a", "b"}))

	assert.Error(t, w.WriteRow([]string{"only one"}))
	assert.Error(t, w.WriteHeader([]string{"again"}))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"hello", "hello"},
		{"-12", "'-12"},
		{"+1", "'+1"},
		{"@SUM(A1)", "'@SUM(A1)"},
		{"a=b", "a=b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), tt.in)
	}
}
