package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testCodec = Codec{Delimiter: "\t", ListDelimiter: "|", Quote: "'"}

func TestCodec_EncodeField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"with\ttab", "'with\ttab'"},
		{"it's", "'it''s'"},
		{"two\nlines", "'two\nlines'"},
		{"a|b", "a|b"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, testCodec.EncodeField(tt.in))
		})
	}
}

func TestCodec_ListRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		want  string
	}{
		{"simple", []string{"a", "b", "c"}, "a|b|c"},
		{"embedded delimiter", []string{"a|b", "c"}, `a\|b|c`},
		{"escape char", []string{`c\d`}, `c\\d`},
		{"trailing escape", []string{`x\`, "y"}, `x\\|y`},
		{"single", []string{"only"}, "only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := testCodec.EncodeList(tt.items)
			assert.Equal(t, tt.want, encoded)
			assert.Equal(t, tt.items, testCodec.DecodeList(encoded))
		})
	}
	assert.Nil(t, testCodec.DecodeList(""))
}

func TestCodec_SplitRecord(t *testing.T) {
	fields := []string{"id", "it's\there", "", "a|b", "'quoted'"}
	line := testCodec.EncodeRecord(fields)
	assert.Equal(t, fields, testCodec.SplitRecord(line))
}
