package output

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"TEXT", ModeText},
		{"md", ModeMarkdown},
		{"markdown", ModeMarkdown},
		{"json", ModeJSON},
		{"yaml", ModeAuto},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Mode(tt.in), tt.in)
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	var out, errOut bytes.Buffer

	assert.Equal(t, ModeText, NewRendererWithTTY(&out, &errOut, true, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRendererWithTTY(&out, &errOut, false, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRendererWithTTY(&out, &errOut, true, ModeJSON).EffectiveMode())

	// a buffer is never a terminal
	assert.False(t, NewRenderer(&out, &errOut, ModeAuto).IsTTY())
}

func TestRenderer_MarkdownTable(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeMarkdown)

	r.Header(2, "Nodes")
	r.Table([]string{"Label", "Rows"}, [][]string{{"gene", "2"}, {"disease", "1"}})

	s := out.String()
	assert.Contains(t, s, "## Nodes")
	assert.Contains(t, s, "| Label | Rows |")
	assert.Contains(t, s, "| gene | 2 |")
	assert.NotContains(t, s, "\x1b[")
}

func TestRenderer_TextTable(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeText)

	r.Table([]string{"Label", "Rows"}, [][]string{{"gene", "2"}})
	assert.Contains(t, out.String(), "┌")
	assert.Contains(t, out.String(), "gene")
}

func TestRenderer_Messages(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeText)

	r.Success("build completed")
	r.StatusLine("phenotypes", "failed", "(identity conflict)")
	r.Warning("1 source failed")
	r.Error("export failed")

	assert.Contains(t, out.String(), "✓ build completed")
	assert.Contains(t, out.String(), "✗ phenotypes (identity conflict)")
	assert.Contains(t, errOut.String(), "! 1 source failed")
	assert.Contains(t, errOut.String(), "✗ export failed")
	assert.NotContains(t, out.String()+errOut.String(), "\x1b[")
}

func TestRenderer_JSON(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"gene": 2}))
	assert.JSONEq(t, `{"gene": 2}`, out.String())
}

func TestNewStyles_ColorProfile(t *testing.T) {
	plain := NewStyles(termenv.Ascii)
	assert.Equal(t, "x", plain.Bold.Render("x"))

	colored := NewStyles(termenv.ANSI256)
	assert.Contains(t, colored.Error.Render("x"), "\x1b[")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "# Build", FormatHeader(1, "Build"))
	assert.Equal(t, "### Build", FormatHeader(3, "Build"))
	assert.Equal(t, "- **Status**: completed", FormatKeyValue("Status", "completed"))
	assert.Equal(t, "1 source", FormatCount(1, "source", "sources"))
	assert.Equal(t, "3 sources", FormatCount(3, "source", "sources"))
}
