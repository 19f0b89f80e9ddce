package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatters(t *testing.T) {
	tests := []struct {
		name     string
		format   func(string) string
		contains []string
	}{
		{name: "success", format: FormatSuccess, contains: []string{SuccessIcon, "saved"}},
		{name: "error", format: FormatError, contains: []string{ErrorIcon, "saved"}},
		{name: "warning", format: FormatWarning, contains: []string{WarningIcon, "saved"}},
		{name: "info", format: FormatInfo, contains: []string{InfoIcon, "saved"}},
		{name: "title", format: FormatTitle, contains: []string{LedgerIcon, "saved"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.format("saved")
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Contains(t, FormatAmount(decimal.RequireFromString("12.5")), "12.50")
	assert.Contains(t, FormatAmount(decimal.NewFromInt(-3)), "-3.00")
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
}

func TestRenderBox(t *testing.T) {
	out := RenderBox("Summary", "income 100")
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "income 100")
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTable(&buf, []string{"ID", "Name"}, [][]string{
		{"1", "餐饮"},
		{"2", "交通"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Name")
	assert.Contains(t, lines[1], "----")
	assert.Contains(t, lines[2], "餐饮")
	assert.Contains(t, lines[3], "交通")
}

func TestImportProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewImportProgress(&buf, 4)

	p.Update("category", 1, 4)
	p.Update("category", 2, 4)
	p.Update("transaction", 3, 4)
	assert.Equal(t, 3, p.Done())
	assert.Equal(t, "transaction", p.entity)

	p.Update("bank balance", 4, 4)
	p.Finish()
	assert.Equal(t, 4, p.Done())
	assert.NotEmpty(t, buf.String())
}
