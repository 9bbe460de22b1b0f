package source

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes sheets (name -> rows) into an in-memory .xlsx.
func buildWorkbook(t *testing.T, names []string, sheets map[string][][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range names {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestWorkbookReadsSheetsInOrder(t *testing.T) {
	header := []any{"ID", "Full Name", "Full Name of Child 1", "Age of Child 1"}
	buf := buildWorkbook(t, []string{"First Service", "Notes", "Second Service"}, map[string][][]any{
		"First Service": {
			header,
			{101, "Ada Obi", "Tobi", 6},
			{102, "Chi Eze", "", ""},
		},
		"Notes": {
			{"Remember to print badges"},
		},
		"Second Service": {
			header,
			{101, "Ada Obi", "Tobi", 6},
		},
	})

	wb, err := ReadWorkbook(buf, "ID", "Full Name")
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"First Service", "Notes", "Second Service"}, wb.Sheets())

	rows := collect(t, wb)
	require.Len(t, rows, 3, "sheet without the header is skipped")

	assert.Equal(t, "First Service", rows[0].Sheet)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "101", rows[0].Get("ID"))
	assert.Equal(t, "6", rows[0].Get("Age of Child 1"))

	assert.Equal(t, "Chi Eze", rows[1].Get("Full Name"))
	assert.Equal(t, "Second Service", rows[2].Sheet)
}

func TestReadWorkbookRejectsGarbage(t *testing.T) {
	_, err := ReadWorkbook(bytes.NewReader([]byte("not a zip")))
	assert.Error(t, err)
}
