package audit

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aimhigh31/work-ten-sub018/internal/counter"
)

func TestReadCSV(t *testing.T) {
	data := "id,Code,title\n1,COST-25-001,first\n2,,blank\n3, COST-25-002 ,second\n4\n"
	entries, err := ReadCSV(strings.NewReader(data), "code")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Row: 2, Code: "COST-25-001"}, {Row: 4, Code: "COST-25-002"}}, entries)

	_, err = ReadCSV(strings.NewReader("id,title\n1,x\n"), "")
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader(""), "")
	assert.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "title"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "business_code"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "TASK-24-010"))
	require.NoError(t, f.SetCellValue("Sheet1", "B3", "TASK-24-011"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	entries, err := ReadFile(path, "business_code", "")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Row: 2, Code: "TASK-24-010"}, {Row: 3, Code: "TASK-24-011"}}, entries)

	_, err = ReadFile(path, "business_code", "Missing")
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(t.TempDir(), "codes.txt"), "", "")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	store := counter.NewMemoryStore()
	for i := 0; i < 5; i++ {
		_, err := store.IncrementAndGet(ctx, counter.Key{ModuleType: "COST", Year: 2025})
		require.NoError(t, err)
	}

	entries := []Entry{
		{Row: 2, Code: "COST-25-003"},
		{Row: 3, Code: "COST-25-004"},
		{Row: 4, Code: "MAIN-EDU-25-007"},
		{Row: 5, Code: "MAIN-EDU-25-007"},
		{Row: 6, Code: "bogus"},
	}
	rep, err := Run(ctx, store, entries)
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Scanned)
	require.Len(t, rep.Keys, 2)
	assert.Equal(t, KeySummary{ModuleType: "COST", Year: 2025, Imported: 2, MaxImported: 4, CounterValue: 5}, rep.Keys[0])
	assert.Equal(t, KeySummary{ModuleType: "MAIN-EDU", Year: 2025, Imported: 2, MaxImported: 7, CounterValue: 0}, rep.Keys[1])

	collisions := rep.Collisions()
	require.Len(t, collisions, 1)
	assert.Equal(t, "MAIN-EDU", collisions[0].ModuleType)

	assert.Equal(t, []Duplicate{{Code: "MAIN-EDU-25-007", Rows: []int{4, 5}}}, rep.Duplicates)
	require.Len(t, rep.Invalid, 1)
	assert.Equal(t, 6, rep.Invalid[0].Row)
	assert.False(t, rep.OK())

	// nothing was written
	_, err = store.Get(ctx, counter.Key{ModuleType: "MAIN-EDU", Year: 2025})
	assert.ErrorIs(t, err, counter.ErrNotFound)
}

func TestRun_DifferentlyPaddedCodes(t *testing.T) {
	ctx := context.Background()
	store := counter.NewMemoryStore()
	_, err := store.IncrementAndGet(ctx, counter.Key{ModuleType: "TASK", Year: 2024})
	require.NoError(t, err)

	entries := []Entry{
		{Row: 2, Code: "TASK-24-0001"},
		{Row: 3, Code: "TASK-24-001"},
		{Row: 4, Code: "TASK-24-0012"},
	}
	rep, err := Run(ctx, store, entries)
	require.NoError(t, err)

	assert.Empty(t, rep.Invalid)
	require.Len(t, rep.Keys, 1)
	assert.Equal(t, KeySummary{ModuleType: "TASK", Year: 2024, Imported: 3, MaxImported: 12, CounterValue: 1}, rep.Keys[0])
	assert.Len(t, rep.Collisions(), 1)

	assert.Equal(t, []Duplicate{{Code: "TASK-24-001", Rows: []int{2, 3}}}, rep.Duplicates)
	assert.Equal(t, []NonCanonical{
		{Row: 2, Value: "TASK-24-0001", Canonical: "TASK-24-001"},
		{Row: 4, Value: "TASK-24-0012", Canonical: "TASK-24-012"},
	}, rep.NonCanonical)
	assert.False(t, rep.OK())
}

func TestRun_Clean(t *testing.T) {
	ctx := context.Background()
	store := counter.NewMemoryStore()
	_, err := store.IncrementAndGet(ctx, counter.Key{ModuleType: "KPI", Year: 2024})
	require.NoError(t, err)

	rep, err := Run(ctx, store, []Entry{{Row: 2, Code: "KPI-24-001"}})
	require.NoError(t, err)
	assert.True(t, rep.OK())
}
