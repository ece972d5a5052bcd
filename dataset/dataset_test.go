package dataset

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

const sampleCSV = `table_id, packets_looked_up,packets_matched,label
1,10,7,Normal
1,20,20,Attack
1,5,1,Normal
`

func TestReadCSV(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, frame.NRows())
	assert.Equal(t, []string{"table_id", "packets_looked_up", "packets_matched", "label"}, frame.Names())

	looked, ok := frame.Column("packets_looked_up")
	require.True(t, ok)
	assert.True(t, looked.IsNumeric())
	assert.Equal(t, []float64{10, 20, 5}, looked.Numbers)

	label, ok := frame.Column("label")
	require.True(t, ok)
	assert.False(t, label.IsNumeric())
	assert.Equal(t, 2, label.NUnique())

	tableID, _ := frame.Column("table_id")
	assert.Equal(t, 1, tableID.NUnique())
}

func TestReadCSVMixedColumnIsCategorical(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader("a,b\n1,x\n,2\n3.5,y\n"))
	require.NoError(t, err)

	a, _ := frame.Column("a")
	assert.False(t, a.IsNumeric())
	assert.Equal(t, []string{"1", "", "3.5"}, a.Strings)
}

func TestNUniqueIgnoresNaN(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader("ratio,rate,label\nNaN,NaN,a\nNaN,2,b\nNaN,NaN,a\n"))
	require.NoError(t, err)

	ratio, _ := frame.Column("ratio")
	require.True(t, ratio.IsNumeric())
	assert.Equal(t, 0, ratio.NUnique())

	rate, _ := frame.Column("rate")
	assert.Equal(t, 1, rate.NUnique())
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = ReadCSV(strings.NewReader("a,b\n1,2\n3\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,a\n1,2\n"))
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestColumnValue(t *testing.T) {
	c := &Column{Name: "label", Numbers: []float64{1, 2.5}}
	assert.Equal(t, []string{"1", "2.5"}, c.Values())
}

func TestFrameDropTakeFilter(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	dropped := frame.Drop("table_id", "max_size")
	assert.Equal(t, []string{"table_id"}, dropped)
	assert.False(t, frame.Has("table_id"))
	assert.True(t, frame.Has("label", "packets_matched"))

	label, _ := frame.Column("label")
	normal := frame.Filter(func(i int) bool { return label.Strings[i] == "Normal" })
	assert.Equal(t, 2, normal.NRows())
	matched, _ := normal.Column("packets_matched")
	assert.Equal(t, []float64{7, 1}, matched.Numbers)

	// the source frame is untouched
	assert.Equal(t, 3, frame.NRows())

	reordered := frame.Take([]int{2, 0})
	lbl, _ := reordered.Column("label")
	assert.Equal(t, []string{"Normal", "Normal"}, lbl.Strings)
}

func TestFrameAddLengthMismatch(t *testing.T) {
	frame := NewFrame()
	require.NoError(t, frame.AddNumeric("a", []float64{1, 2}))

	err := frame.AddCategorical("b", []string{"x"})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestLoadCompressed(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(plain, []byte(sampleCSV), 0o600))

	gzPath := filepath.Join(dir, "data.csv.gz")
	gzFile, err := os.Create(gzPath)
	require.NoError(t, err)
	gw := gzip.NewWriter(gzFile)
	_, err = gw.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, gzFile.Close())

	xzPath := filepath.Join(dir, "data.csv.xz")
	xzFile, err := os.Create(xzPath)
	require.NoError(t, err)
	xw, err := xz.NewWriter(xzFile)
	require.NoError(t, err)
	_, err = xw.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, xw.Close())
	require.NoError(t, xzFile.Close())

	for _, path := range []string{plain, gzPath, xzPath} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			frame, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, 3, frame.NRows())
			assert.Equal(t, 4, frame.NCols())
		})
	}

	_, err = Load(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
