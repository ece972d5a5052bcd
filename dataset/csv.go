package dataset

import (
	"compress/gzip"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading, transparently decompressing ".xz" and ".gz"
// files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		r, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "xz reader for %s", path)
		}
		return &multiCloser{Reader: r, closers: []io.Closer{f}}, nil
	case ".gz":
		r, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "gzip reader for %s", path)
		}
		return &multiCloser{Reader: r, closers: []io.Closer{f, r}}, nil
	default:
		return f, nil
	}
}

// Load reads the CSV file at path into a Frame.
func Load(path string) (*Frame, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	frame, err := ReadCSV(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return frame, nil
}

// ReadCSV parses a CSV stream whose first record is the header. A column is
// numeric when every cell parses as a float; otherwise all of its cells are
// kept as strings.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewModelError("ReadCSV", "missing header", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	cells := make([][]string, len(header))
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read record")
		}
		for j, v := range rec {
			cells[j] = append(cells[j], strings.TrimSpace(v))
		}
	}

	frame := NewFrame()
	for j, name := range header {
		if nums, ok := parseNumbers(cells[j]); ok {
			err = frame.AddNumeric(name, nums)
		} else {
			err = frame.AddCategorical(name, cells[j])
		}
		if err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func parseNumbers(values []string) ([]float64, bool) {
	if len(values) == 0 {
		return nil, false
	}
	out := make([]float64, len(values))
	for i, s := range values {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
