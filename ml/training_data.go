package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var ErrEmptyDataset = errors.New("dataset is empty")

// LoadDataset reads a ';'-delimited CSV with a header row.
func LoadDataset(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	frame, err := ReadDataset(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return frame, nil
}

// ReadDataset parses numerical feature columns as numbers and everything else
// as strings. Empty or unparsable cells become missing.
func ReadDataset(r io.Reader) (*Frame, error) {
	// Exports from spreadsheet tools often carry a UTF-8 BOM on the header.
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	columns := make([][]Cell, len(header))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, raw := range record {
			columns[i] = append(columns[i], parseCell(header[i], raw))
		}
	}
	if len(columns) == 0 || len(columns[0]) == 0 {
		return nil, ErrEmptyDataset
	}

	frame := NewFrame()
	for i, name := range header {
		if err := frame.SetColumn(name, columns[i]); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func parseCell(column, raw string) Cell {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MissingCell()
	}
	if IsNumerical(column) {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return MissingCell()
		}
		return NumberCell(v)
	}
	return StringCell(raw)
}
