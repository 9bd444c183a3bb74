package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrEmptyCSV — в файле нет строк данных.
var ErrEmptyCSV = errors.New("csv has no data rows")

// ReadCSVFile читает CSV с заголовком в плоские записи.
func ReadCSVFile(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV читает CSV с заголовком.
//
// Пустые ячейки становятся nil, числовые — float64,
// остальные остаются строками.
func ReadCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []map[string]any
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make(map[string]any, len(header))
		for i, name := range header {
			row[name] = cellValue(rec[i])
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyCSV
	}
	return rows, nil
}

func cellValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	switch {
	case err != nil, math.IsInf(f, 0):
		return s
	case math.IsNaN(f):
		return nil
	default:
		return f
	}
}

// parseIDs разбирает список идентификаторов студентов.
func parseIDs(items []string) ([]int64, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, err := strconv.ParseInt(strings.TrimSpace(item), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid student id %q", item)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
