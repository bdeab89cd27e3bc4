package cleaner

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseGrid decodes raw report bytes into a ragged grid of trimmed cell
// strings. Spreadsheet workbooks are tried first; anything that is not a
// valid workbook falls back to delimiter-sniffed text.
func parseGrid(content []byte) ([][]string, error) {
	if rows, err := parseWorkbook(content); err == nil {
		return rows, nil
	}
	return parseDelimited(content)
}

func parseWorkbook(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	grid := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = strings.TrimSpace(cell)
		}
		grid[i] = cells
	}
	return grid, nil
}

// parseDelimited sniffs the delimiter from the first non-empty line and
// reads the rest as ragged CSV.
func parseDelimited(content []byte) ([][]string, error) {
	delim := sniffDelimiter(content)

	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var grid [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		cells := make([]string, len(record))
		for i, cell := range record {
			cells[i] = strings.TrimSpace(cell)
		}
		grid = append(grid, cells)
	}
	if len(grid) == 0 {
		return nil, errors.New("empty file")
	}
	return grid, nil
}

func sniffDelimiter(content []byte) rune {
	sample := content
	if idx := bytes.IndexByte(sample, '\n'); idx > 0 {
		// Sniff across up to the first few lines to survive a sparse title row.
		if end := nthLineEnd(content, 5); end > 0 {
			sample = content[:end]
		}
	}

	counts := map[rune]int{'\t': 0, ',': 0, ';': 0}
	for _, b := range sample {
		if c, ok := counts[rune(b)]; ok {
			counts[rune(b)] = c + 1
		}
	}

	best := ','
	bestCount := counts[',']
	for _, d := range []rune{'\t', ';'} {
		if counts[d] > bestCount {
			best = d
			bestCount = counts[d]
		}
	}
	return best
}

func nthLineEnd(content []byte, n int) int {
	pos := 0
	for i := 0; i < n; i++ {
		idx := bytes.IndexByte(content[pos:], '\n')
		if idx < 0 {
			return len(content)
		}
		pos += idx + 1
	}
	return pos
}
