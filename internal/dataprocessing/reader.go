package dataprocessing

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"attendcli/internal/errors"
	"attendcli/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile loads a punch report from disk, dispatching on the file
// extension. skipRows preamble rows are discarded before the header.
func ReadFile(path string, skipRows int) (*domain.RawTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open report: %w", err)
		}
		defer f.Close()
		return ReadCSV(f, skipRows)
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()
		return readWorkbook(f, skipRows)
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrReportFormat, filepath.Ext(path))
	}
}

// ReadUpload loads a punch report from a stream, using filename only to
// decide the format. Used by the HTTP upload surface where the content
// never touches disk before processing.
func ReadUpload(r io.Reader, filename string, skipRows int) (*domain.RawTable, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV(r, skipRows)
	case ".xlsx":
		return ReadWorkbook(r, skipRows)
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrReportFormat, filename)
	}
}

// ReadCSV parses CSV content into a raw table. The reader tolerates ragged
// rows because punch-machine exports frequently pad or truncate trailing
// cells, and strips a UTF-8 byte order mark if one is present.
func ReadCSV(r io.Reader, skipRows int) (*domain.RawTable, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("strip byte order mark: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv report: %w", err)
	}
	return tableFromRows(rows, skipRows)
}

// ReadWorkbook parses the first sheet of an xlsx workbook streamed from r.
func ReadWorkbook(r io.Reader, skipRows int) (*domain.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, skipRows)
}

func readWorkbook(f *excelize.File, skipRows int) (*domain.RawTable, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ErrReportEmpty
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return tableFromRows(rows, skipRows)
}

// tableFromRows discards the preamble, takes the next row as the header,
// and keeps the rest as data rows.
func tableFromRows(rows [][]string, skipRows int) (*domain.RawTable, error) {
	if skipRows < 0 {
		skipRows = 0
	}
	if len(rows) <= skipRows {
		return nil, errors.ErrReportEmpty
	}

	table := &domain.RawTable{
		Headers: rows[skipRows],
		Rows:    rows[skipRows+1:],
	}
	if len(table.Rows) == 0 {
		return nil, errors.ErrReportEmpty
	}
	return table, nil
}
