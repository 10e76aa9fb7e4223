// Package ingest turns external sales extracts into demand.SalesRecord
// batches: uploaded CSV files and the relational sales database.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/demand-engine/demand"
)

// Upload column names.
const (
	ColumnDate     = "Fecha"
	ColumnProduct  = "Producto"
	ColumnQuantity = "Cantidad"
)

// DateLayout is the only accepted upload date format.
const DateLayout = "2006-01-02"

// ParseCSV reads an uploaded sales extract. filename is only used to reject
// non-CSV uploads. Columns may appear in any order; extra columns are
// ignored. Row numbers in errors count data rows from 1.
func ParseCSV(filename string, r io.Reader) ([]demand.SalesRecord, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil, &demand.ValidationError{Field: "file", Reason: fmt.Sprintf("%q is not a .csv file", filename)}
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &demand.ValidationError{Field: "file", Reason: "file is empty"}
	}
	if err != nil {
		return nil, &demand.ValidationError{Field: "header", Reason: err.Error()}
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var records []demand.SalesRecord
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &demand.ValidationError{Row: row, Field: "row", Reason: err.Error()}
		}

		rec, err := parseRow(row, fields, cols)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &demand.ValidationError{Field: "file", Reason: "no data rows"}
	}
	return records, nil
}

type columns struct {
	date, product, quantity int
}

func columnIndex(header []string) (columns, error) {
	idx := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[h] = i
	}

	var c columns
	for _, col := range []struct {
		name string
		dst  *int
	}{
		{ColumnDate, &c.date},
		{ColumnProduct, &c.product},
		{ColumnQuantity, &c.quantity},
	} {
		i, ok := idx[col.name]
		if !ok {
			return columns{}, &demand.ValidationError{Field: "header", Reason: "missing column " + col.name}
		}
		*col.dst = i
	}
	return c, nil
}

func parseRow(row int, fields []string, c columns) (demand.SalesRecord, error) {
	date, err := time.Parse(DateLayout, strings.TrimSpace(fields[c.date]))
	if err != nil {
		return demand.SalesRecord{}, &demand.ValidationError{Row: row, Field: ColumnDate, Reason: "expected YYYY-MM-DD, got " + fields[c.date]}
	}

	product := strings.TrimSpace(fields[c.product])
	if product == "" {
		return demand.SalesRecord{}, &demand.ValidationError{Row: row, Field: ColumnProduct, Reason: "empty"}
	}

	qty, err := decimal.NewFromString(strings.TrimSpace(fields[c.quantity]))
	if err != nil {
		return demand.SalesRecord{}, &demand.ValidationError{Row: row, Field: ColumnQuantity, Reason: "not a number: " + fields[c.quantity]}
	}
	if qty.IsNegative() {
		return demand.SalesRecord{}, &demand.ValidationError{Row: row, Field: ColumnQuantity, Reason: "must not be negative"}
	}

	return demand.SalesRecord{Date: date, Product: demand.ProductID(product), Quantity: qty}, nil
}
