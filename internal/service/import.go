package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/libradesk/library-service/internal/errs"
	"github.com/libradesk/library-service/internal/model"
)

// importColumns is the fixed field order of an import line:
// (id,type,title,publisher,year,author,price,total)
const importColumns = 8

// ImportBooks loads a delimited file, one parenthesized book record per
// line, and inserts every row in a single transaction. Returns the number
// of imported books.
func (s *Service) ImportBooks(ctx context.Context, path string) (int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, errors.Wrapf(errs.ErrInvalidInput, "open import file: %v", err)
	}
	defer f.Close()

	books, err := parseBookRecords(f)
	if err != nil {
		return 0, err
	}
	if err := s.repo.CreateBooks(ctx, books); err != nil {
		return 0, err
	}
	return len(books), nil
}

func parseBookRecords(r io.Reader) ([]model.Book, error) {
	var books []model.Book

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		record := strings.TrimRight(strings.TrimLeft(scanner.Text(), "( "), ") \r")
		if record == "" {
			continue
		}
		fields, err := csv.NewReader(strings.NewReader(record)).Read()
		if err != nil {
			return nil, errors.Wrapf(errs.ErrInvalidInput, "line %d: %v", line, err)
		}
		if len(fields) != importColumns {
			return nil, errors.Wrapf(errs.ErrInvalidInput, "line %d: want %d fields, got %d", line, importColumns, len(fields))
		}

		book, err := parseBookFields(fields)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		books = append(books, book)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

func parseBookFields(fields []string) (model.Book, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	year := 0
	if fields[4] != "" {
		y, err := strconv.Atoi(fields[4])
		if err != nil {
			return model.Book{}, errors.Wrapf(errs.ErrInvalidInput, "year %q", fields[4])
		}
		year = y
	}
	price, err := decimal.NewFromString(fields[6])
	if err != nil {
		return model.Book{}, errors.Wrapf(errs.ErrInvalidInput, "price %q", fields[6])
	}
	total, err := strconv.Atoi(fields[7])
	if err != nil {
		return model.Book{}, errors.Wrapf(errs.ErrInvalidInput, "total %q", fields[7])
	}

	// stock starts out equal to total, same as AddBook's default
	return model.Book{
		ID:        fields[0],
		Type:      fields[1],
		Title:     fields[2],
		Publisher: fields[3],
		Year:      year,
		Author:    fields[5],
		Price:     price,
		Total:     total,
		Stock:     total,
	}, nil
}
