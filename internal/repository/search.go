package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/libradesk/library-service/internal/model"
)

func buildSearchQuery(c model.SearchCriteria) (string, []interface{}, error) {
	q := qb.Select(bookColumns...).From(booksTableName)

	if c.Type != "" {
		q = q.Where(sq.Eq{"type": c.Type})
	}
	if c.Title != "" {
		q = q.Where(sq.Eq{"title": c.Title})
	}
	if c.Publisher != "" {
		q = q.Where(sq.Eq{"publisher": c.Publisher})
	}
	if c.Author != "" {
		q = q.Where(sq.Eq{"author": c.Author})
	}

	switch {
	case c.Year != nil:
		q = q.Where(sq.Eq{"year": *c.Year})
	default:
		if c.YearFrom != nil {
			q = q.Where(sq.GtOrEq{"year": *c.YearFrom})
		}
		if c.YearTo != nil {
			q = q.Where(sq.LtOrEq{"year": *c.YearTo})
		}
	}

	switch {
	case c.Price != nil:
		q = q.Where(sq.Eq{"price": *c.Price})
	default:
		if c.PriceFrom != nil {
			q = q.Where(sq.GtOrEq{"price": *c.PriceFrom})
		}
		if c.PriceTo != nil {
			q = q.Where(sq.LtOrEq{"price": *c.PriceTo})
		}
	}

	if c.OrderBy != "" {
		dir := " asc"
		if c.Descending {
			dir = " desc"
		}
		q = q.OrderBy(c.OrderBy + dir)
	}

	return q.ToSql()
}

func (r *repository) SearchBooks(ctx context.Context, criteria model.SearchCriteria) ([]model.Book, error) {
	query, args, err := buildSearchQuery(criteria)
	if err != nil {
		return nil, err
	}
	r.log.Debug("SearchBooks", zap.String("query", query), zap.Any("args", args))

	var books []model.Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}
