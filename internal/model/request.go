package model

import "github.com/shopspring/decimal"

type CreateBookRequest struct {
	ID        string          `json:"id" validate:"required"`
	Type      string          `json:"type"`
	Title     string          `json:"title" validate:"required"`
	Publisher string          `json:"publisher"`
	Year      int             `json:"year"`
	Author    string          `json:"author"`
	Price     decimal.Decimal `json:"price"`
	Total     int             `json:"total"`
	// Stock left nil defaults to Total, matching AddBook's column default.
	Stock *int `json:"stock,omitempty"`
}

func (r CreateBookRequest) Book() Book {
	stock := r.Total
	if r.Stock != nil {
		stock = *r.Stock
	}
	return Book{
		ID:        r.ID,
		Type:      r.Type,
		Title:     r.Title,
		Publisher: r.Publisher,
		Year:      r.Year,
		Author:    r.Author,
		Price:     r.Price,
		Total:     r.Total,
		Stock:     stock,
	}
}

type ImportBooksRequest struct {
	Path string `json:"path" validate:"required"`
}

type CreateCardRequest struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Department string `json:"department"`
	Type       string `json:"type" validate:"required"`
}

type CreateAdminRequest struct {
	ID       string `json:"id" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Contact  string `json:"contact" validate:"required"`
}

type LoginRequest struct {
	ID       string `json:"id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Admin Admin  `json:"admin"`
	Token string `json:"token"`
}

type BorrowRequest struct {
	CardID     string `json:"cardId" validate:"required"`
	BookID     string `json:"bookId" validate:"required"`
	ReturnDate Date   `json:"returnDate" validate:"required"`
}

type ReturnRequest struct {
	CardID string `json:"cardId" validate:"required"`
	BookID string `json:"bookId" validate:"required"`
}

type NearestReturnResponse struct {
	BookID     string `json:"bookId"`
	ReturnDate Date   `json:"returnDate"`
}
