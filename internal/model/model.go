package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Book struct {
	ID        string          `json:"id" db:"id"`
	Type      string          `json:"type" db:"type"`
	Title     string          `json:"title" db:"title"`
	Publisher string          `json:"publisher" db:"publisher"`
	Year      int             `json:"year" db:"year"`
	Author    string          `json:"author" db:"author"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Total     int             `json:"total" db:"total"`
	Stock     int             `json:"stock" db:"stock"`
}

type Card struct {
	ID         string `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	Department string `json:"department" db:"department"`
	Type       string `json:"type" db:"type"`
}

type Admin struct {
	ID           string `json:"id" db:"id"`
	PasswordHash string `json:"-" db:"password_hash"`
	Name         string `json:"name" db:"name"`
	Contact      string `json:"contact" db:"contact"`
}

type Borrow struct {
	ID         int64     `json:"-" db:"id"`
	BorrowUID  string    `json:"borrowUid" db:"borrow_uid"`
	CardID     string    `json:"cardId" db:"card_id"`
	BookID     string    `json:"bookId" db:"book_id"`
	AdminID    string    `json:"adminId" db:"admin_id"`
	BorrowDate time.Time `json:"borrowDate" db:"borrow_date"`
	ReturnDate time.Time `json:"returnDate" db:"return_date"`
}

// Date binds a date-only JSON value ("2006-01-02").
type Date struct {
	time.Time `json:",inline"`
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}
