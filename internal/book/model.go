package book

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a catalog entry.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusDeleted Status = "DELETED"
)

var (
	// ErrNotFound is returned when no book exists for the id.
	ErrNotFound = errors.New("book not found")
	// ErrDeleted is returned when the book exists but was soft-deleted.
	ErrDeleted = errors.New("book deleted")
	// ErrDuplicateISBN is returned when another book already uses the isbn.
	ErrDuplicateISBN = errors.New("duplicate isbn")
)

// Book is the stored catalog entity.
type Book struct {
	ID          int64
	Name        string
	Description *string
	Author      string
	Type        string
	Price       decimal.Decimal
	ISBN        string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Input is the create and update payload. Updates replace every field.
type Input struct {
	BookName        string           `json:"bookName" validate:"notblank,book_name"`
	BookDescription *string          `json:"bookDescription"`
	Author          string           `json:"author" validate:"notblank"`
	Type            string           `json:"type" validate:"notblank"`
	BookPrice       *decimal.Decimal `json:"bookPrice" validate:"required,money_min=0.01"`
	ISBN            string           `json:"isbn" validate:"required,isbn13"`
}

// View is the public representation of a book.
type View struct {
	ID              string      `json:"id"`
	BookName        string      `json:"bookName"`
	BookDescription *string     `json:"bookDescription,omitempty"`
	Author          string      `json:"author"`
	Type            string      `json:"type"`
	BookPrice       json.Number `json:"bookPrice"`
	ISBN            string      `json:"isbn"`
}

// CreateResponse is returned by a successful create.
type CreateResponse struct {
	ID string `json:"id"`
}

func (in Input) toBook() Book {
	b := Book{
		Name:        in.BookName,
		Description: in.BookDescription,
		Author:      in.Author,
		Type:        in.Type,
		ISBN:        in.ISBN,
		Status:      StatusActive,
	}
	if in.BookPrice != nil {
		b.Price = *in.BookPrice
	}
	return b
}

func toView(b Book) View {
	return View{
		ID:              strconv.FormatInt(b.ID, 10),
		BookName:        b.Name,
		BookDescription: b.Description,
		Author:          b.Author,
		Type:            b.Type,
		BookPrice:       json.Number(b.Price.String()),
		ISBN:            b.ISBN,
	}
}
