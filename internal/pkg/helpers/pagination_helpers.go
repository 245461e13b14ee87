package helpers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/eventhub/internal/app/models/dto"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultPage     = 1 // pages are 1-based
)

// Page is a normalized 1-based page request
type Page struct {
	Number int
	Size   int
}

// NewPage clamps raw page parameters to sane bounds
func NewPage(number, size int) Page {
	if number < 1 {
		number = DefaultPage
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the row offset for SQL queries
func (p Page) Offset() uint64 {
	return uint64((p.Number - 1) * p.Size)
}

// Limit returns the row limit for SQL queries
func (p Page) Limit() uint64 {
	return uint64(p.Size)
}

// Info builds the pagination block of a listing response
func (p Page) Info(totalItems int64) dto.PaginationInfo {
	totalPages := int((totalItems + int64(p.Size) - 1) / int64(p.Size))
	if totalPages == 0 {
		totalPages = 1
	}
	return dto.PaginationInfo{
		CurrentPage: p.Number,
		TotalPages:  totalPages,
		PageSize:    p.Size,
		TotalItems:  totalItems,
	}
}

// ParsePaginationParams extracts the page and size query parameters
func ParsePaginationParams(c *gin.Context) Page {
	number, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		number = DefaultPage
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(DefaultPageSize)))
	if err != nil {
		size = DefaultPageSize
	}
	return NewPage(number, size)
}
