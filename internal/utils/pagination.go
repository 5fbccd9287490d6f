package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Page size bounds for archive listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest holds the page/limit query of a listing endpoint
type PageRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Offset returns the number of rows to skip
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is a paginated API response
type Page struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	TotalItems int64       `json:"total_items"`
	TotalPages int64       `json:"total_pages"`
}

// PageFromContext reads page and limit from the query string, falling back to defaults
func PageFromContext(ctx *gin.Context) PageRequest {
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)))
	if err != nil || limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return PageRequest{Page: page, Limit: limit}
}

// Paginate scopes a GORM query to the requested page
func Paginate(req PageRequest) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.Limit)
	}
}

// NewPage wraps a slice of results with pagination metadata
func NewPage(data interface{}, req PageRequest, total int64) Page {
	var pages int64
	if req.Limit > 0 {
		pages = (total + int64(req.Limit) - 1) / int64(req.Limit)
	}

	return Page{
		Data:       data,
		Page:       req.Page,
		PerPage:    req.Limit,
		TotalItems: total,
		TotalPages: pages,
	}
}
