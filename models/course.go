package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course represents a course sold on the storefront. Prices are in ZAR.
type Course struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsActive    int             `json:"is_active"` // 0 = inactive, 1 = active
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CourseResponse is the API shape with formatted timestamps.
type CourseResponse struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	IsActive    int     `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// ToResponse converts Course to CourseResponse.
func (c *Course) ToResponse() CourseResponse {
	price, _ := c.Price.Float64()
	return CourseResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Price:       price,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.Format(time.RFC3339),
	}
}
