// Package types provides common type definitions for the soltrees system.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TreeSize represents one of the four fixed tree size classes.
type TreeSize string

const (
	// SizeSmall is the cheapest and smallest size class
	SizeSmall TreeSize = "Small"
	// SizeMedium is the second size class
	SizeMedium TreeSize = "Medium"
	// SizeBig is the third size class
	SizeBig TreeSize = "Big"
	// SizeHuge is the largest and most expensive size class
	SizeHuge TreeSize = "Huge"
)

// treeSizePrices is the closed size→price table, in SOL.
// Prices are strictly increasing with size.
var treeSizePrices = map[TreeSize]decimal.Decimal{
	SizeSmall:  decimal.RequireFromString("0.1"),
	SizeMedium: decimal.RequireFromString("0.5"),
	SizeBig:    decimal.RequireFromString("0.8"),
	SizeHuge:   decimal.RequireFromString("1.0"),
}

// treeSizeScales maps each size class to its visual scale multiplier.
var treeSizeScales = map[TreeSize]float64{
	SizeSmall:  0.6,
	SizeMedium: 1.0,
	SizeBig:    1.4,
	SizeHuge:   2.0,
}

// ParseTreeSize validates a size string against the closed size set.
func ParseTreeSize(s string) (TreeSize, error) {
	size := TreeSize(s)
	if _, ok := treeSizePrices[size]; !ok {
		return "", fmt.Errorf("unknown tree size: %q", s)
	}
	return size, nil
}

// Price returns the placement price for the size, in SOL.
func (s TreeSize) Price() decimal.Decimal {
	return treeSizePrices[s]
}

// Scale returns the visual scale multiplier for the size.
func (s TreeSize) Scale() float64 {
	return treeSizeScales[s]
}

// AllTreeSizes returns the size classes in ascending price order.
func AllTreeSizes() []TreeSize {
	return []TreeSize{SizeSmall, SizeMedium, SizeBig, SizeHuge}
}

// TreeShape represents the cosmetic shape of a tree.
type TreeShape string

const (
	// ShapeClassic is the default conical tree shape
	ShapeClassic TreeShape = "classic"
	// ShapeBushy is a round, dense tree shape
	ShapeBushy TreeShape = "bushy"
	// ShapeDistorted is an irregular tree shape
	ShapeDistorted TreeShape = "distorted"
)

// ParseTreeShape validates a shape string against the closed shape set.
func ParseTreeShape(s string) (TreeShape, error) {
	switch shape := TreeShape(s); shape {
	case ShapeClassic, ShapeBushy, ShapeDistorted:
		return shape, nil
	default:
		return "", fmt.Errorf("unknown tree shape: %q", s)
	}
}

// Built-in category keys. User-created categories are referenced by uuid
// instead and live in the categories table.
const (
	CategoryDeveloper  = "developer"
	CategoryNetworking = "networking"
	CategoryJobSeeker  = "jobseeker"
	CategoryRecruiter  = "recruiter"
)

// IsBuiltinCategory reports whether the key is one of the fixed categories.
func IsBuiltinCategory(key string) bool {
	switch key {
	case CategoryDeveloper, CategoryNetworking, CategoryJobSeeker, CategoryRecruiter:
		return true
	default:
		return false
	}
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
