package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidClassification is returned when the classifier produces a category
// outside the fixed set or malformed output.
var ErrInvalidClassification = errors.New("invalid classification")

// Category is one of the fixed life-management buckets that partition items
// and similarity search scope.
type Category string

const (
	CategoryPeople   Category = "People"
	CategoryProjects Category = "Projects"
	CategoryIdeas    Category = "Ideas"
	CategoryAdmin    Category = "Admin"
)

// Categories lists every valid category.
func Categories() []Category {
	return []Category{CategoryPeople, CategoryProjects, CategoryIdeas, CategoryAdmin}
}

// ParseCategory resolves a case-insensitive category name.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "people":
		return CategoryPeople, nil
	case "projects":
		return CategoryProjects, nil
	case "ideas":
		return CategoryIdeas, nil
	case "admin":
		return CategoryAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidClassification, s)
	}
}

// Lower returns the lowercase form used in identity keys.
func (c Category) Lower() string {
	return strings.ToLower(string(c))
}
