package feed

import (
	"strings"

	"github.com/dawatapp/dawat/pkg/enums/foodcategory"
	"github.com/dawatapp/dawat/pkg/money"
)

const (
	MaxTitleLength = 120
	MaxImages      = 10
)

// ValidatePostInput returns the list of problems found in a create request.
func ValidatePostInput(in PostInput) []string {
	var errors []string

	title := strings.TrimSpace(in.Title)
	if title == "" {
		errors = append(errors, "title is required")
	} else if len(title) > MaxTitleLength {
		errors = append(errors, "title is too long")
	}

	if strings.TrimSpace(in.SupplierID) == "" {
		errors = append(errors, "supplier_id is required")
	}

	if in.Quantity < 1 {
		errors = append(errors, "quantity must be at least 1")
	}

	if len(in.Images) == 0 {
		errors = append(errors, "at least one image is required")
	} else if len(in.Images) > MaxImages {
		errors = append(errors, "too many images")
	}

	if in.Category != "" && foodcategory.ByName(in.Category) == nil {
		errors = append(errors, "category must be one of Chicken, Mutton, Prawns, Fish or Other")
	}

	if _, err := money.Normalize(in.Price); err != nil {
		errors = append(errors, err.Error())
	}

	return errors
}

// ValidateStockUpdate covers the quantity and price pair used by edit and repost.
func ValidateStockUpdate(quantity int, price string) []string {
	var errors []string

	if quantity < 1 {
		errors = append(errors, "quantity must be at least 1")
	}

	if _, err := money.Normalize(price); err != nil {
		errors = append(errors, err.Error())
	}

	return errors
}
