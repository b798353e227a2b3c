package enums

import (
	"slices"
	"strings"
)

// ProductCategory is the menu section a product is listed under.
type ProductCategory string

const (
	ProductCategoryBread   ProductCategory = "bread"
	ProductCategoryDessert ProductCategory = "dessert"
	ProductCategorySpecial ProductCategory = "special"
)

var productCategories = []ProductCategory{ProductCategoryBread, ProductCategoryDessert, ProductCategorySpecial}

func lowerTrim(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (c ProductCategory) String() string { return string(c) }

func (c ProductCategory) IsValid() bool { return slices.Contains(productCategories, c) }

func ParseProductCategory(value string) (ProductCategory, error) {
	return parse("product category", productCategories, value, lowerTrim)
}
