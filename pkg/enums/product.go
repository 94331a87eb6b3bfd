package enums

// ProductCategory is the catalog section a product is listed under.
type ProductCategory string

const (
	ProductCategoryFood        ProductCategory = "food"
	ProductCategoryTreats      ProductCategory = "treats"
	ProductCategoryToys        ProductCategory = "toys"
	ProductCategoryGrooming    ProductCategory = "grooming"
	ProductCategoryHealth      ProductCategory = "health"
	ProductCategoryAccessories ProductCategory = "accessories"
)

var productCategories = []ProductCategory{
	ProductCategoryFood,
	ProductCategoryTreats,
	ProductCategoryToys,
	ProductCategoryGrooming,
	ProductCategoryHealth,
	ProductCategoryAccessories,
}

func (c ProductCategory) String() string { return string(c) }

func (c ProductCategory) IsValid() bool { return member(c, productCategories) }

func ParseProductCategory(value string) (ProductCategory, error) {
	return parse("product category", value, productCategories)
}
