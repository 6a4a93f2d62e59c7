package garment

import (
	"strings"

	"fitroom/internal/models"
)

type keywordGroup struct {
	typ      models.GarmentType
	keywords []string
}

// Groups are checked in this fixed sequence; the first keyword hit wins.
var keywordGroups = []keywordGroup{
	{models.GarmentTop, []string{"t-shirt", "tshirt", "tee", "shirt", "blouse", "sweater", "hoodie", "tank", "polo", "top"}},
	{models.GarmentBottom, []string{"jeans", "pants", "trousers", "shorts", "skirt", "leggings", "chinos"}},
	{models.GarmentDress, []string{"dress", "gown", "jumpsuit", "romper"}},
	{models.GarmentOuterwear, []string{"jacket", "coat", "blazer", "parka", "cardigan", "vest"}},
	{models.GarmentShoes, []string{"shoe", "sneaker", "boot", "heel", "sandal", "loafer", "trainer"}},
	{models.GarmentAccessory, []string{"hat", "cap", "scarf", "belt", "bag", "glove", "sunglasses", "necklace", "watch", "jewelry"}},
}

// InferType classifies a free-text product-type string from catalog
// collaborators. Unmatched strings fall back to top.
func InferType(text string) models.GarmentType {
	s := strings.ToLower(text)
	for _, g := range keywordGroups {
		for _, kw := range g.keywords {
			if strings.Contains(s, kw) {
				return g.typ
			}
		}
	}
	return models.GarmentTop
}
