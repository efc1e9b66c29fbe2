package shared

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 20

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Category enumerates the nursery product taxonomy.
type Category string

const (
	CategoryIndoorPlant  Category = "INDOOR_PLANT"
	CategoryOutdoorPlant Category = "OUTDOOR_PLANT"
	CategorySucculent    Category = "SUCCULENT"
	CategorySeed         Category = "SEED"
	CategoryPotPlanter   Category = "POT_PLANTER"
	CategoryTool         Category = "TOOL"
	CategoryPlantCare    Category = "PLANT_CARE"
)

// categoryCodes maps each category to its three-digit barcode segment.
var categoryCodes = map[Category]string{
	CategoryIndoorPlant:  "100",
	CategoryOutdoorPlant: "200",
	CategorySucculent:    "300",
	CategorySeed:         "400",
	CategoryPotPlanter:   "500",
	CategoryTool:         "600",
	CategoryPlantCare:    "700",
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryCodes[c]
	return ok
}

// Code returns the three-digit barcode segment for the category.
func (c Category) Code() string {
	return categoryCodes[c]
}

// CategoryByCode resolves a three-digit barcode segment to its category.
func CategoryByCode(code string) (Category, bool) {
	for category, c := range categoryCodes {
		if c == code {
			return category, true
		}
	}
	return "", false
}

// Categories lists every known category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryIndoorPlant,
		CategoryOutdoorPlant,
		CategorySucculent,
		CategorySeed,
		CategoryPotPlanter,
		CategoryTool,
		CategoryPlantCare,
	}
}
