package models

// FoodLogEntry is one recorded food item. ID is generated by the client so a
// replayed write can be recognized by the store.
type FoodLogEntry struct {
	ID          string  `bson:"_id" json:"id" validate:"required,uuid"`
	UserID      string  `bson:"user_id" json:"user_id" validate:"required"`
	Description string  `bson:"description" json:"description" validate:"required"`
	Grams       float64 `bson:"grams" json:"grams" validate:"gt=0"`
	Macros      `bson:",inline"`
	Date        Date  `bson:"date" json:"date" validate:"required"`
	CreatedAt   int64 `bson:"createdAt" json:"createdAt"`
}

// ItemType discriminates nutrition lookup results.
type ItemType string

const (
	// ItemTaco values are per gram.
	ItemTaco ItemType = "taco"
	// ItemRecipe values are per 100g.
	ItemRecipe ItemType = "recipe"
)

// NutritionalInfo is a nutrition lookup result.
type NutritionalInfo struct {
	ID          string   `bson:"_id" json:"_id"`
	Description string   `bson:"description" json:"description"`
	Type        ItemType `bson:"type" json:"type"`
	Calorias    float64  `bson:"calorias_kcal" json:"calorias_kcal"`
	Proteinas   float64  `bson:"proteinas_g" json:"proteinas_g"`
	Carbo       float64  `bson:"carbo_g" json:"carbo_g"`
	Gordura     float64  `bson:"gordura_g" json:"gordura_g"`
}

// PerUnit returns the macro vector as stored on the item.
func (n NutritionalInfo) PerUnit() Macros {
	return Macros{Calorias: n.Calorias, Proteinas: n.Proteinas, Carbo: n.Carbo, Gordura: n.Gordura}.Sanitized()
}

// Consumed scales the item to the eaten amount. Recipes carry per-100g
// totals, TACO items per-gram values.
func (n NutritionalInfo) Consumed(grams float64) Macros {
	if n.Type == ItemRecipe {
		return n.PerUnit().Scale(grams / 100)
	}
	return n.PerUnit().Scale(grams)
}

// Recipe is a user recipe; its macros are per 100g.
type Recipe struct {
	ID          string       `bson:"_id,omitempty" json:"_id"`
	UserID      string       `bson:"user_id" json:"user_id"`
	Name        string       `bson:"name" json:"name"`
	Ingredients []Ingredient `bson:"ingredients,omitempty" json:"ingredients,omitempty"`
	Macros      `bson:",inline"`
}

type Ingredient struct {
	Description string  `bson:"description" json:"description"`
	Grams       float64 `bson:"grams" json:"grams"`
}

// PendingFoodEntry is a food write waiting for connectivity. It is removed
// only after the store accepts it or the user clears the queue.
type PendingFoodEntry struct {
	Entry    FoodLogEntry `json:"entry"`
	QueuedAt int64        `json:"queuedAt"`
	Attempts int          `json:"attempts"`
}
