package models

// Goal holds per-user daily macro targets.
type Goal struct {
	Calorias  float64 `bson:"calorias" json:"calorias" validate:"gt=0"`
	Proteinas float64 `bson:"proteinas" json:"proteinas" validate:"gt=0"`
	Carbo     float64 `bson:"carbo" json:"carbo" validate:"gt=0"`
	Gordura   float64 `bson:"gordura" json:"gordura" validate:"gt=0"`
}

// DefaultGoal is applied to users that never set one.
func DefaultGoal() Goal {
	return Goal{Calorias: 2704, Proteinas: 176, Carbo: 320, Gordura: 80}
}

func (g Goal) Macros() Macros {
	return Macros{Calorias: g.Calorias, Proteinas: g.Proteinas, Carbo: g.Carbo, Gordura: g.Gordura}
}

// ForDays scales the daily goal to a bucket covering days days.
func (g Goal) ForDays(days int) Macros {
	return g.Macros().Scale(float64(days))
}

// User is the profile document shared with the account service.
type User struct {
	ID    string `bson:"_id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Goals *Goal  `bson:"goals,omitempty" json:"goals,omitempty"`
}

// Session maps a hashed bearer token to a user.
type Session struct {
	TokenHash string `bson:"_id" json:"-"`
	UserID    string `bson:"user_id" json:"user_id"`
	CreatedAt int64  `bson:"createdAt" json:"createdAt"`
	ExpiresAt int64  `bson:"expiresAt" json:"expiresAt"`
}
