package models

// All lists every persisted model, in dependency order, for sqlite bootstrapping.
func All() []any {
	return []any{
		&Item{},
		&Rental{},
		&Review{},
		&Notification{},
	}
}
