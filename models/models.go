package models

// All returns every model in migration order
func All() []any {
	return []any{
		&User{},
		&Karigar{},
		&Process{},
		&Design{},
		&Order{},
		&OrderStatusHistory{},
		&Issue{},
		&Receipt{},
		&StockRegisterEntry{},
		&Sequence{},
	}
}
