package models

import "github.com/shopspring/decimal"

type Canteen struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	IsOpen  bool   `json:"is_open"`
}

type Dish struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Weight      int             `json:"weight"`
}

// MenuItem is a dish as sold at one canteen.
type MenuItem struct {
	Dish
	AvailableQuantity int `json:"available_quantity"`
}

// StockLine is a locked stock row together with the dish price it was read with.
type StockLine struct {
	DishID   int64
	DishName string
	Price    decimal.Decimal
	Quantity int
}
