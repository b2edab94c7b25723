// README: Common value objects (IDs, coordinates, money) shared across modules.
package types

// ID is an opaque identifier for suppliers, clients, zones and orders.
type ID string

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Money is an amount in the smallest unit of Currency. XOF has no minor unit.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

const CurrencyXOF = "XOF"

func XOF(amount int64) Money {
	return Money{Amount: amount, Currency: CurrencyXOF}
}
