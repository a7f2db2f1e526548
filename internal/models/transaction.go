package models

import "time"

// Transaction is one entry of the stock movement log.
type Transaction struct {
	ID        string    `json:"id"`
	ItemID    int64     `json:"itemId"`
	ItemName  string    `json:"itemName"`
	Type      string    `json:"type"`
	Quantity  int64     `json:"quantity"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}
