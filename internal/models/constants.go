package models

const (
	DefaultCategory = "General"
	DefaultUnit     = "pcs"
)

// Transaction types recorded for every successful mutation.
const (
	TxAdd      = "add"
	TxWithdraw = "withdraw"
	TxReturn   = "return"
	TxDelete   = "delete"
)

const (
	// DefaultConfirmTTL время жизни токена подтверждения удаления в секундах
	DefaultConfirmTTL = 5 * 60

	// DefaultRequestTimeout таймаут запроса к удалённой таблице в секундах
	DefaultRequestTimeout = 15

	// DefaultSheetName лист Google Sheets с инвентарём
	DefaultSheetName = "Inventory"

	// EndpointCacheTTL время жизни кэша GET-запросов в секундах
	EndpointCacheTTL = 60

	// RateLimitRPS запросов в секунду на клиента HTTP API
	RateLimitRPS = 10

	// RateLimitBurst размер всплеска для ограничителя
	RateLimitBurst = 20
)

// SampleItems is the built-in list used when no remote store is configured
// or loading from it fails.
func SampleItems() []Item {
	return []Item{
		{ID: 1, Name: "M10 Bolt", Category: "Hardware", Quantity: 50, MinStock: 5, Unit: "pcs", Location: "Box A1", Status: StatusInStock},
		{ID: 2, Name: "Brake Pad", Category: "Brakes", Quantity: 4, MinStock: 5, Unit: "set", Location: "Shelf B2", Status: StatusLow},
	}
}
