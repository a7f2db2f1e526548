package models

import "strings"

// Status is the stock level category of an item. It is always derived from
// quantity and minStock and never edited on its own.
type Status string

const (
	StatusInStock    Status = "In Stock"
	StatusLow        Status = "Low"
	StatusOutOfStock Status = "Out of Stock"
)

// DeriveStatus maps a stock count and its reorder threshold to a Status.
func DeriveStatus(quantity, minStock int64) Status {
	if quantity <= 0 {
		return StatusOutOfStock
	}
	if quantity <= minStock {
		return StatusLow
	}
	return StatusInStock
}

type Item struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"category"`
	Quantity int64  `json:"quantity" yaml:"quantity"`
	MinStock int64  `json:"minStock" yaml:"min_stock"`
	Unit     string `json:"unit" yaml:"unit"`
	Location string `json:"location" yaml:"location"`
	Status   Status `json:"status" yaml:"status"`
}

// Refresh recomputes the derived status in place.
func (i *Item) Refresh() {
	i.Status = DeriveStatus(i.Quantity, i.MinStock)
}

// SearchText is the lowercased haystack used by inventory search.
func (i Item) SearchText() string {
	return strings.ToLower(strings.Join([]string{
		i.Name,
		i.Category,
		formatInt(i.Quantity),
		i.Unit,
		i.Location,
		string(i.Status),
	}, " "))
}

// Draft is the add-item form. Empty optional fields take defaults.
type Draft struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int64  `json:"quantity"`
	MinStock int64  `json:"minStock"`
	Unit     string `json:"unit"`
	Location string `json:"location"`
}

// NewDraft returns the blank form shown after a successful add.
func NewDraft() Draft {
	return Draft{Category: DefaultCategory, Unit: DefaultUnit}
}

// ToItem builds an item with the given id, applying defaults and status.
func (d Draft) ToItem(id int64) Item {
	item := Item{
		ID:       id,
		Name:     strings.TrimSpace(d.Name),
		Category: d.Category,
		Quantity: d.Quantity,
		MinStock: d.MinStock,
		Unit:     d.Unit,
		Location: d.Location,
	}
	if strings.TrimSpace(item.Category) == "" {
		item.Category = DefaultCategory
	}
	if strings.TrimSpace(item.Unit) == "" {
		item.Unit = DefaultUnit
	}
	item.Refresh()
	return item
}

// NextID returns max(existing ids)+1, or 1 for an empty list.
func NextID(items []Item) int64 {
	var maxID int64
	for _, item := range items {
		if item.ID > maxID {
			maxID = item.ID
		}
	}
	return maxID + 1
}

// ItemColumns is the export and spreadsheet column order.
var ItemColumns = []string{"id", "name", "category", "quantity", "minStock", "unit", "location", "status"}

// Fields returns the item values in ItemColumns order.
func (i Item) Fields() []string {
	return []string{
		formatInt(i.ID),
		i.Name,
		i.Category,
		formatInt(i.Quantity),
		formatInt(i.MinStock),
		i.Unit,
		i.Location,
		string(i.Status),
	}
}
