package models

import (
	"strconv"
	"strings"
	"time"
)

// Record is a loosely typed row as returned by a spreadsheet endpoint.
// Keys are matched case-insensitively, ignoring spaces, dashes and underscores,
// so "MinStock", "min_stock" and "Min Stock" resolve to the same field.
type Record map[string]interface{}

func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Lookup returns the first non-nil value among the given aliases.
func (r Record) Lookup(aliases ...string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	wanted := make(map[string]int, len(aliases))
	for i, a := range aliases {
		wanted[normalizeKey(a)] = i
	}

	best := len(aliases)
	var found interface{}
	for key, val := range r {
		if val == nil {
			continue
		}
		if idx, ok := wanted[normalizeKey(key)]; ok && idx < best {
			best = idx
			found = val
		}
	}
	return found, best < len(aliases)
}

func (r Record) GetInt64(def int64, aliases ...string) int64 {
	val, ok := r.Lookup(aliases...)
	if !ok {
		return def
	}
	switch v := val.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
		return def
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return def
	}
}

func (r Record) GetString(def string, aliases ...string) string {
	val, ok := r.Lookup(aliases...)
	if !ok {
		return def
	}
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return formatInt(v)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return def
	}
}

func (r Record) GetTime(aliases ...string) time.Time {
	val, ok := r.Lookup(aliases...)
	if !ok {
		return time.Time{}
	}
	switch v := val.(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t
			}
		}
		return time.Time{}
	case float64:
		// spreadsheet endpoints tend to serialize dates as epoch milliseconds
		return time.UnixMilli(int64(v)).UTC()
	default:
		return time.Time{}
	}
}

// ItemFromRecord normalizes one remote row. position is the zero-based row
// index used when the row carries no id. Status is always recomputed.
func ItemFromRecord(r Record, position int) Item {
	item := Item{
		ID:       r.GetInt64(int64(position+1), "id"),
		Name:     r.GetString("", "name"),
		Category: r.GetString(DefaultCategory, "category"),
		Quantity: r.GetInt64(0, "quantity", "qty"),
		MinStock: r.GetInt64(0, "minStock", "min"),
		Unit:     r.GetString(DefaultUnit, "unit"),
		Location: r.GetString("", "location"),
	}
	item.Refresh()
	return item
}

// TransactionFromRecord normalizes one remote transaction row.
func TransactionFromRecord(r Record) Transaction {
	return Transaction{
		ID:        r.GetString("", "id", "transactionId"),
		ItemID:    r.GetInt64(0, "itemId", "item"),
		ItemName:  r.GetString("", "itemName", "name"),
		Type:      strings.ToLower(r.GetString("", "type", "action")),
		Quantity:  r.GetInt64(0, "quantity", "qty"),
		Balance:   r.GetInt64(0, "balance"),
		CreatedAt: r.GetTime("createdAt", "timestamp", "date"),
	}
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
