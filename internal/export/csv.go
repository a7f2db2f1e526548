package export

import (
	"strings"

	"fsaeinventory/internal/models"
)

// CSV renders a header line followed by one line per item. The header is
// written bare, every value is wrapped in double quotes with inner quotes
// doubled. Lines are separated by "\n" with no trailing newline.
func CSV(items []models.Item) []byte {
	var sb strings.Builder
	sb.WriteString(strings.Join(models.ItemColumns, ","))
	for _, item := range items {
		sb.WriteByte('\n')
		for i, field := range item.Fields() {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(quote(field))
		}
	}
	return []byte(sb.String())
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
