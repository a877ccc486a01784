package google

import (
	"fmt"
	"strings"
)

// findRow returns the 1-based sheet row whose first cell equals id, or 0.
// Row 1 is the header and never matches.
func findRow(ids []string, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0
	}
	for i := 1; i < len(ids); i++ {
		if strings.TrimSpace(ids[i]) == id {
			return i + 1
		}
	}
	return 0
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:G%d", sheet, row, row)
}

func firstColumn(values [][]interface{}) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) > 0 {
			out[i] = fmt.Sprint(row[0])
		}
	}
	return out
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
