package resources

import (
	"strconv"
	"strings"

	"inventory_admin/internal/models"
)

// RecordID returns a record's identifier from "id" or "_id", formatted for use in a path.
func RecordID(record models.Record) (string, bool) {
	return firstID(record, "id", "_id")
}

// CategoryID returns the category a record refers to. Category rows and product rows
// spell the key differently depending on the endpoint.
func CategoryID(record models.Record) (string, bool) {
	return firstID(record, "id", "categoryId", "CategoryId", "category_id")
}

func firstID(record models.Record, keys ...string) (string, bool) {
	for _, key := range keys {
		if id, ok := formatID(record[key]); ok {
			return id, true
		}
	}
	return "", false
}

func formatID(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}
