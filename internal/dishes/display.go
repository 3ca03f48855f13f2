package dishes

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Fallback is shown in place of a missing value.
const Fallback = "-"

// Display renders a field value, substituting Fallback for nil, empty
// strings and the -1 sentinel.
func Display(v any) string {
	switch val := v.(type) {
	case nil:
		return Fallback
	case string:
		return displayString(val)
	case *string:
		if val == nil {
			return Fallback
		}
		return displayString(*val)
	case int:
		if val == Unknown {
			return Fallback
		}
		return strconv.Itoa(val)
	case *int:
		if val == nil {
			return Fallback
		}
		return Display(*val)
	case []string:
		joined := strings.Join(cleanTokens(val), ", ")
		return displayString(joined)
	case json.RawMessage:
		return displayRaw(val)
	default:
		return Fallback
	}
}

func displayString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "-1" {
		return Fallback
	}
	return s
}

func displayRaw(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Fallback
	}
	if s, err := decodeScalar(raw); err == nil {
		return displayString(s)
	}
	return string(raw)
}

// Field returns the display value of a sortable column.
func (r Record) Field(f SortField) string {
	switch f {
	case SortName:
		return Display(r.Name)
	case SortDiet:
		return Display(r.Diet)
	case SortPrepTime:
		return Display(r.PrepTime)
	case SortCookTime:
		return Display(r.CookTime)
	case SortFlavorProfile:
		return Display(r.FlavorProfile)
	case SortCourse:
		return Display(r.Course)
	case SortState:
		return Display(r.State)
	case SortRegion:
		return Display(r.Region)
	default:
		return Fallback
	}
}

// ColumnTitle is the header label of a sortable column.
func ColumnTitle(f SortField) string {
	switch f {
	case SortPrepTime:
		return "Prep"
	case SortCookTime:
		return "Cook"
	case SortFlavorProfile:
		return "Flavor"
	case SortNone:
		return ""
	default:
		s := string(f)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}
