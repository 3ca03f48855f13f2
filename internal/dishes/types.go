// Package dishes holds the dish catalog domain types and the REST client for
// the dish data service.
package dishes

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Dimension is the record field a free-text search is matched against.
type Dimension string

const (
	DimensionName       Dimension = "name"
	DimensionIngredient Dimension = "ingredient"
	DimensionOrigin     Dimension = "origin"
	DimensionState      Dimension = "state"
)

// Dimensions lists the search dimensions in cycling order.
var Dimensions = []Dimension{DimensionName, DimensionIngredient, DimensionOrigin, DimensionState}

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Dimensions {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown search dimension %q (want name, ingredient, origin or state)", s)
}

// Next returns the dimension after d, wrapping around.
func (d Dimension) Next() Dimension {
	for i, known := range Dimensions {
		if d == known {
			return Dimensions[(i+1)%len(Dimensions)]
		}
	}
	return DimensionName
}

// SortField is a sortable record column.
type SortField string

const (
	SortNone          SortField = ""
	SortName          SortField = "name"
	SortDiet          SortField = "diet"
	SortPrepTime      SortField = "prep_time"
	SortCookTime      SortField = "cook_time"
	SortFlavorProfile SortField = "flavor_profile"
	SortCourse        SortField = "course"
	SortState         SortField = "state"
	SortRegion        SortField = "region"
)

// SortFields lists the sortable columns in display order.
var SortFields = []SortField{
	SortName, SortDiet, SortPrepTime, SortCookTime,
	SortFlavorProfile, SortCourse, SortState, SortRegion,
}

// ParseSortField validates a sort column. The empty string means the
// service's default order.
func ParseSortField(s string) (SortField, error) {
	f := SortField(strings.TrimSpace(s))
	if f == SortNone {
		return SortNone, nil
	}
	for _, known := range SortFields {
		if f == known {
			return f, nil
		}
	}
	return SortNone, fmt.Errorf("unknown sort field %q", s)
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Toggle flips the direction.
func (d SortDirection) Toggle() SortDirection {
	if d == SortDesc {
		return SortAsc
	}
	return SortDesc
}

// ParseSortDirection maps anything other than "desc" to ascending.
func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(s), string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// MatchMode controls whether a recommendation requires every selected
// ingredient or any one of them.
type MatchMode string

const (
	MatchAll MatchMode = "all"
	MatchAny MatchMode = "any"
)

// ParseMatchMode accepts "all", "any" and the service spelling "some".
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "":
		return MatchAll, nil
	case "any", "some":
		return MatchAny, nil
	default:
		return "", fmt.Errorf("unknown match mode %q (want all or any)", s)
	}
}

// Wire returns the value the recommendation endpoint expects.
func (m MatchMode) Wire() string {
	if m == MatchAny {
		return "some"
	}
	return "all"
}

// Toggle switches between all and any.
func (m MatchMode) Toggle() MatchMode {
	if m == MatchAny {
		return MatchAll
	}
	return MatchAny
}

// Suggestion is one autosuggest entry. An empty ID means the label is a
// filter value rather than a direct pointer to a record.
type Suggestion struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
}

// DefaultPageSize is used when neither the address nor the config set one.
const DefaultPageSize = 10

// ListParams is the complete parameter set of a list view.
type ListParams struct {
	Page          int
	PageSize      int
	Origin        string
	Ingredient    string
	State         string
	FreeText      string
	SortField     SortField
	SortDirection SortDirection
}

// DefaultListParams returns page 1 with the given page size.
func DefaultListParams(pageSize int) ListParams {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return ListParams{Page: 1, PageSize: pageSize, SortDirection: SortAsc}
}

// Normalize clamps page and page size to their floor of 1 and fills in a
// direction.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 1
	}
	if p.SortDirection != SortDesc {
		p.SortDirection = SortAsc
	}
	p.Origin = strings.TrimSpace(p.Origin)
	p.Ingredient = strings.TrimSpace(p.Ingredient)
	p.State = strings.TrimSpace(p.State)
	return p
}

// WithFilter returns p with the list parameter matching dim set to value and
// the page reset to 1.
func (p ListParams) WithFilter(dim Dimension, value string) ListParams {
	switch dim {
	case DimensionIngredient:
		p.Ingredient = value
	case DimensionOrigin:
		p.Origin = value
	case DimensionState:
		p.State = value
	default:
		p.FreeText = value
	}
	p.Page = 1
	return p
}

// HasFilters reports whether any filter or free-text value is set.
func (p ListParams) HasFilters() bool {
	return p.Origin != "" || p.Ingredient != "" || p.State != "" || p.FreeText != ""
}

// Query encodes the parameters for GET /dishes.
func (p ListParams) Query() url.Values {
	p = p.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.PageSize))
	setIf(q, "origin", p.Origin)
	setIf(q, "ingredient", p.Ingredient)
	setIf(q, "state", p.State)
	setIf(q, "q", p.FreeText)
	if p.SortField != SortNone {
		q.Set("sortBy", string(p.SortField))
		q.Set("sortOrder", string(p.SortDirection))
	}
	return q
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// ResultPage is one page of list results.
type ResultPage struct {
	Items []Record
	Total int
}

// TotalPages returns the page count for the given page size, at least 1.
func (r ResultPage) TotalPages(pageSize int) int {
	if pageSize < 1 || r.Total <= 0 {
		return 1
	}
	return (r.Total + pageSize - 1) / pageSize
}
