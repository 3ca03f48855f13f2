package location

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/runger/dishdex/internal/dishes"
)

// List parameter keys. They match the dish service query names so an
// address can be handed to the service unchanged.
const (
	KeyPage       = "page"
	KeyLimit      = "limit"
	KeyOrigin     = "origin"
	KeyIngredient = "ingredient"
	KeyState      = "state"
	KeyQuery      = "q"
	KeySortBy     = "sortBy"
	KeySortOrder  = "sortOrder"
)

// ReadList decodes list parameters from v. Missing or invalid values fall
// back to def.
func ReadList(v url.Values, def dishes.ListParams) dishes.ListParams {
	p := def.Normalize()
	p.Page = readPositive(v.Get(KeyPage), p.Page)
	p.PageSize = readPositive(v.Get(KeyLimit), p.PageSize)
	p.Origin = strings.TrimSpace(v.Get(KeyOrigin))
	p.Ingredient = strings.TrimSpace(v.Get(KeyIngredient))
	p.State = strings.TrimSpace(v.Get(KeyState))
	p.FreeText = strings.TrimSpace(v.Get(KeyQuery))

	if raw := v.Get(KeySortBy); raw != "" {
		if f, err := dishes.ParseSortField(raw); err == nil {
			p.SortField = f
		}
	}
	if raw := v.Get(KeySortOrder); raw != "" {
		p.SortDirection = dishes.ParseSortDirection(raw)
	}
	return p.Normalize()
}

func readPositive(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	if n < 1 {
		return 1
	}
	return n
}

// EncodeList writes p into v, removing keys whose value is empty or equal to
// the default. Keys that are not list parameters are left alone.
func EncodeList(v url.Values, p, def dishes.ListParams) {
	p = p.Normalize()
	def = def.Normalize()

	page, limit := "", ""
	if p.Page != def.Page {
		page = strconv.Itoa(p.Page)
	}
	if p.PageSize != def.PageSize {
		limit = strconv.Itoa(p.PageSize)
	}
	Set(v, KeyPage, page)
	Set(v, KeyLimit, limit)
	Set(v, KeyOrigin, p.Origin)
	Set(v, KeyIngredient, p.Ingredient)
	Set(v, KeyState, p.State)
	Set(v, KeyQuery, p.FreeText)

	// ReadList falls back to def for a missing sortBy or sortOrder, so each
	// is written only when it differs from def.
	sortBy, sortOrder := "", ""
	if p.SortField != def.SortField {
		sortBy = string(p.SortField)
	}
	if p.SortField != dishes.SortNone && p.SortDirection != def.SortDirection {
		sortOrder = string(p.SortDirection)
	}
	Set(v, KeySortBy, sortBy)
	Set(v, KeySortOrder, sortOrder)
}

// WriteList performs a read-modify-write of the list parameters against loc.
// It reports whether the address changed.
func WriteList(loc Location, p, def dishes.ListParams) bool {
	v := loc.Values()
	EncodeList(v, p, def)
	return loc.Replace(v)
}
