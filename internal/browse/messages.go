package browse

import "github.com/runger/dishdex/internal/dishes"

// OpenDetailMsg asks the browser to show one dish.
type OpenDetailMsg struct {
	ID string
}

// ApplyFilterMsg merges a value into the list parameter for Dimension.
type ApplyFilterMsg struct {
	Dimension dishes.Dimension
	Value     string
}

// NavigateMsg switches the active view. Protected views are still subject
// to the login check.
type NavigateMsg struct {
	Route Route
}

// LocationChangedMsg reports that the location was changed outside the
// browser, for example by `dishdex open`.
type LocationChangedMsg struct{}
