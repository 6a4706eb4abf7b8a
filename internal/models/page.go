package models

// Page describes one slice of a paginated listing.
type Page struct {
	Number             int   `json:"number"`
	NumPages           int   `json:"num_pages"`
	PerPage            int   `json:"per_page"`
	Count              int64 `json:"count"`
	HasNext            bool  `json:"has_next"`
	HasPrevious        bool  `json:"has_previous"`
	NextPageNumber     *int  `json:"next_page_number,omitempty"`
	PreviousPageNumber *int  `json:"previous_page_number,omitempty"`
}

// Offset returns the number of rows preceding the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// PostPage is a page of posts together with its pagination metadata.
type PostPage struct {
	Posts []*Post `json:"posts"`
	Page  Page    `json:"page"`
}
