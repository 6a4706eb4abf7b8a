package service

import (
	"strconv"
	"strings"

	"blogsite/internal/models"
)

// LastPage selects the final page of a listing.
const LastPage = "last"

// Paginate resolves the raw page parameter against count rows split into pages of perPage.
// An empty listing still has one (empty) page. Anything that is not a page number,
// "last", or a page inside the listing is NotFound.
func Paginate(count int64, perPage int, raw string) (models.Page, error) {
	if perPage <= 0 {
		perPage = 1
	}

	numPages := int((count + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}

	number := 1
	switch raw = strings.TrimSpace(raw); raw {
	case "":
	case LastPage:
		number = numPages
	default:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return models.Page{}, models.NewNotFoundError("Page", raw)
		}
		number = n
	}
	if number < 1 || number > numPages {
		return models.Page{}, models.NewNotFoundError("Page", raw)
	}

	page := models.Page{
		Number:      number,
		NumPages:    numPages,
		PerPage:     perPage,
		Count:       count,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
	if page.HasNext {
		next := number + 1
		page.NextPageNumber = &next
	}
	if page.HasPrevious {
		prev := number - 1
		page.PreviousPageNumber = &prev
	}
	return page, nil
}
