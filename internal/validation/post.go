package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"blogsite/internal/models"
)

// PostForm holds the editable post fields. Author is never part of the form.
type PostForm struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
}

// Validate enforces a required title of bounded length and required content.
func (f PostForm) Validate() Errors {
	errs := Errors{}
	if strings.TrimSpace(f.Title) == "" {
		errs.Add("title", msgFieldRequired)
	} else if n := utf8.RuneCountInString(f.Title); n > models.PostTitleMaxLen {
		errs.Add("title", fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", models.PostTitleMaxLen, n))
	}
	if strings.TrimSpace(f.Content) == "" {
		errs.Add("content", msgFieldRequired)
	}
	return errs
}
