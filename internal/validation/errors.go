package validation

import "blogsite/internal/models"

// Errors maps form field names to their validation messages.
type Errors map[string][]string

// Add appends msg to field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// AddNonField records an error that belongs to the form as a whole.
func (e Errors) AddNonField(msg string) {
	e.Add(models.NonFieldErrors, msg)
}

// Merge copies every message of other into e.
func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		for _, m := range msgs {
			e.Add(field, m)
		}
	}
}

// Empty reports whether no errors were recorded.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Err returns a form error carrying e, or nil when e is empty.
func (e Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return models.NewFormError(e)
}
