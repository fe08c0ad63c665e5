package models

// Account is a registered user of the multi-account variant, and also the
// shape of the session record. Password is kept in plain text; see DESIGN.md.
type Account struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FirstName returns the first word of the display name, or "" when the name
// is blank.
func (a Account) FirstName() string {
	for i, r := range a.Name {
		if r == ' ' {
			return a.Name[:i]
		}
	}
	return a.Name
}
