package domain

// Class is a single course entry from the static catalog.
type Class struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// Label is the human-readable "CODE Title" form shown in listings.
func (c Class) Label() string {
	if c.Code == "" {
		return c.Title
	}
	if c.Title == "" {
		return c.Code
	}
	return c.Code + " " + c.Title
}

// Category groups classes in the catalog.
type Category struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
