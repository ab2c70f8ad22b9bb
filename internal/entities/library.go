package entities

// Library is a named root directory with its own catalog.
type Library struct {
	ID   string `json:"id" validate:"required,uuid"`
	Name string `json:"name" validate:"required"`
	Path string `json:"path" validate:"required"`
}
