package epub

import "strings"

// MARC relator codes used in opf:role attributes.
const (
	RoleAuthor       = "aut"
	RoleEditor       = "edt"
	RoleIllustrator  = "ill"
	RoleTranslator   = "trl"
	RoleNarrator     = "nrt"
	RoleContributor  = "ctb"
	RoleBookProducer = "bkp"
)

// AuthorNameToFileAs turns "Jane Q Doe" into the sort form "Doe, Jane Q".
// Single-word names are returned unchanged.
func AuthorNameToFileAs(name string) string {
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return strings.TrimSpace(name)
	}
	last := parts[len(parts)-1]
	return last + ", " + strings.Join(parts[:len(parts)-1], " ")
}
