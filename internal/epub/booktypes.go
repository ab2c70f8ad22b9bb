package epub

// BookTypes is the closed set of dc:type values kept on parse. Anything else
// found in an archive is dropped.
var BookTypes = []string{
	"Fiction",
	"Non-Fiction",
	"Biography",
	"Autobiography",
	"Memoir",
	"History",
	"Science",
	"Philosophy",
	"Poetry",
	"Drama",
	"Essay",
	"Short Stories",
	"Anthology",
	"Reference",
	"Textbook",
	"Graphic Novel",
	"Comic",
	"Children",
	"Young Adult",
	"Self-Help",
	"Travel",
	"Cookbook",
	"Religion",
	"Art",
	"Business",
}

var bookTypeSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(BookTypes))
	for _, t := range BookTypes {
		m[t] = struct{}{}
	}
	return m
}()

// IsBookType reports whether t belongs to BookTypes.
func IsBookType(t string) bool {
	_, ok := bookTypeSet[t]
	return ok
}
