package capture

import "strings"

// Page pairs a URL path with the image file it produces.
type Page struct {
	Path string
	File string
}

// DefaultPages is the unauthenticated capture set.
var DefaultPages = []Page{
	{Path: "/", File: "page-top.png"},
	{Path: "/bonsai", File: "page-bonsai.png"},
}

// DefaultAuthPages is the capture set that requires a signed-in session.
var DefaultAuthPages = []Page{
	{Path: "/bonsai/new", File: "page-bonsai-new.png"},
	{Path: "/bonsai/quick-add", File: "page-bonsai-quick-add.png"},
}

// FromArgs builds the page list from positional path arguments.
func FromArgs(paths []string) []Page {
	pages := make([]Page, 0, len(paths))
	for _, p := range paths {
		pages = append(pages, Page{Path: p, File: OutputName(p)})
	}
	return pages
}

// OutputName slugs a URL path into an image file name. The root path maps
// to page-top.png.
func OutputName(path string) string {
	slug := strings.ReplaceAll(strings.Trim(path, "/"), "/", "-")
	if slug == "" {
		slug = "top"
	}
	return "page-" + slug + ".png"
}
