// Package routes declares the wormhole section of the frontend route table.
//
// The table is data for a client-side router: it mounts nothing itself.
// Titles are stored as translation keys and resolved by Localize.
package routes

import "strings"

// Translation keys used by the wormhole routes.
const (
	TitleKeyWormhole = "page.wormhole.title"
	TitleKeySubmit   = "page.wormhole.submit"
)

// RouteMeta is the display metadata the client router reads.
type RouteMeta struct {
	AffixTab bool   `json:"affixTab,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Order    int    `json:"order,omitempty"`
	Title    string `json:"title"`
}

// RouteRecord is one node of the route table. Component names the view
// module to load lazily; it is empty for layout-only entries.
type RouteRecord struct {
	Name      string        `json:"name"`
	Path      string        `json:"path"`
	Component string        `json:"component,omitempty"`
	Meta      RouteMeta     `json:"meta"`
	Children  []RouteRecord `json:"children,omitempty"`
}

// Translator resolves a translation key.
type Translator func(key string) string

var table = []RouteRecord{
	{
		Name: "Wormhole",
		Path: "/wormhole",
		Meta: RouteMeta{
			Icon:  "lucide:layout-dashboard",
			Order: -1,
			Title: TitleKeyWormhole,
		},
		Children: []RouteRecord{
			{
				Name:      "Submit",
				Path:      "/submit",
				Component: "wormhole/submit",
				Meta: RouteMeta{
					AffixTab: true,
					Icon:     "lucide:area-chart",
					Title:    TitleKeySubmit,
				},
			},
		},
	},
}

// Table returns a copy of the route table with untranslated title keys.
func Table() []RouteRecord {
	return Localize(nil)
}

// Localize returns a copy of the route table with every title passed
// through t. A nil t leaves the keys in place.
func Localize(t Translator) []RouteRecord {
	return cloneAll(table, t)
}

func cloneAll(in []RouteRecord, t Translator) []RouteRecord {
	if in == nil {
		return nil
	}
	out := make([]RouteRecord, len(in))
	for i, r := range in {
		out[i] = r
		if t != nil {
			out[i].Meta.Title = t(r.Meta.Title)
		}
		out[i].Children = cloneAll(r.Children, t)
	}
	return out
}

// Paths returns every browser path the table mounts, parents first. A child
// path starting with "/" is absolute; otherwise it is joined to its parent.
func Paths() []string {
	var out []string
	var walk func(parent string, rs []RouteRecord)
	walk = func(parent string, rs []RouteRecord) {
		for _, r := range rs {
			p := r.Path
			if !strings.HasPrefix(p, "/") {
				p = strings.TrimSuffix(parent, "/") + "/" + p
			}
			out = append(out, p)
			walk(p, r.Children)
		}
	}
	walk("", table)
	return out
}
