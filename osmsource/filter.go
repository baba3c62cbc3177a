package osmsource

import (
	"strings"

	"github.com/paulmach/osm"
)

// Filter selects ways by their tags. The expression "building,amenity+name"
// matches ways tagged building, or tagged both amenity and name. A
// condition "key:value" also requires the value.
type Filter [][]condition

type condition struct {
	key   string
	value string
}

func ParseFilter(expr string) Filter {
	var f Filter
	for _, group := range strings.Split(expr, ",") {
		var and []condition
		for _, c := range strings.Split(group, "+") {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			key, value, _ := strings.Cut(c, ":")
			and = append(and, condition{key: key, value: value})
		}
		if len(and) > 0 {
			f = append(f, and)
		}
	}
	return f
}

// Match reports whether the tags satisfy any group. An empty filter falls
// back to the area heuristics of the osm package.
func (f Filter) Match(w *osm.Way) bool {
	if len(f) == 0 {
		return w.Polygon()
	}

	for _, and := range f {
		if matchAll(w.Tags, and) {
			return true
		}
	}
	return false
}

func matchAll(tags osm.Tags, conds []condition) bool {
	for _, c := range conds {
		if !tags.HasTag(c.key) {
			return false
		}
		if c.value != "" && tags.Find(c.key) != c.value {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	groups := make([]string, 0, len(f))
	for _, and := range f {
		conds := make([]string, 0, len(and))
		for _, c := range and {
			if c.value != "" {
				conds = append(conds, c.key+":"+c.value)
			} else {
				conds = append(conds, c.key)
			}
		}
		groups = append(groups, strings.Join(conds, "+"))
	}
	return strings.Join(groups, ",")
}
