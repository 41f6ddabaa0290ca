// Package schema names the tables and columns the data provider may touch.
//
// Collections and columns arriving through the generic data boundary are
// checked against this registry before they are spliced into SQL.
package schema

import "slices"

var collections = map[string][]string{
	Plants.Table:       Plants.Columns(),
	Blogs.Table:        Blogs.Columns(),
	Testimonials.Table: Testimonials.Columns(),
	Settings.Table:     Settings.Columns(),
}

// Collections returns the names of every content collection.
func Collections() []string {
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// HasCollection reports whether name is a content collection.
func HasCollection(name string) bool {
	_, ok := collections[name]
	return ok
}

// HasColumn reports whether column belongs to the collection.
func HasColumn(collection, column string) bool {
	return slices.Contains(collections[collection], column)
}
