package foodcategory

import "strings"

type Category struct {
	Name string
}

func (c Category) Code() string {
	return c.Name
}

func (c Category) Label() string {
	return c.Name
}

type Enum struct {
	Chicken Category
	Mutton  Category
	Prawns  Category
	Fish    Category
	Other   Category
}

var Categories = Enum{
	Chicken: Category{Name: "Chicken"},
	Mutton:  Category{Name: "Mutton"},
	Prawns:  Category{Name: "Prawns"},
	Fish:    Category{Name: "Fish"},
	Other:   Category{Name: "Other"},
}

var All = []Category{
	Categories.Chicken,
	Categories.Mutton,
	Categories.Prawns,
	Categories.Fish,
	Categories.Other,
}

// ByName matches case-insensitively and returns nil when the name is unknown.
func ByName(name string) *Category {
	name = strings.TrimSpace(name)
	for _, c := range All {
		if strings.EqualFold(c.Name, name) {
			return &c
		}
	}
	return nil
}
