// Package demo holds the sample catalog used by demo seeding and the utils CLI.
package demo

const (
	SeedID          = "2026-10-01_demo_posts_v1"
	SeedApplication = "marketplace_demo"
	SeedDescription = "Create a handful of fresh demo posts from demo suppliers"
)

type Post struct {
	Title       string
	Category    string
	Chef        string
	SupplierID  string
	Price       string
	Quantity    int
	Images      []string
	Ingredients []string
	Location    string
	Postcode    string
}

var Suppliers = []string{
	"demo-supplier-amira",
	"demo-supplier-farhan",
	"demo-supplier-nadia",
}

var Posts = []Post{
	{
		Title:       "Chicken Biryani",
		Category:    "Chicken",
		Chef:        "Amira",
		SupplierID:  "demo-supplier-amira",
		Price:       "£4.50",
		Quantity:    6,
		Images:      []string{"demo/chicken-biryani.jpg"},
		Ingredients: []string{"basmati rice", "chicken thigh", "saffron", "fried onion"},
		Location:    "Whitechapel",
		Postcode:    "E1 1BB",
	},
	{
		Title:       "Mutton Nihari",
		Category:    "Mutton",
		Chef:        "Farhan",
		SupplierID:  "demo-supplier-farhan",
		Price:       "£6.00",
		Quantity:    4,
		Images:      []string{"demo/mutton-nihari.jpg", "demo/naan.jpg"},
		Ingredients: []string{"mutton shank", "ginger", "garam masala"},
		Location:    "Bethnal Green",
		Postcode:    "E2 0AN",
	},
	{
		Title:       "Prawn Malai Curry",
		Category:    "Prawns",
		Chef:        "Nadia",
		SupplierID:  "demo-supplier-nadia",
		Price:       "£5.25",
		Quantity:    3,
		Images:      []string{"demo/prawn-malai.jpg"},
		Ingredients: []string{"tiger prawns", "coconut milk", "mustard oil"},
		Location:    "Stepney",
		Postcode:    "E1 0RH",
	},
	{
		Title:       "Fish Bhuna",
		Category:    "Fish",
		Chef:        "Amira",
		SupplierID:  "demo-supplier-amira",
		Price:       "£3.75",
		Quantity:    5,
		Images:      []string{"demo/fish-bhuna.jpg"},
		Ingredients: []string{"rohu", "tomato", "turmeric"},
		Location:    "Whitechapel",
		Postcode:    "E1 1BB",
	},
	{
		Title:       "Vegetable Samosas",
		Category:    "Other",
		Chef:        "Farhan",
		SupplierID:  "demo-supplier-farhan",
		Price:       "Free",
		Quantity:    12,
		Images:      []string{"demo/samosas.jpg"},
		Ingredients: []string{"potato", "peas", "pastry"},
		Location:    "Bethnal Green",
		Postcode:    "E2 0AN",
	},
}
