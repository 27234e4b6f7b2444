package domain

// SeedProducts is the sample catalog inserted the first time the product
// namespace is observed empty. Ids are fixed so seeding stays idempotent.
var SeedProducts = []Product{
	{
		ID:          "prod_seed_001",
		Name:        "Floral Summer Dress",
		Price:       49.99,
		Description: "Lightweight floral midi dress, perfect for warm days.",
		ImageURL:    "https://images.unsplash.com/photo-1595777457583-95e059d581b8?w=800",
		Category:    "Clothing",
	},
	{
		ID:          "prod_seed_002",
		Name:        "Linen Blazer",
		Price:       89.50,
		Description: "Relaxed-fit linen blazer in natural beige.",
		ImageURL:    "https://images.unsplash.com/photo-1591047139829-d91aecb6caea?w=800",
		Category:    "Clothing",
	},
	{
		ID:          "prod_seed_003",
		Name:        "Ceramic Vase Set",
		Price:       34.00,
		Description: "Set of three handmade ceramic vases in earth tones.",
		ImageURL:    "https://images.unsplash.com/photo-1578500494198-246f612d3b3d?w=800",
		Category:    "Home",
	},
	{
		ID:          "prod_seed_004",
		Name:        "Scented Soy Candle",
		Price:       18.99,
		Description: "Hand-poured soy candle with vanilla and sandalwood notes.",
		ImageURL:    "https://images.unsplash.com/photo-1602874801006-94b9d3b5e0f9?w=800",
		Category:    "Home",
	},
	{
		ID:          "prod_seed_005",
		Name:        "Collagen Peptides Powder",
		Price:       27.95,
		Description: "Unflavored collagen peptides, 30 servings per jar.",
		ImageURL:    "https://images.unsplash.com/photo-1593095948071-474c5cc2989d?w=800",
		Category:    "Supplements",
	},
	{
		ID:          "prod_seed_006",
		Name:        "Vitamin D3 + K2 Drops",
		Price:       21.50,
		Description: "High-absorption vitamin D3 with K2, 60-day supply.",
		ImageURL:    "https://images.unsplash.com/photo-1584308666744-24d5c474f2ae?w=800",
		Category:    "Supplements",
	},
	{
		ID:          "prod_seed_007",
		Name:        "Wireless Earbuds",
		Price:       59.99,
		Description: "Bluetooth earbuds with charging case and touch controls.",
		ImageURL:    "https://images.unsplash.com/photo-1572569511254-d8f925fe2cbb?w=800",
		Category:    "Amazon Various Items",
	},
	{
		ID:          "prod_seed_008",
		Name:        "Insulated Water Bottle",
		Price:       24.99,
		Description: "32oz stainless steel bottle, keeps drinks cold for 24 hours.",
		ImageURL:    "https://images.unsplash.com/photo-1602143407151-7111542de6e8?w=800",
		Category:    "Amazon Various Items",
	},
}
