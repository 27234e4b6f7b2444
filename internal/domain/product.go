package domain

// Product is the sole persisted catalog entity. ImageURL holds either an
// external URL or a base64 data URI produced from an uploaded file.
type Product struct {
	ID          string  `dynamodbav:"id" json:"id"`
	Name        string  `dynamodbav:"name" json:"name"`
	Price       float64 `dynamodbav:"price" json:"price"`
	Description string  `dynamodbav:"description" json:"description"`
	ImageURL    string  `dynamodbav:"imageUrl" json:"imageUrl"`
	Category    string  `dynamodbav:"category" json:"category"`
}

func (p Product) EntityID() string {
	return p.ID
}

// Categories is the closed set of catalog categories. Every create and
// update must use one of these labels.
var Categories = []string{
	"Clothing",
	"Home",
	"Supplements",
	"Amazon Various Items",
}

// IsValidCategory reports whether label is a member of the category set.
func IsValidCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}
