package models

// TaxonomyFields is the read-only classification projection of a listing,
// sourced live from the listing store at scoring time. Any field may be empty.
type TaxonomyFields struct {
	Type        string `json:"product_type"`
	Category    string `json:"product_category"`
	Subcategory string `json:"product_subcategory"`
}

// IsEmpty reports whether no classification is present at all.
func (t TaxonomyFields) IsEmpty() bool {
	return t.Type == "" && t.Category == "" && t.Subcategory == ""
}
