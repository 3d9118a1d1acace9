package address

// CreateInput carries the fields for a new saved address.
type CreateInput struct {
	Label      *string
	Street     string
	City       string
	State      string
	Country    string
	PostalCode string
	Phone      *string
	IsDefault  bool
}

// UpdateInput carries editable address fields. Nil means unchanged.
type UpdateInput struct {
	Label      *string
	Street     *string
	City       *string
	State      *string
	Country    *string
	PostalCode *string
	Phone      *string
	IsDefault  *bool
}
