package domain

// Product is the read-only catalog view of a sellable item. PricePaise is the
// unit price in the smallest currency unit so amounts stay integral.
type Product struct {
	ID         string
	Name       string
	PricePaise int64
	Stock      int
}
