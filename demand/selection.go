package demand

// Selection chooses which products an operation covers: exactly one product
// or every product in the dataset. The zero value selects nothing and is
// rejected by the engine.
type Selection struct {
	product ProductID
	all     bool
}

// One selects a single product.
func One(product ProductID) Selection {
	return Selection{product: product}
}

// All selects every product in the dataset.
func All() Selection {
	return Selection{all: true}
}

// IsAll reports whether the selection covers every product.
func (s Selection) IsAll() bool { return s.all }

// Product returns the selected product. ok is false for All.
func (s Selection) Product() (ProductID, bool) {
	return s.product, !s.all && s.product != ""
}

func (s Selection) String() string {
	if s.all {
		return "all"
	}
	return string(s.product)
}

func (s Selection) validate() error {
	if !s.all && s.product == "" {
		return &ValidationError{Field: "product", Reason: "a product or all products must be selected"}
	}
	return nil
}
