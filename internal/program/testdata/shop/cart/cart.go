package cart

type Item struct {
	SKU string
	Qty int
}

type Cart struct {
	items []Item
}

func (c *Cart) Add(sku string, qty int) {
	c.items = append(c.items, Item{SKU: sku, Qty: qty})
}

func (c *Cart) Total(prices map[string]int) int {
	total := 0
	for _, it := range c.items {
		total += lineTotal(it, prices)
	}
	return total
}

func (c Cart) Len() int { return len(c.items) }

func New() *Cart { return &Cart{} }

func lineTotal(it Item, prices map[string]int) int {
	return prices[it.SKU] * it.Qty
}
