package main

import (
	"example.com/shop/cart"
	"example.com/shop/store"
)

func main() {
	_ = run()
}

func run() int {
	c := cart.New()
	c.Add("apple", 2)
	return store.Open(map[string]int{"apple": 3}).Checkout(c)
}
