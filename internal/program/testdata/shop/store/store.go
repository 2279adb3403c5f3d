package store

import "example.com/shop/cart"

type Store struct {
	prices map[string]int
}

func Open(prices map[string]int) *Store {
	return &Store{prices: prices}
}

func (s *Store) Checkout(c *cart.Cart) int {
	return c.Total(s.prices)
}

type Stack[T any] struct {
	xs []T
}

func (s *Stack[T]) Push(v T) { s.xs = append(s.xs, v) }

func Map[T, U any](xs []T, f func(T) U) []U {
	out := make([]U, 0, len(xs))
	for _, x := range xs {
		out = append(out, f(x))
	}
	return out
}

func Logf(format string, args ...string) {}
