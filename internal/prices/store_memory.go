package prices

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemStore keeps the collections in insertion-ordered slices. Used in tests
// and for running the service without a database.
type MemStore struct {
	mu       sync.RWMutex
	products []Product
	stores   []StoreInfo
	prices   []PricePoint
	baskets  []BasketPriceRecord
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) AddProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	terms := make([]string, len(p.SearchTerms))
	for i, t := range p.SearchTerms {
		terms[i] = strings.ToLower(t)
	}
	p.SearchTerms = terms
	s.products = append(s.products, p)
}

func (s *MemStore) AddStore(st StoreInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores = append(s.stores, st)
}

func (s *MemStore) AddPrice(p PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = append(s.prices, p)
}

func (s *MemStore) AddBasketPrice(b BasketPriceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baskets = append(s.baskets, b)
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) SearchProducts(ctx context.Context, term string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, 4)
	for _, p := range s.products {
		if slices.Contains(p.SearchTerms, term) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemStore) ProductsByNum(ctx context.Context, nums []string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(nums))
	for _, p := range s.products {
		if slices.Contains(nums, p.ProductNum) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemStore) StoresByNum(ctx context.Context, nums []string) ([]StoreInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StoreInfo, 0, len(nums))
	for _, st := range s.stores {
		if slices.Contains(nums, st.StoreNum) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *MemStore) PricesForProducts(ctx context.Context, nums []string) ([]PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PricePoint, 0, len(s.prices))
	for _, p := range s.prices {
		if slices.Contains(nums, p.ProductNum) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemStore) PricesForProduct(ctx context.Context, num string, from, to time.Time) ([]PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]PricePoint, 0, len(s.prices))
	for _, p := range s.prices {
		if p.ProductNum == num {
			matched = append(matched, p)
		}
	}

	w := Window{Start: from, End: to}
	return FilterWindow(matched, func(p PricePoint) time.Time { return p.Date }, w), nil
}

func (s *MemStore) BasketPricesBetween(ctx context.Context, from, to time.Time) ([]BasketPriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w := Window{Start: from, End: to}
	return FilterWindow(s.baskets, func(b BasketPriceRecord) time.Time { return b.UploadedAt }, w), nil
}
