package prices

import (
	"context"
	"time"
)

type Product struct {
	ProductNum   string
	ProductName  string
	ProductBrand string
	ProductLink  string
	ImageURL     string
	Description  string
	SearchTerms  []string
}

type StoreInfo struct {
	StoreNum  string
	StoreName string
	City      string
}

type PricePoint struct {
	ProductNum   string
	StoreNum     string
	Date         time.Time
	Amount       float64
	PricePerUnit *float64
	Unit         string
}

type BasketPriceRecord struct {
	StoreNum    string
	WeekStart   string
	WeekEnd     string
	BasketPrice float64
	UploadedAt  time.Time
}

// RecordStore reads the four price-data collections. Implementations return
// records in insertion order so LatestPerGroup's tie-break (last inserted
// wins on equal timestamps) behaves the same against Postgres and memory.
// An empty result is a nil or empty slice, never an error.
type RecordStore interface {
	SearchProducts(ctx context.Context, term string) ([]Product, error)
	ProductsByNum(ctx context.Context, nums []string) ([]Product, error)
	StoresByNum(ctx context.Context, nums []string) ([]StoreInfo, error)
	PricesForProducts(ctx context.Context, nums []string) ([]PricePoint, error)
	PricesForProduct(ctx context.Context, num string, from, to time.Time) ([]PricePoint, error)
	BasketPricesBetween(ctx context.Context, from, to time.Time) ([]BasketPriceRecord, error)
	Ping(ctx context.Context) error
}
