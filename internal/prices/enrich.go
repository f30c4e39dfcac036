package prices

import "time"

const (
	unknownProduct = "Unknown Product"
	unknownBrand   = "Unknown Brand"
	unknownStore   = "Unknown Store"
)

type EnrichedPrice struct {
	ProductNum   string    `json:"product_num"`
	StoreNum     string    `json:"store_num"`
	StoreName    string    `json:"store_name"`
	ProductName  string    `json:"product_name"`
	ProductBrand string    `json:"product_brand"`
	ProductLink  string    `json:"product_link"`
	ImageURL     string    `json:"image_url"`
	Description  string    `json:"description"`
	LatestPrice  float64   `json:"latest_price"`
	LatestDate   time.Time `json:"latest_date"`
	Unit         string    `json:"unit"`
}

func productMap(products []Product) map[string]Product {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.ProductNum] = p
	}
	return m
}

func storeNameMap(stores []StoreInfo) map[string]string {
	m := make(map[string]string, len(stores))
	for _, s := range stores {
		m[s.StoreNum] = s.StoreName
	}
	return m
}

// EnrichPrices attaches product and store display metadata to aggregated
// price rows. Rows whose identifiers miss the lookups get placeholder values
// instead of being dropped, so the output always has one row per input row.
func EnrichPrices(rows []PricePoint, products map[string]Product, storeNames map[string]string) []EnrichedPrice {
	out := make([]EnrichedPrice, 0, len(rows))
	for _, row := range rows {
		e := EnrichedPrice{
			ProductNum:   row.ProductNum,
			StoreNum:     row.StoreNum,
			StoreName:    unknownStore,
			ProductName:  unknownProduct,
			ProductBrand: unknownBrand,
			LatestPrice:  row.Amount,
			LatestDate:   row.Date,
			Unit:         row.Unit,
		}

		if name, ok := storeNames[row.StoreNum]; ok && name != "" {
			e.StoreName = name
		}
		if p, ok := products[row.ProductNum]; ok {
			// Fallbacks apply per field: a cataloged product with a blank
			// name still renders as "Unknown Product".
			if p.ProductName != "" {
				e.ProductName = p.ProductName
			}
			if p.ProductBrand != "" {
				e.ProductBrand = p.ProductBrand
			}
			e.ProductLink = p.ProductLink
			e.ImageURL = p.ImageURL
			e.Description = p.Description
		}

		out = append(out, e)
	}
	return out
}
