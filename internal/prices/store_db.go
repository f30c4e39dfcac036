package prices

import (
	"context"
	"database/sql"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// PostgresStore reads the collections from Postgres. Every listing query
// orders by the seq column (insertion order) so aggregation tie-breaks are
// deterministic.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

const productColumns = `
	product_num,
	COALESCE(product_name, ''),
	COALESCE(product_brand, ''),
	COALESCE(product_link, ''),
	COALESCE(image_url, ''),
	COALESCE(description, '')
`

func (s *PostgresStore) SearchProducts(ctx context.Context, term string) ([]Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE $1 = ANY(search_terms)
		ORDER BY seq ASC
	`, term)
}

func (s *PostgresStore) ProductsByNum(ctx context.Context, nums []string) ([]Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE product_num = ANY($1)
		ORDER BY seq ASC
	`, nums)
}

func (s *PostgresStore) queryProducts(ctx context.Context, q string, arg any) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, q, arg)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			var p Product
			if err := rows.Scan(&p.ProductNum, &p.ProductName, &p.ProductBrand,
				&p.ProductLink, &p.ImageURL, &p.Description); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) StoresByNum(ctx context.Context, nums []string) ([]StoreInfo, error) {
	var out []StoreInfo

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT store_num, COALESCE(store_name, ''), COALESCE(city, '')
			FROM stores
			WHERE store_num = ANY($1)
			ORDER BY seq ASC
		`, nums)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]StoreInfo, 0, len(nums))
		for rows.Next() {
			var st StoreInfo
			if err := rows.Scan(&st.StoreNum, &st.StoreName, &st.City); err != nil {
				return err
			}
			out = append(out, st)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) PricesForProducts(ctx context.Context, nums []string) ([]PricePoint, error) {
	return s.queryPrices(ctx, `
		SELECT product_num, store_num, date, amount, price_per_unit, COALESCE(unit, '')
		FROM prices
		WHERE product_num = ANY($1)
		ORDER BY seq ASC
	`, nums)
}

func (s *PostgresStore) PricesForProduct(ctx context.Context, num string, from, to time.Time) ([]PricePoint, error) {
	return s.queryPrices(ctx, `
		SELECT product_num, store_num, date, amount, price_per_unit, COALESCE(unit, '')
		FROM prices
		WHERE product_num = $1 AND date >= $2 AND date <= $3
		ORDER BY seq ASC
	`, num, from, to)
}

func (s *PostgresStore) queryPrices(ctx context.Context, q string, args ...any) ([]PricePoint, error) {
	var out []PricePoint

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]PricePoint, 0, 64)
		for rows.Next() {
			var (
				p   PricePoint
				ppu sql.NullFloat64
			)
			if err := rows.Scan(&p.ProductNum, &p.StoreNum, &p.Date,
				&p.Amount, &ppu, &p.Unit); err != nil {
				return err
			}
			if ppu.Valid {
				v := ppu.Float64
				p.PricePerUnit = &v
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) BasketPricesBetween(ctx context.Context, from, to time.Time) ([]BasketPriceRecord, error) {
	var out []BasketPriceRecord

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT store_num, week_start, week_end, basket_price, uploaded_at
			FROM basket_prices
			WHERE uploaded_at >= $1 AND uploaded_at <= $2
			ORDER BY seq ASC
		`, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]BasketPriceRecord, 0, 32)
		for rows.Next() {
			var b BasketPriceRecord
			if err := rows.Scan(&b.StoreNum, &b.WeekStart, &b.WeekEnd,
				&b.BasketPrice, &b.UploadedAt); err != nil {
				return err
			}
			out = append(out, b)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
