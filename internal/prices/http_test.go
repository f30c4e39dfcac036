package prices_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"PriceBoard/internal/prices"
)

// fixedNow anchors the trailing 15-week window in every scenario.
var fixedNow = time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC)

func newTS(t *testing.T, store prices.RecordStore) *httptest.Server {
	t.Helper()

	s := &prices.Server{
		Store: store,
		Log:   zap.NewNop(),
		Now:   func() time.Time { return fixedNow },
	}

	h := prices.NewHandler(s, prices.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "prices",
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func seedMilk(store *prices.MemStore) {
	store.AddProduct(prices.Product{
		ProductNum:  "P1",
		ProductName: "Whole Milk 1L",
		SearchTerms: []string{"milk"},
	})
	store.AddStore(prices.StoreInfo{StoreNum: "S1", StoreName: "Main St"})
	store.AddPrice(prices.PricePoint{
		ProductNum: "P1", StoreNum: "S1",
		Date: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), Amount: 3.50,
	})
	store.AddPrice(prices.PricePoint{
		ProductNum: "P1", StoreNum: "S1",
		Date: time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC), Amount: 3.75,
	})
}

func TestGetProductLatestPricePerStore(t *testing.T) {
	store := prices.NewMemStore()
	seedMilk(store)
	ts := newTS(t, store)

	resp, raw := get(t, ts.URL+"/api/products/GetProduct?search=milk")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}

	var rows []prices.EnrichedPrice
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatalf("decode: %v body=%s", err, raw)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d want 1", len(rows))
	}

	row := rows[0]
	if row.ProductNum != "P1" || row.StoreNum != "S1" {
		t.Fatalf("row key=(%s,%s)", row.ProductNum, row.StoreNum)
	}
	if row.LatestPrice != 3.75 {
		t.Fatalf("latest_price=%v want 3.75", row.LatestPrice)
	}
	if !row.LatestDate.Equal(time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("latest_date=%v", row.LatestDate)
	}
	if row.StoreName != "Main St" {
		t.Fatalf("store_name=%q", row.StoreName)
	}
	if row.ProductName != "Whole Milk 1L" {
		t.Fatalf("product_name=%q", row.ProductName)
	}
}

// thinSearchStore strips search results down to identifiers, the way a
// search index would; display metadata is only reachable via ProductsByNum.
type thinSearchStore struct {
	*prices.MemStore
}

func (s thinSearchStore) SearchProducts(ctx context.Context, term string) ([]prices.Product, error) {
	full, err := s.MemStore.SearchProducts(ctx, term)
	if err != nil {
		return nil, err
	}
	out := make([]prices.Product, 0, len(full))
	for _, p := range full {
		out = append(out, prices.Product{ProductNum: p.ProductNum})
	}
	return out, nil
}

func TestGetProductEnrichesFromMetadataLookup(t *testing.T) {
	store := prices.NewMemStore()
	seedMilk(store)
	ts := newTS(t, thinSearchStore{store})

	resp, raw := get(t, ts.URL+"/api/products/GetProduct?search=milk")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}

	var rows []prices.EnrichedPrice
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatalf("decode: %v body=%s", err, raw)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d want 1", len(rows))
	}
	if rows[0].ProductName != "Whole Milk 1L" {
		t.Fatalf("product_name=%q, metadata lookup skipped", rows[0].ProductName)
	}
}

func TestGetProductSearchIsCaseInsensitive(t *testing.T) {
	store := prices.NewMemStore()
	seedMilk(store)
	ts := newTS(t, store)

	resp, raw := get(t, ts.URL+"/api/products/GetProduct?search=MiLk")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}

	var rows []prices.EnrichedPrice
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d want 1", len(rows))
	}
}

func TestGetProductNoMatchReturnsEmptyArray(t *testing.T) {
	store := prices.NewMemStore()
	seedMilk(store)
	ts := newTS(t, store)

	resp, raw := get(t, ts.URL+"/api/products/GetProduct?search=nonexistent")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}
	if got := string(raw); got != "[]\n" {
		t.Fatalf("body=%q want empty array", got)
	}
}

func TestGetProductMissingSearchIs400BeforeStore(t *testing.T) {
	// errStore fails every query; a 400 proves the store was never touched.
	ts := newTS(t, errStore{})

	resp, raw := get(t, ts.URL+"/api/products/GetProduct")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}
}

func TestGetProductPlaceholdersForUnknownStore(t *testing.T) {
	store := prices.NewMemStore()
	store.AddProduct(prices.Product{ProductNum: "P1", ProductName: "Milk", SearchTerms: []string{"milk"}})
	store.AddPrice(prices.PricePoint{
		ProductNum: "P1", StoreNum: "S9",
		Date: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), Amount: 2.00,
	})
	ts := newTS(t, store)

	_, raw := get(t, ts.URL+"/api/products/GetProduct?search=milk")

	var rows []prices.EnrichedPrice
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d want 1", len(rows))
	}
	if rows[0].StoreName != "Unknown Store" {
		t.Fatalf("store_name=%q", rows[0].StoreName)
	}
	if rows[0].ProductBrand != "Unknown Brand" {
		t.Fatalf("product_brand=%q", rows[0].ProductBrand)
	}
}

func TestGetProductHistorySortedWithinWindow(t *testing.T) {
	store := prices.NewMemStore()
	store.AddPrice(prices.PricePoint{
		ProductNum: "P1", StoreNum: "S2",
		Date: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), Amount: 3.10,
	})
	store.AddPrice(prices.PricePoint{
		ProductNum: "P1", StoreNum: "S1",
		Date: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), Amount: 3.20,
	})
	store.AddPrice(prices.PricePoint{
		ProductNum: "P1", StoreNum: "S1",
		Date: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), Amount: 3.30,
	})
	// Older than 15 weeks before fixedNow, must not appear.
	store.AddPrice(prices.PricePoint{
		ProductNum: "P1", StoreNum: "S1",
		Date: time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), Amount: 9.99,
	})
	ts := newTS(t, store)

	resp, raw := get(t, ts.URL+"/api/prices/GetProductHistory?product_num=P1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}

	var rows []prices.HistoryPoint
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatalf("decode: %v body=%s", err, raw)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d want 3", len(rows))
	}

	// store_num ascending, then date descending.
	if rows[0].StoreNum != "S1" || rows[0].Amount != 3.30 {
		t.Fatalf("rows[0]=%+v", rows[0])
	}
	if rows[1].StoreNum != "S1" || rows[1].Amount != 3.20 {
		t.Fatalf("rows[1]=%+v", rows[1])
	}
	if rows[2].StoreNum != "S2" || rows[2].Amount != 3.10 {
		t.Fatalf("rows[2]=%+v", rows[2])
	}
}

func TestGetProductHistoryMissingParamIs400(t *testing.T) {
	ts := newTS(t, errStore{})

	resp, raw := get(t, ts.URL+"/api/prices/GetProductHistory")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}
}

func TestGetProductHistoryEmptyReturnsMessage(t *testing.T) {
	ts := newTS(t, prices.NewMemStore())

	resp, raw := get(t, ts.URL+"/api/prices/GetProductHistory?product_num=P1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "No price history found in the last 15 weeks." {
		t.Fatalf("message=%q", body.Message)
	}
}

func TestGetBasketPricesLatestUploadWins(t *testing.T) {
	store := prices.NewMemStore()
	// Same store and week uploaded twice; the later upload is authoritative.
	store.AddBasketPrice(prices.BasketPriceRecord{
		StoreNum: "S1", WeekStart: "2024-03-04", WeekEnd: "2024-03-10",
		BasketPrice: 52.10,
		UploadedAt:  time.Date(2024, time.March, 11, 8, 0, 0, 0, time.UTC),
	})
	store.AddBasketPrice(prices.BasketPriceRecord{
		StoreNum: "S1", WeekStart: "2024-03-04", WeekEnd: "2024-03-10",
		BasketPrice: 51.80,
		UploadedAt:  time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC),
	})
	store.AddBasketPrice(prices.BasketPriceRecord{
		StoreNum: "S1", WeekStart: "2024-03-11", WeekEnd: "2024-03-17",
		BasketPrice: 50.00,
		UploadedAt:  time.Date(2024, time.March, 18, 8, 0, 0, 0, time.UTC),
	})
	ts := newTS(t, store)

	resp, raw := get(t, ts.URL+"/api/baskets/GetBasketPrices")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}

	var rows []prices.BasketRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatalf("decode: %v body=%s", err, raw)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d want 2", len(rows))
	}

	// store_num ascending, weekStart descending.
	if rows[0].WeekStart != "2024-03-11" || rows[0].BasketPrice != 50.00 {
		t.Fatalf("rows[0]=%+v", rows[0])
	}
	if rows[1].WeekStart != "2024-03-04" || rows[1].BasketPrice != 51.80 {
		t.Fatalf("rows[1]=%+v want re-uploaded price", rows[1])
	}
}

func TestGetBasketPricesEmptyReturnsMessage(t *testing.T) {
	store := prices.NewMemStore()
	// Outside the trailing window.
	store.AddBasketPrice(prices.BasketPriceRecord{
		StoreNum: "S1", WeekStart: "2023-05-01", WeekEnd: "2023-05-07",
		BasketPrice: 48.00,
		UploadedAt:  time.Date(2023, time.May, 8, 0, 0, 0, 0, time.UTC),
	})
	ts := newTS(t, store)

	resp, raw := get(t, ts.URL+"/api/baskets/GetBasketPrices")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "No basket prices found in the last 15 weeks." {
		t.Fatalf("message=%q", body.Message)
	}
}

func TestStoreFailureIs500WithGenericBody(t *testing.T) {
	ts := newTS(t, errStore{})

	for _, url := range []string{
		ts.URL + "/api/products/GetProduct?search=milk",
		ts.URL + "/api/prices/GetProductHistory?product_num=P1",
		ts.URL + "/api/baskets/GetBasketPrices",
	} {
		resp, raw := get(t, url)
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("%s: status=%d body=%s", url, resp.StatusCode, raw)
		}

		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error != "server error" {
			t.Fatalf("%s: error=%q leaked detail?", url, body.Error)
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTS(t, prices.NewMemStore())

	resp, _ := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status=%d", resp.StatusCode)
	}

	resp, _ = get(t, ts.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}
}

func TestReadyzFailsWhenStoreDown(t *testing.T) {
	ts := newTS(t, errStore{})

	resp, _ := get(t, ts.URL+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}
}

var errDown = errors.New("store down")

type errStore struct{}

func (errStore) SearchProducts(_ context.Context, _ string) ([]prices.Product, error) {
	return nil, errDown
}

func (errStore) ProductsByNum(_ context.Context, _ []string) ([]prices.Product, error) {
	return nil, errDown
}

func (errStore) StoresByNum(_ context.Context, _ []string) ([]prices.StoreInfo, error) {
	return nil, errDown
}

func (errStore) PricesForProducts(_ context.Context, _ []string) ([]prices.PricePoint, error) {
	return nil, errDown
}

func (errStore) PricesForProduct(_ context.Context, _ string, _, _ time.Time) ([]prices.PricePoint, error) {
	return nil, errDown
}

func (errStore) BasketPricesBetween(_ context.Context, _, _ time.Time) ([]prices.BasketPriceRecord, error) {
	return nil, errDown
}

func (errStore) Ping(_ context.Context) error { return errDown }
