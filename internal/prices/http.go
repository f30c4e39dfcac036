package prices

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"PriceBoard/pkg/kit"
)

// trailingWeeks bounds history and basket aggregation to a rolling window
// ending at request time.
const trailingWeeks = 15

const (
	noHistoryMessage = "No price history found in the last 15 weeks."
	noBasketsMessage = "No basket prices found in the last 15 weeks."
)

type Server struct {
	Store RecordStore
	Log   *zap.Logger

	// Now overrides the request clock; tests pin it to make the trailing
	// window reproducible.
	Now func() time.Time
}

type HistoryPoint struct {
	StoreNum     string    `json:"store_num"`
	Date         time.Time `json:"date"`
	Amount       float64   `json:"amount"`
	PricePerUnit *float64  `json:"price_per_unit"`
	Unit         string    `json:"unit"`
}

type BasketRow struct {
	StoreNum     string    `json:"store_num"`
	WeekStart    string    `json:"weekStart"`
	WeekEnd      string    `json:"weekEnd"`
	BasketPrice  float64   `json:"basket_price"`
	LatestUpload time.Time `json:"latest_upload"`
}

type messageBody struct {
	Message string `json:"message"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			if s.Log != nil {
				s.Log.Warn("readyz failed", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/api/products/GetProduct", s.getProduct)
	r.Get("/api/prices/GetProductHistory", s.getProductHistory)
	r.Get("/api/baskets/GetBasketPrices", s.getBasketPrices)

	return r
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	if search == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "Search term is required", nil)
		return
	}

	ctx := r.Context()

	products, err := s.Store.SearchProducts(ctx, strings.ToLower(search))
	if err != nil {
		s.serverError(w, r, "search products failed", err)
		return
	}
	if len(products) == 0 {
		kit.WriteJSON(w, http.StatusOK, []EnrichedPrice{})
		return
	}

	nums := make([]string, 0, len(products))
	for _, p := range products {
		nums = append(nums, p.ProductNum)
	}

	points, err := s.Store.PricesForProducts(ctx, nums)
	if err != nil {
		s.serverError(w, r, "load prices failed", err)
		return
	}

	latest := LatestPerGroup(points,
		func(p PricePoint) [2]string { return [2]string{p.ProductNum, p.StoreNum} },
		func(p PricePoint) time.Time { return p.Date })

	stores, err := s.Store.StoresByNum(ctx, storeNums(latest))
	if err != nil {
		s.serverError(w, r, "load stores failed", err)
		return
	}

	// Display metadata comes from its own lookup rather than the search
	// result, so search can stay a thin index over identifiers.
	meta, err := s.Store.ProductsByNum(ctx, nums)
	if err != nil {
		s.serverError(w, r, "load product metadata failed", err)
		return
	}

	rows := EnrichPrices(latest, productMap(meta), storeNameMap(stores))
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProductNum != rows[j].ProductNum {
			return rows[i].ProductNum < rows[j].ProductNum
		}
		return rows[i].StoreNum < rows[j].StoreNum
	})

	kit.WriteJSON(w, http.StatusOK, rows)
}

func (s *Server) getProductHistory(w http.ResponseWriter, r *http.Request) {
	num := strings.TrimSpace(r.URL.Query().Get("product_num"))
	if num == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "Product number is required", nil)
		return
	}

	win := TrailingWeeks(s.now(), trailingWeeks)

	points, err := s.Store.PricesForProduct(r.Context(), num, win.Start, win.End)
	if err != nil {
		s.serverError(w, r, "load price history failed", err)
		return
	}
	if len(points) == 0 {
		kit.WriteJSON(w, http.StatusOK, messageBody{Message: noHistoryMessage})
		return
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].StoreNum != points[j].StoreNum {
			return points[i].StoreNum < points[j].StoreNum
		}
		return points[i].Date.After(points[j].Date)
	})

	rows := make([]HistoryPoint, 0, len(points))
	for _, p := range points {
		rows = append(rows, HistoryPoint{
			StoreNum:     p.StoreNum,
			Date:         p.Date,
			Amount:       p.Amount,
			PricePerUnit: p.PricePerUnit,
			Unit:         p.Unit,
		})
	}

	kit.WriteJSON(w, http.StatusOK, rows)
}

func (s *Server) getBasketPrices(w http.ResponseWriter, r *http.Request) {
	win := TrailingWeeks(s.now(), trailingWeeks)

	records, err := s.Store.BasketPricesBetween(r.Context(), win.Start, win.End)
	if err != nil {
		s.serverError(w, r, "load basket prices failed", err)
		return
	}

	latest := LatestPerGroup(records,
		func(b BasketPriceRecord) [3]string { return [3]string{b.StoreNum, b.WeekStart, b.WeekEnd} },
		func(b BasketPriceRecord) time.Time { return b.UploadedAt })

	if len(latest) == 0 {
		kit.WriteJSON(w, http.StatusOK, messageBody{Message: noBasketsMessage})
		return
	}

	sort.Slice(latest, func(i, j int) bool {
		if latest[i].StoreNum != latest[j].StoreNum {
			return latest[i].StoreNum < latest[j].StoreNum
		}
		return latest[i].WeekStart > latest[j].WeekStart
	})

	rows := make([]BasketRow, 0, len(latest))
	for _, b := range latest {
		rows = append(rows, BasketRow{
			StoreNum:     b.StoreNum,
			WeekStart:    b.WeekStart,
			WeekEnd:      b.WeekEnd,
			BasketPrice:  b.BasketPrice,
			LatestUpload: b.UploadedAt,
		})
	}

	kit.WriteJSON(w, http.StatusOK, rows)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if s.Log != nil {
		s.Log.Error(msg, zap.Error(err))
	}
	kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
}

func storeNums(points []PricePoint) []string {
	seen := make(map[string]struct{}, len(points))
	out := make([]string, 0, len(points))
	for _, p := range points {
		if _, ok := seen[p.StoreNum]; ok {
			continue
		}
		seen[p.StoreNum] = struct{}{}
		out = append(out, p.StoreNum)
	}
	return out
}
