// backend-go/internal/dataset/loader.go
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailinsight/backend-go/internal/domain"
)

const dateLayout = "2006-01-02"

// Default snapshot filenames inside a data directory.
const (
	SalesFile    = "sales_dataset.csv"
	ProductsFile = "products_master.csv"
	CalendarFile = "calendar_dataset.csv"
)

// Snapshot holds one consistent read-only view of the three input tables.
type Snapshot struct {
	Sales    []domain.SalesRecord
	Products []domain.Product
	Calendar []domain.CalendarEntry

	byProduct map[domain.ProductID][]domain.SalesRecord
	byDate    map[string]domain.CalendarEntry
	products  map[domain.ProductID]domain.Product
}

// Load reads the three snapshot CSVs from dir and validates them against the
// boundary schema. Every sales date must resolve to a calendar entry.
func Load(dir string) (*Snapshot, error) {
	sales, err := loadSales(filepath.Join(dir, SalesFile))
	if err != nil {
		return nil, err
	}
	products, err := loadProducts(filepath.Join(dir, ProductsFile))
	if err != nil {
		return nil, err
	}
	calendar, err := loadCalendar(filepath.Join(dir, CalendarFile))
	if err != nil {
		return nil, err
	}

	return NewSnapshot(sales, products, calendar)
}

// NewSnapshot indexes already-parsed tables and enforces the calendar
// alignment invariant.
func NewSnapshot(sales []domain.SalesRecord, products []domain.Product, calendar []domain.CalendarEntry) (*Snapshot, error) {
	s := &Snapshot{
		Sales:     sales,
		Products:  products,
		Calendar:  calendar,
		byProduct: make(map[domain.ProductID][]domain.SalesRecord),
		byDate:    make(map[string]domain.CalendarEntry, len(calendar)),
		products:  make(map[domain.ProductID]domain.Product, len(products)),
	}

	for _, c := range calendar {
		s.byDate[c.Date.Format(dateLayout)] = c
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	for _, r := range sales {
		if _, ok := s.byDate[r.Date.Format(dateLayout)]; !ok {
			return nil, &domain.SchemaViolationError{
				Table:  "sales",
				Detail: fmt.Sprintf("date %s has no matching calendar entry", r.Date.Format(dateLayout)),
			}
		}
		s.byProduct[r.ProductID] = append(s.byProduct[r.ProductID], r)
	}
	for id := range s.byProduct {
		recs := s.byProduct[id]
		sort.Slice(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
	}

	return s, nil
}

// SalesFor returns the product's sales sorted by date.
func (s *Snapshot) SalesFor(id domain.ProductID) []domain.SalesRecord {
	return s.byProduct[id]
}

// Product returns the product master row for id.
func (s *Snapshot) Product(id domain.ProductID) (domain.Product, bool) {
	p, ok := s.products[id]
	return p, ok
}

// CalendarFor returns the calendar entry for a date.
func (s *Snapshot) CalendarFor(date time.Time) (domain.CalendarEntry, bool) {
	c, ok := s.byDate[date.Format(dateLayout)]
	return c, ok
}

// ProductIDs returns all product ids with at least one sale or a master row,
// sorted for deterministic iteration.
func (s *Snapshot) ProductIDs() []domain.ProductID {
	seen := make(map[domain.ProductID]struct{}, len(s.products))
	for id := range s.products {
		seen[id] = struct{}{}
	}
	for id := range s.byProduct {
		seen[id] = struct{}{}
	}
	ids := make([]domain.ProductID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Categories returns the distinct raw category strings from the product
// master, sorted.
func (s *Snapshot) Categories() []string {
	seen := make(map[string]struct{})
	for _, p := range s.Products {
		if p.Category != "" {
			seen[p.Category] = struct{}{}
		}
	}
	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// DailySeries aggregates a product's sales into one total per date, sorted.
func (s *Snapshot) DailySeries(id domain.ProductID) []domain.HistoryPoint {
	totals := make(map[string]int64)
	for _, r := range s.byProduct[id] {
		totals[r.Date.Format(dateLayout)] += r.QuantitySold
	}
	points := make([]domain.HistoryPoint, 0, len(totals))
	for d, q := range totals {
		t, _ := time.Parse(dateLayout, d)
		points = append(points, domain.HistoryPoint{Date: t, Quantity: q})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}

// columnIndex maps required/optional header names to positions,
// order-insensitively. Missing required columns are a schema violation.
func columnIndex(table string, header []string, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, &domain.SchemaViolationError{
				Table:  table,
				Detail: fmt.Sprintf("missing required column %q", col),
			}
		}
	}
	return idx, nil
}

func openCSV(path string) (*csv.Reader, *os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	return reader, file, nil
}

func loadSales(path string) ([]domain.SalesRecord, error) {
	reader, file, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read sales header: %w", err)
	}
	idx, err := columnIndex("sales", header, []string{"date", "product_id", "quantity_sold", "revenue"})
	if err != nil {
		return nil, err
	}

	var records []domain.SalesRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sales row %d: %w", line, err)
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(row[idx["date"]]))
		if err != nil {
			return nil, fmt.Errorf("sales row %d: invalid date %q: %w", line, row[idx["date"]], err)
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(row[idx["quantity_sold"]]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sales row %d: invalid quantity_sold: %w", line, err)
		}
		revenue, err := decimal.NewFromString(strings.TrimSpace(row[idx["revenue"]]))
		if err != nil {
			return nil, fmt.Errorf("sales row %d: invalid revenue: %w", line, err)
		}

		rec := domain.SalesRecord{
			Date:         date,
			ProductID:    domain.ProductID(strings.TrimSpace(row[idx["product_id"]])),
			QuantitySold: qty,
			Revenue:      revenue,
		}
		if i, ok := idx["store_id"]; ok {
			rec.StoreID = strings.TrimSpace(row[i])
		}
		records = append(records, rec)
	}

	return records, nil
}

func loadProducts(path string) ([]domain.Product, error) {
	reader, file, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read products header: %w", err)
	}
	idx, err := columnIndex("products", header, []string{"product_id", "category"})
	if err != nil {
		return nil, err
	}

	var products []domain.Product
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("products row %d: %w", line, err)
		}

		p := domain.Product{
			ID:       domain.ProductID(strings.TrimSpace(row[idx["product_id"]])),
			Category: strings.TrimSpace(row[idx["category"]]),
		}
		if i, ok := idx["product_name"]; ok {
			p.Name = strings.TrimSpace(row[i])
		}
		if i, ok := idx["cost"]; ok {
			p.Cost, _ = strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		}
		if i, ok := idx["margin_percent"]; ok {
			p.MarginPercent, _ = strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		}
		products = append(products, p)
	}

	return products, nil
}

func loadCalendar(path string) ([]domain.CalendarEntry, error) {
	reader, file, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar header: %w", err)
	}
	idx, err := columnIndex("calendar", header, []string{"date", "is_holiday", "season_tag", "weekday"})
	if err != nil {
		return nil, err
	}

	var entries []domain.CalendarEntry
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("calendar row %d: %w", line, err)
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(row[idx["date"]]))
		if err != nil {
			return nil, fmt.Errorf("calendar row %d: invalid date: %w", line, err)
		}
		weekday, err := parseWeekday(row[idx["weekday"]])
		if err != nil {
			return nil, fmt.Errorf("calendar row %d: %w", line, err)
		}

		entries = append(entries, domain.CalendarEntry{
			Date:      date,
			IsHoliday: parseBool(row[idx["is_holiday"]]),
			SeasonTag: strings.TrimSpace(row[idx["season_tag"]]),
			Weekday:   weekday,
		})
	}

	return entries, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// parseWeekday accepts either an English weekday name or a Go numeric
// weekday (0=Sunday).
func parseWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("invalid weekday number %d", n)
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}
