package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"trendradar/internal/domain"
)

var csvHeader = []string{
	"id", "name", "platform", "identity_key", "image_url", "description",
	"first_seen", "last_seen", "trend_score", "status", "notes",
	"price", "reviews", "rating", "orders", "votes", "comments",
}

// ExportCSV writes products matching the filter as CSV, most recently
// updated first, header row included. Each row carries the product's
// latest metric snapshot; metric columns are empty when none exists.
func ExportCSV(ctx context.Context, store ProductStore, w io.Writer, filter domain.ProductFilter) error {
	products, err := store.ListProducts(ctx, filter)
	if err != nil {
		return fmt.Errorf("list products for export: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range products {
		record := []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			string(p.Platform),
			p.IdentityKey,
			stringOrEmpty(p.ImageURL),
			stringOrEmpty(p.Description),
			p.FirstSeen.UTC().Format(time.RFC3339),
			p.LastSeen.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.TrendScore, 'f', 2, 64),
			string(p.Status),
			stringOrEmpty(p.Notes),
		}
		record = append(record, latestMetricColumns(ctx, store, p.ID)...)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportCSVFile exports to a file path, creating or truncating it.
func ExportCSVFile(ctx context.Context, store ProductStore, path string, filter domain.ProductFilter) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := ExportCSV(ctx, store, f, filter); err != nil {
		return err
	}
	return f.Close()
}

// latestMetricColumns returns the metric columns for a product's most
// recent snapshot. A missing snapshot or a read failure yields empty
// columns; the export itself still succeeds.
func latestMetricColumns(ctx context.Context, store ProductStore, productID int64) []string {
	empty := []string{"", "", "", "", "", ""}
	metrics, err := store.MetricHistory(ctx, productID, 1)
	if err != nil || len(metrics) == 0 {
		return empty
	}
	m := metrics[len(metrics)-1]
	return []string{
		floatOrEmpty(m.Price),
		intOrEmpty(m.Reviews),
		floatOrEmpty(m.Rating),
		intOrEmpty(m.Orders),
		intOrEmpty(m.Votes),
		intOrEmpty(m.Comments),
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
