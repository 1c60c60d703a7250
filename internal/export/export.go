package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchcurve/internal/sale"
	"github.com/rovshanmuradov/launchcurve/internal/valuation"
)

// Format is the snapshot file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %q", s)
	}
}

// Options configures which sales are written and where.
type Options struct {
	Format       Format
	OutputDir    string
	Rate         valuation.Rate
	Status       *sale.Status // nil keeps every status
	CurveFilter  string       // curve kind name
	OnlyMigrated bool
}

// Row is the flattened view of one sale in a snapshot.
type Row struct {
	Mint          string `json:"mint"`
	Creator       string `json:"creator"`
	Ticker        string `json:"ticker"`
	Name          string `json:"name"`
	Curve         string `json:"curve"`
	Status        string `json:"status"`
	Migrated      bool   `json:"migrated"`
	Circulating   uint64 `json:"circulating"`
	Remaining     uint64 `json:"remaining"`
	BaseReserve   uint64 `json:"base_reserve"`
	LiquidityFees uint64 `json:"liquidity_fees"`
	Price         uint64 `json:"price"`
	MarketCap     uint64 `json:"market_cap"`
	Threshold     uint64 `json:"graduation_threshold"`
	CreatedAt     int64  `json:"created_at"`
	GraduatedAt   int64  `json:"graduated_at,omitempty"`
}

// CSVHeaders matches the field order of Row.CSV.
func CSVHeaders() []string {
	return []string{
		"mint", "creator", "ticker", "name", "curve", "status", "migrated",
		"circulating", "remaining", "base_reserve", "liquidity_fees",
		"price", "market_cap", "graduation_threshold", "created_at", "graduated_at",
	}
}

func (r Row) CSV() []string {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	return []string{
		r.Mint, r.Creator, r.Ticker, r.Name, r.Curve, r.Status, strconv.FormatBool(r.Migrated),
		u(r.Circulating), u(r.Remaining), u(r.BaseReserve), u(r.LiquidityFees),
		u(r.Price), u(r.MarketCap), u(r.Threshold),
		strconv.FormatInt(r.CreatedAt, 10), strconv.FormatInt(r.GraduatedAt, 10),
	}
}

// Summary aggregates a snapshot.
type Summary struct {
	Sales         int    `json:"sales"`
	Active        int    `json:"active"`
	Graduated     int    `json:"graduated"`
	Migrated      int    `json:"migrated"`
	BaseReserves  uint64 `json:"base_reserves"`
	LiquidityFees uint64 `json:"liquidity_fees"`
}

// SaleExporter writes sale snapshots to disk.
type SaleExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewSaleExporter(logger *zap.Logger) *SaleExporter {
	return &SaleExporter{logger: logger, now: time.Now}
}

// Export filters sales, writes them and returns the file path.
func (e *SaleExporter) Export(sales []sale.Sale, options Options) (string, error) {
	rows, err := e.rows(sales, options)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no sales match the export criteria")
	}

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, e.filename(options))

	switch options.Format {
	case FormatCSV:
		err = writeCSV(rows, outputPath)
	case FormatJSON:
		err = e.writeJSON(rows, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Sales exported",
		zap.String("file", outputPath),
		zap.Int("count", len(rows)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func (e *SaleExporter) rows(sales []sale.Sale, options Options) ([]Row, error) {
	rate := options.Rate
	if rate == (valuation.Rate{}) {
		rate = valuation.Identity()
	}

	var rows []Row
	for _, s := range sales {
		if options.Status != nil && s.Status != *options.Status {
			continue
		}
		if options.CurveFilter != "" && s.Curve.Kind.String() != options.CurveFilter {
			continue
		}
		if options.OnlyMigrated && !s.Migrated {
			continue
		}

		price, err := s.CurrentPrice()
		if err != nil {
			return nil, fmt.Errorf("price of %s: %w", s.Mint, err)
		}
		mcap, err := s.MarketCap(rate)
		if err != nil {
			return nil, fmt.Errorf("market cap of %s: %w", s.Mint, err)
		}

		rows = append(rows, Row{
			Mint:          s.Mint.String(),
			Creator:       s.Creator.String(),
			Ticker:        s.Ticker,
			Name:          s.Name,
			Curve:         s.Curve.Kind.String(),
			Status:        s.Status.String(),
			Migrated:      s.Migrated,
			Circulating:   s.Circulating(),
			Remaining:     s.TokensRemaining(),
			BaseReserve:   s.Curve.RealBaseReserve,
			LiquidityFees: s.LiquidityFees,
			Price:         price,
			MarketCap:     mcap,
			Threshold:     s.GraduationThreshold,
			CreatedAt:     s.CreatedAt,
			GraduatedAt:   s.GraduatedAt,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CreatedAt != rows[j].CreatedAt {
			return rows[i].CreatedAt < rows[j].CreatedAt
		}
		return rows[i].Mint < rows[j].Mint
	})
	return rows, nil
}

func (e *SaleExporter) filename(options Options) string {
	prefix := "sales_all"
	if options.Status != nil {
		prefix = "sales_" + options.Status.String()
	}
	if options.CurveFilter != "" {
		prefix += "_" + options.CurveFilter
	}
	return fmt.Sprintf("%s_%s.%s", prefix, e.now().Format("20060102_150405"), options.Format)
}

func writeCSV(rows []Row, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row.CSV()); err != nil {
			return fmt.Errorf("failed to write sale: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (e *SaleExporter) writeJSON(rows []Row, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	snapshot := struct {
		ExportTime time.Time `json:"export_time"`
		Summary    Summary   `json:"summary"`
		Sales      []Row     `json:"sales"`
	}{
		ExportTime: e.now(),
		Summary:    Summarize(rows),
		Sales:      rows,
	}
	if err := encoder.Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summarize counts sales by lifecycle stage and totals their reserves.
func Summarize(rows []Row) Summary {
	summary := Summary{Sales: len(rows)}
	for _, r := range rows {
		switch r.Status {
		case sale.StatusActive.String():
			summary.Active++
		case sale.StatusGraduated.String():
			summary.Graduated++
		}
		if r.Migrated {
			summary.Migrated++
		}
		summary.BaseReserves += r.BaseReserve
		summary.LiquidityFees += r.LiquidityFees
	}
	return summary
}
