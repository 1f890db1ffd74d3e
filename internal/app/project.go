package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"savings-vault-engine/internal/accrual"
)

// projectionPoint is one sampled point of the pre-deposit projection.
type projectionPoint struct {
	Day      int
	Interest decimal.Decimal
	Value    decimal.Decimal
}

// Project renders the simple pro-rata accrual projection for a
// hypothetical deposit as CSV and/or PNG. This is the view shown before
// a position exists; it uses the same formula the accrual tick applies
// later.
func (a *App) Project(ctx context.Context, opts ProjectOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	amount, err := a.parseAmount(opts.Amount)
	if err != nil {
		return err
	}

	eng, err := a.newEngine(nil)
	if err != nil {
		return err
	}
	if err := eng.svc.SyncPlans(ctx); err != nil {
		return err
	}

	if err := eng.plans.Validate(amount, opts.PlanID); err != nil {
		return err
	}
	p, err := eng.plans.Get(opts.PlanID)
	if err != nil {
		return err
	}

	maxPoints := a.Config.ResolveMaxPoints(opts.MaxPoints)
	days := int(p.DurationDays)
	step := 1
	if days > maxPoints {
		step = (days + maxPoints - 1) / maxPoints
	}

	points := make([]projectionPoint, 0, days/step+2)
	for day := 0; day <= days; day += step {
		interest := accrual.Accrue(amount, p.RateBps, time.Duration(day)*24*time.Hour, p.Duration())
		points = append(points, projectionPoint{Day: day, Interest: interest, Value: amount.Add(interest)})
	}
	if last := points[len(points)-1]; last.Day != days {
		interest := accrual.Accrue(amount, p.RateBps, p.Duration(), p.Duration())
		points = append(points, projectionPoint{Day: days, Interest: interest, Value: amount.Add(interest)})
	}

	a.Logger.Info().
		Uint32("plan_id", opts.PlanID).
		Int("points", len(points)).
		Str("projected_interest", a.formatAmount(points[len(points)-1].Interest)).
		Msg("projection computed")

	if opts.CSVPath != "" {
		if err := a.writeProjectionCSV(opts.CSVPath, points); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := a.writeProjectionPNG(opts.PNGPath, points); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stdout, "projection for %s over %d days at %d bps: %s interest at maturity\n",
		opts.Amount, days, p.RateBps, a.formatAmount(points[len(points)-1].Interest))
	return nil
}

func (a *App) writeProjectionCSV(path string, points []projectionPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"day", "accrued_interest", "current_value"}); err != nil {
		return err
	}
	for _, point := range points {
		record := []string{
			strconv.Itoa(point.Day),
			a.formatAmount(point.Interest),
			a.formatAmount(point.Value),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}

func (a *App) writeProjectionPNG(path string, points []projectionPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]float64, len(points))
	interest := make([]float64, len(points))
	value := make([]float64, len(points))
	for i, point := range points {
		x[i] = float64(point.Day)
		interest[i] = point.Interest.Shift(-a.Config.Ledger.TokenDecimals).InexactFloat64()
		value[i] = point.Value.Shift(-a.Config.Ledger.TokenDecimals).InexactFloat64()
	}

	amountFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Days",
		},
		YAxis: chart.YAxis{
			Name:           "Value",
			ValueFormatter: amountFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Interest",
			ValueFormatter: amountFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Current value",
				XValues: x,
				YValues: value,
			},
			chart.ContinuousSeries{
				Name:    "Accrued interest",
				XValues: x,
				YValues: interest,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
