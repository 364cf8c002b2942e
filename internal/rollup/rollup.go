// Package rollup derives financial totals from event items and general costs.
//
// Sums go through shopspring/decimal so that repeated additions of currency
// amounts do not accumulate binary rounding error.
package rollup

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/clubledger/internal/model"
)

// UncategorizedLabel groups general costs with a blank category.
const UncategorizedLabel = "Uncategorized"

// Summary is the financial result of one event.
type Summary struct {
	TotalCost    float64 `json:"total_cost"`
	TotalRevenue float64 `json:"total_revenue"`
	NetProfit    float64 `json:"net_profit"`
	ProfitMargin string  `json:"profit_margin"`
	Favorable    bool    `json:"favorable"`
}

// DashboardSummary aggregates a window of events and general costs.
type DashboardSummary struct {
	EventRevenue float64 `json:"event_revenue"`
	EventCost    float64 `json:"event_cost"`
	GeneralCosts float64 `json:"general_costs"`
	NetResult    float64 `json:"net_result"`
	Favorable    bool    `json:"favorable"`
	EventCount   int     `json:"event_count"`
	CostCount    int     `json:"cost_count"`
}

// CategoryTotal is the sum of the general costs sharing a category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// LineTotals prices an event item: cost and revenue for the whole quantity.
func LineTotals(unitCost float64, quantity int, unitPrice float64) (totalCost, totalRevenue float64) {
	q := decimal.NewFromInt(int64(quantity))
	totalCost = decimal.NewFromFloat(unitCost).Mul(q).InexactFloat64()
	totalRevenue = decimal.NewFromFloat(unitPrice).Mul(q).InexactFloat64()
	return totalCost, totalRevenue
}

func sum(n int, at func(i int) float64) float64 {
	total := decimal.Zero
	for i := 0; i < n; i++ {
		total = total.Add(decimal.NewFromFloat(at(i)))
	}
	return total.InexactFloat64()
}

// TotalCost sums the items' total costs.
func TotalCost(items []model.EventItem) float64 {
	return sum(len(items), func(i int) float64 { return items[i].TotalCost })
}

// TotalRevenue sums the items' total revenues.
func TotalRevenue(items []model.EventItem) float64 {
	return sum(len(items), func(i int) float64 { return items[i].TotalRevenue })
}

func NetProfit(cost, revenue float64) float64 {
	return decimal.NewFromFloat(revenue).Sub(decimal.NewFromFloat(cost)).InexactFloat64()
}

// ProfitMarginPct is net profit as a percentage of revenue, formatted with one
// decimal place. It is "0.0" when there is no revenue.
func ProfitMarginPct(cost, revenue float64) string {
	if revenue <= 0 {
		return "0.0"
	}
	rev := decimal.NewFromFloat(revenue)
	net := rev.Sub(decimal.NewFromFloat(cost))
	return net.Div(rev).Mul(decimal.NewFromInt(100)).StringFixed(1)
}

// IsFavorable reports whether a result breaks even or better.
func IsFavorable(net float64) bool {
	return net >= 0
}

// Summarize computes an event's result from its items.
func Summarize(items []model.EventItem) Summary {
	cost := TotalCost(items)
	revenue := TotalRevenue(items)
	net := NetProfit(cost, revenue)
	return Summary{
		TotalCost:    cost,
		TotalRevenue: revenue,
		NetProfit:    net,
		ProfitMargin: ProfitMarginPct(cost, revenue),
		Favorable:    IsFavorable(net),
	}
}

// GeneralCostsTotal sums the amounts of the given costs.
func GeneralCostsTotal(costs []model.GeneralCost) float64 {
	return sum(len(costs), func(i int) float64 { return costs[i].Amount })
}

// Dashboard combines event totals with general costs. Event totals come from
// each event's cached TotalCost and TotalRevenue.
func Dashboard(events []model.Event, costs []model.GeneralCost) DashboardSummary {
	revenue := sum(len(events), func(i int) float64 { return events[i].TotalRevenue })
	cost := sum(len(events), func(i int) float64 { return events[i].TotalCost })
	general := GeneralCostsTotal(costs)

	net := decimal.NewFromFloat(revenue).
		Sub(decimal.NewFromFloat(cost)).
		Sub(decimal.NewFromFloat(general)).
		InexactFloat64()

	return DashboardSummary{
		EventRevenue: revenue,
		EventCost:    cost,
		GeneralCosts: general,
		NetResult:    net,
		Favorable:    IsFavorable(net),
		EventCount:   len(events),
		CostCount:    len(costs),
	}
}

// ByCategory groups costs by trimmed category name, sorted by name.
func ByCategory(costs []model.GeneralCost) []CategoryTotal {
	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, c := range costs {
		cat := strings.TrimSpace(c.Category)
		if cat == "" {
			cat = UncategorizedLabel
		}
		totals[cat] = totals[cat].Add(decimal.NewFromFloat(c.Amount))
		counts[cat]++
	}

	out := make([]CategoryTotal, 0, len(totals))
	for cat, total := range totals {
		out = append(out, CategoryTotal{Category: cat, Total: total.InexactFloat64(), Count: counts[cat]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
