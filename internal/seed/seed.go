// Package seed fills a user's ledger with plausible demo data.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/dukerupert/clubledger/internal/costing"
	"github.com/dukerupert/clubledger/internal/model"
	"github.com/dukerupert/clubledger/internal/store"
	"github.com/jaswdr/faker"
)

type Options struct {
	Seed         int64
	Events       int
	GeneralCosts int
}

func (o Options) withDefaults() Options {
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Events <= 0 {
		o.Events = 4
	}
	if o.GeneralCosts <= 0 {
		o.GeneralCosts = 6
	}
	return o
}

// Result counts what was created.
type Result struct {
	Ingredients  int
	Recipes      int
	MenuItems    int
	Events       int
	EventItems   int
	GeneralCosts int
}

type pantryItem struct {
	name string
	unit string
	min  int
	max  int // cents
}

var pantry = []pantryItem{
	{"Flour", "kg", 80, 180},
	{"Sugar", "kg", 90, 200},
	{"Butter", "kg", 600, 1100},
	{"Eggs", "piece", 20, 45},
	{"Milk", "l", 90, 160},
	{"Chocolate", "kg", 800, 1500},
	{"Sausages", "piece", 60, 120},
	{"Bread rolls", "piece", 25, 60},
	{"Coffee beans", "kg", 1200, 2200},
	{"Lemonade syrup", "l", 300, 650},
}

type recipeTemplate struct {
	name     string
	yield    int
	category string
	lines    map[string]float64 // total quantity per batch
}

var recipeTemplates = []recipeTemplate{
	{"Chocolate cake", 12, "Baked goods", map[string]float64{"Flour": 0.5, "Sugar": 0.3, "Butter": 0.25, "Eggs": 6, "Chocolate": 0.2}},
	{"Pancakes", 20, "Baked goods", map[string]float64{"Flour": 1, "Milk": 1.5, "Eggs": 8, "Sugar": 0.1}},
	{"Hot dog", 40, "Grill", map[string]float64{"Sausages": 40, "Bread rolls": 40}},
	{"Coffee", 50, "Drinks", map[string]float64{"Coffee beans": 0.4, "Milk": 2}},
	{"Lemonade", 30, "Drinks", map[string]float64{"Lemonade syrup": 1.5, "Sugar": 0.2}},
}

var costCategories = []string{"Rent", "Insurance", "Equipment", "Marketing", "Utilities", ""}

// Run creates demo ingredients, recipes, menu items, events and general
// costs owned by userID.
func Run(ctx context.Context, db *sql.DB, userID int64, opts Options, logger *slog.Logger) (Result, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "seed", "user_id", userID)
	fake := faker.NewWithSeed(rand.NewSource(opts.Seed))

	var res Result

	ingredients := store.NewIngredientStore(db)
	catalog := make(map[string]model.Ingredient, len(pantry))
	for _, p := range pantry {
		cost := float64(fake.IntBetween(p.min, p.max)) / 100
		ing, err := ingredients.Create(ctx, userID, p.name, p.unit, cost)
		if err != nil {
			return res, fmt.Errorf("seed ingredient %s: %w", p.name, err)
		}
		catalog[p.name] = *ing
		res.Ingredients++
	}

	recipes := store.NewRecipeStore(db)
	menu := store.NewMenuItemStore(db)
	var menuRecipes []*model.Recipe
	for _, tmpl := range recipeTemplates {
		ed := costing.NewEditor(tmpl.yield, nil)
		for name, qty := range tmpl.lines {
			idx, _ := ed.AddIngredient(catalog[name])
			ed.SetQuantityValue(idx, qty)
		}
		r, err := recipes.Save(ctx, userID, 0, store.RecipeInput{
			Name:          tmpl.name,
			Description:   fake.Lorem().Sentence(8),
			YieldQuantity: tmpl.yield,
		}, ed.PerUnitLines())
		if err != nil {
			return res, fmt.Errorf("seed recipe %s: %w", tmpl.name, err)
		}
		res.Recipes++
		menuRecipes = append(menuRecipes, r)

		id := r.ID
		if _, err := menu.Create(ctx, userID, store.MenuItemInput{
			Name:           r.Name,
			Category:       tmpl.category,
			RecipeID:       &id,
			BaseCost:       r.CalculatedCost,
			SuggestedPrice: suggestPrice(r.CalculatedCost),
		}); err != nil {
			return res, fmt.Errorf("seed menu item %s: %w", r.Name, err)
		}
		res.MenuItems++
	}

	events := store.NewEventStore(db)
	statuses := []model.EventStatus{model.EventStatusPlanning, model.EventStatusConfirmed, model.EventStatusCompleted}
	now := time.Now().UTC()
	for i := 0; i < opts.Events; i++ {
		date := fake.Time().TimeBetween(now.AddDate(0, -6, 0), now.AddDate(0, 2, 0))
		ev, err := events.Create(ctx, userID, store.EventInput{
			Title:       fmt.Sprintf("%s %s", fake.Address().City(), fake.RandomStringElement([]string{"Fair", "Market", "Tournament", "Festival"})),
			Description: fake.Lorem().Sentence(12),
			EventDate:   date.Truncate(24 * time.Hour),
			Status:      statuses[fake.IntBetween(0, len(statuses)-1)],
		})
		if err != nil {
			return res, fmt.Errorf("seed event: %w", err)
		}
		res.Events++

		for _, idx := range pick(fake, len(menuRecipes), 3) {
			r := menuRecipes[idx]
			if _, err := events.CreateItem(ctx, userID, ev.ID, store.EventItemInput{
				Name:      r.Name,
				Category:  recipeTemplates[idx].category,
				UnitCost:  r.CalculatedCost,
				Quantity:  fake.IntBetween(10, 80),
				UnitPrice: suggestPrice(r.CalculatedCost),
			}); err != nil {
				return res, fmt.Errorf("seed event item: %w", err)
			}
			res.EventItems++
		}
	}

	costs := store.NewGeneralCostStore(db)
	for i := 0; i < opts.GeneralCosts; i++ {
		if _, err := costs.Create(ctx, userID, store.GeneralCostInput{
			Description: fake.Lorem().Sentence(4),
			Amount:      float64(fake.IntBetween(1000, 40000)) / 100,
			Category:    fake.RandomStringElement(costCategories),
			Date:        fake.Time().TimeBetween(now.AddDate(-1, 0, 0), now).Truncate(24 * time.Hour),
		}); err != nil {
			return res, fmt.Errorf("seed general cost: %w", err)
		}
		res.GeneralCosts++
	}

	logger.Info("demo data seeded",
		"ingredients", res.Ingredients,
		"recipes", res.Recipes,
		"events", res.Events,
		"general_costs", res.GeneralCosts,
	)
	return res, nil
}

// suggestPrice marks cost up 150% and rounds up to the next 50 cents.
func suggestPrice(cost float64) float64 {
	cents := int(cost * 250)
	return float64((cents/50)+1) * 0.5
}

// pick returns k distinct indexes below n.
func pick(fake faker.Faker, n, k int) []int {
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := fake.IntBetween(i, n-1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
