package market

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/comictracker/internal/models"
)

const (
	salesCount   = 5
	salesSpacing = 7 * 24 * time.Hour

	// Prices are in [minCents, minCents+spreadCents) cents
	minCents    = 800
	spreadCents = 1000
)

// Generator of fake recent sales for a comic
// Nothing real is queried: title and issue are accepted so a real source could replace it
type Generator struct {
	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

// New generator with random seed and time.Now clock
func NewGenerator() *Generator {
	return NewGeneratorWith(rand.NewPCG(rand.Uint64(), rand.Uint64()), time.Now)
}

func NewGeneratorWith(src rand.Source, now func() time.Time) *Generator {
	return &Generator{rand: rand.New(src), now: now}
}

// Five sales spaced weekly, oldest first, the last one is 'now'
func (g *Generator) Sales(title string, issue string) []models.Sale {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	sales := make([]models.Sale, salesCount)

	for i := range salesCount {
		cents := minCents + g.rand.IntN(spreadCents)
		sales[salesCount-1-i] = models.Sale{
			Price: decimal.New(int64(cents), -2),
			Date:  now.Add(-time.Duration(i) * salesSpacing),
		}
	}

	return sales
}

// Mean price rounded to cents, zero for no sales
func Average(sales []models.Sale) decimal.Decimal {
	if len(sales) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, s := range sales {
		sum = sum.Add(s.Price)
	}

	return sum.Div(decimal.NewFromInt(int64(len(sales)))).Round(2)
}
