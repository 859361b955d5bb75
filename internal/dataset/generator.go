// Package dataset builds the deterministic demo tables served by the duckdb
// source and uploads them to the object store as parquet.
package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

type Event struct {
	EventID    int64   `parquet:"event_id"`
	UserID     string  `parquet:"user_id"`
	EventType  string  `parquet:"event_type"`
	Amount     float64 `parquet:"amount"`
	Country    string  `parquet:"country"`
	Device     string  `parquet:"device"`
	OccurredAt string  `parquet:"occurred_at"`
}

type User struct {
	UserID     string `parquet:"user_id"`
	Country    string `parquet:"country"`
	Age        int32  `parquet:"age"`
	SignupDays int32  `parquet:"signup_days"`
}

var countries = []string{"US", "DE", "GB", "IN", "JP", "BR"}

// Generator yields the same users and events for the same seed.
type Generator struct {
	rnd             *rand.Rand
	userCardinality int
	sequence        int64
	start           time.Time
}

func NewGenerator(seed int64, userCardinality int) *Generator {
	if userCardinality <= 0 {
		userCardinality = 1
	}
	return &Generator{
		rnd:             rand.New(rand.NewSource(seed)),
		userCardinality: userCardinality,
		start:           time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (g *Generator) Users() []User {
	users := make([]User, 0, g.userCardinality)
	for i := 1; i <= g.userCardinality; i++ {
		users = append(users, User{
			UserID:     userID(i),
			Country:    pickOne(g.rnd, countries),
			Age:        int32(18 + g.rnd.Intn(60)),
			SignupDays: int32(g.rnd.Intn(900)),
		})
	}
	return users
}

func (g *Generator) NextEvent() Event {
	g.sequence++
	eventType := g.pickEventType()
	occurredAt := g.start.Add(time.Duration(g.sequence) * 37 * time.Second)

	return Event{
		EventID:    g.sequence,
		UserID:     userID(g.rnd.Intn(g.userCardinality) + 1),
		EventType:  eventType,
		Amount:     g.pickAmount(eventType),
		Country:    pickOne(g.rnd, countries),
		Device:     pickOne(g.rnd, []string{"desktop", "mobile", "tablet"}),
		OccurredAt: occurredAt.Format(time.RFC3339),
	}
}

func (g *Generator) Events(count int) []Event {
	events := make([]Event, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, g.NextEvent())
	}
	return events
}

func (g *Generator) pickEventType() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 55:
		return "page_view"
	case p < 75:
		return "search"
	case p < 88:
		return "add_to_cart"
	case p < 97:
		return "checkout"
	default:
		return "purchase"
	}
}

func (g *Generator) pickAmount(eventType string) float64 {
	switch eventType {
	case "purchase":
		return round2(20 + g.rnd.Float64()*280)
	case "checkout":
		return round2(15 + g.rnd.Float64()*240)
	case "add_to_cart":
		return round2(5 + g.rnd.Float64()*120)
	default:
		return 0
	}
}

func userID(n int) string {
	return fmt.Sprintf("user-%04d", n)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
