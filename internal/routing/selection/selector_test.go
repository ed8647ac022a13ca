package selection

import (
	"testing"
	"time"

	vendorrepo "leadrouter_backend/internal/vendors/repository"

	"github.com/google/uuid"
)

func vendor(name string, lastAssigned *time.Time, closeRate float64) vendorrepo.Vendor {
	return vendorrepo.Vendor{
		ID:             uuid.New(),
		Name:           name,
		LastAssignedAt: lastAssigned,
		CloseRate:      closeRate,
	}
}

func at(offset time.Duration) *time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(offset)
	return &t
}

func TestRankNeverAssignedLeadsFairnessOrder(t *testing.T) {
	fresh := vendor("fresh", nil, 0.5)
	veteran := vendor("veteran", at(0), 0.5)

	got := Rank([]vendorrepo.Vendor{veteran, fresh}, DefaultTopK)
	if got[0].ID != fresh.ID {
		t.Errorf("first = %s, want the never-assigned vendor", got[0].Name)
	}
}

func TestPickWindowReranksByCloseRate(t *testing.T) {
	fresh := vendor("fresh", nil, 0)
	veteran := vendor("veteran", at(0), 0.9)

	winner, ok := Pick([]vendorrepo.Vendor{veteran, fresh}, DefaultTopK)
	if !ok {
		t.Fatal("Pick returned no winner")
	}
	if winner.ID != veteran.ID {
		t.Errorf("winner = %s, want veteran (best close rate inside window)", winner.Name)
	}
}

func TestRankRoundRobinWhenRatesEqual(t *testing.T) {
	a := vendor("a", at(0), 0.5)
	b := vendor("b", at(time.Hour), 0.5)
	c := vendor("c", at(2*time.Hour), 0.5)

	got := Rank([]vendorrepo.Vendor{c, b, a}, DefaultTopK)
	if got[0].ID != a.ID || got[1].ID != b.ID || got[2].ID != c.ID {
		t.Errorf("rank order = %s, %s, %s; want a, b, c", got[0].Name, got[1].Name, got[2].Name)
	}
}

func TestRankCloseRateReordersWindowOnly(t *testing.T) {
	// d waited the least but has the best rate; it sits outside the
	// window of 3 so it cannot jump the queue.
	a := vendor("a", at(0), 0.1)
	b := vendor("b", at(time.Hour), 0.3)
	c := vendor("c", at(2*time.Hour), 0.2)
	d := vendor("d", at(3*time.Hour), 0.9)

	got := Rank([]vendorrepo.Vendor{a, b, c, d}, 3)
	if got[0].ID != b.ID {
		t.Errorf("winner = %s, want b (best rate inside window)", got[0].Name)
	}
	if got[3].ID != d.ID {
		t.Errorf("last = %s, want d (outside window)", got[3].Name)
	}
}

func TestRankNoStarvation(t *testing.T) {
	// A high close rate must not let one vendor win forever: after each
	// win its last_assigned_at moves to the back, and once the other
	// vendors' waits push it out of the window it stops winning.
	star := vendor("star", at(-time.Hour), 0.99)
	others := []vendorrepo.Vendor{
		vendor("v1", at(-4*time.Hour), 0.1),
		vendor("v2", at(-3*time.Hour), 0.1),
		vendor("v3", at(-2*time.Hour), 0.1),
	}

	pool := append(others, star)
	winner, _ := Pick(pool, 3)
	if winner.ID == star.ID {
		t.Fatal("vendor outside the fairness window won")
	}
}

func TestPickDeterministicTieBreak(t *testing.T) {
	a := vendor("a", nil, 0)
	b := vendor("b", nil, 0)

	first, _ := Pick([]vendorrepo.Vendor{a, b}, DefaultTopK)
	second, _ := Pick([]vendorrepo.Vendor{b, a}, DefaultTopK)
	if first.ID != second.ID {
		t.Error("tie-break depends on input order")
	}
}

func TestPickSingleCandidate(t *testing.T) {
	only := vendor("only", at(0), 0)
	winner, ok := Pick([]vendorrepo.Vendor{only}, DefaultTopK)
	if !ok || winner.ID != only.ID {
		t.Fatal("single candidate must win")
	}
}

func TestPickEmpty(t *testing.T) {
	if _, ok := Pick(nil, DefaultTopK); ok {
		t.Fatal("empty candidate set produced a winner")
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	a := vendor("a", at(time.Hour), 0)
	b := vendor("b", at(0), 0)
	in := []vendorrepo.Vendor{a, b}

	Rank(in, DefaultTopK)
	if in[0].ID != a.ID || in[1].ID != b.ID {
		t.Error("Rank reordered caller's slice")
	}
}
