package ledger

import (
	"math"
	"testing"

	"strafen/internal/core"
)

func testCatalog() core.Catalog {
	c := core.NewCatalog()
	c.Add("Zu spät", "5,00 €")
	c.Add("Handy im Training", "2,00 €")
	c.Add("Trikot vergessen", "Kiste")
	c.Add("Rote Karte", "Runde Schnaps")
	return c
}

func TestMatch(t *testing.T) {
	catalog := testCatalog()
	tests := []struct {
		label string
		want  string
	}{
		{"Zu spät", "Zu spät"},
		{"  Zu spät ", "Zu spät"},
		{"zu spat", "Zu spät"},
		{"Handy im Trainig", "Handy im Training"},
		{"trikot vergesen", "Trikot vergessen"},
		{"Völlig anderes", "Völlig anderes"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := Match(tt.label, catalog); got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestMatch_Idempotent(t *testing.T) {
	catalog := testCatalog()
	for _, label := range []string{"zu spat", "Handy im Trainig", "nichts davon", "rote karte"} {
		once := Match(label, catalog)
		if twice := Match(once, catalog); twice != once {
			t.Errorf("Match(Match(%q)) = %q, want %q", label, twice, once)
		}
	}
}

func TestMatch_TieKeepsFirstKey(t *testing.T) {
	catalog := core.NewCatalog()
	catalog.Add("abcd", "1,00 €")
	catalog.Add("abce", "2,00 €")
	if got := Match("abcx", catalog); got != "abcd" {
		t.Errorf("Match() = %q, want first key on tie", got)
	}
}

func TestMatch_EmptyCatalog(t *testing.T) {
	if got := Match("Zu spät", core.NewCatalog()); got != "Zu spät" {
		t.Errorf("Match() = %q, want label unchanged", got)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "abc", 1},
		{"abc", "", 0},
		{"abcd", "abcx", 0.75},
		{"spät", "spat", 0.75},
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
