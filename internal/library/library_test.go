package library

import "testing"

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 16 {
			t.Fatalf("NewID() = %q, want 16 characters", id)
		}
		if seen[id] {
			t.Fatalf("NewID() returned duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestBookFilterMatches(t *testing.T) {
	b := &Book{ID: "b1", AuthorID: "a1", Genres: []string{"classic", "crime"}}

	tests := []struct {
		name   string
		filter BookFilter
		want   bool
	}{
		{"empty filter", BookFilter{}, true},
		{"author match", BookFilter{AuthorID: "a1"}, true},
		{"author mismatch", BookFilter{AuthorID: "a2"}, false},
		{"genre match", BookFilter{Genre: "crime"}, true},
		{"genre mismatch", BookFilter{Genre: "refactoring"}, false},
		{"author and genre", BookFilter{AuthorID: "a1", Genre: "classic"}, true},
		{"author ok genre wrong", BookFilter{AuthorID: "a1", Genre: "design"}, false},
		{"ids include", BookFilter{IDs: []string{"x", "b1"}}, true},
		{"ids exclude", BookFilter{IDs: []string{"x"}}, false},
		{"empty ids match nothing", BookFilter{IDs: []string{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(b); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasGenre(t *testing.T) {
	b := &Book{Genres: []string{"agile"}}
	if !b.HasGenre("agile") {
		t.Error("HasGenre(agile) = false, want true")
	}
	if b.HasGenre("Agile") {
		t.Error("HasGenre(Agile) = true, want false (case sensitive)")
	}
}
