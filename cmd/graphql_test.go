package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/hmans/catalog/internal/catalog"
	"github.com/hmans/catalog/internal/config"
	"github.com/hmans/catalog/internal/library"
)

func setupQueryTestApp(t *testing.T) *application {
	t.Helper()
	c := config.Default()
	c.Storage = config.StorageConfig{Driver: config.DriverMemory}
	c.Auth.Secret = "test-secret"

	testApp, err := openApplication(context.Background(), c)
	if err != nil {
		t.Fatalf("openApplication() error = %v", err)
	}

	// Save and restore the global app
	oldApp := app
	app = testApp
	t.Cleanup(func() {
		app = oldApp
		testApp.Close()
	})
	return testApp
}

func createQueryTestBook(t *testing.T, a *application, title, author string, genres ...string) *library.Book {
	t.Helper()
	b, err := a.catalog.AddBook(context.Background(), catalog.NewBook{
		Title:     title,
		Author:    author,
		Published: 2008,
		Genres:    genres,
	})
	if err != nil {
		t.Fatalf("AddBook() error = %v", err)
	}
	return b
}

func TestExecuteQuery(t *testing.T) {
	testApp := setupQueryTestApp(t)
	createQueryTestBook(t, testApp, "Clean Code", "Robert Martin", "refactoring")
	createQueryTestBook(t, testApp, "Agile software development", "Robert Martin", "agile", "patterns")
	createQueryTestBook(t, testApp, "Refactoring, edition 2", "Martin Fowler", "refactoring")

	t.Run("counts", func(t *testing.T) {
		result, err := executeQuery(context.Background(), `{ bookCount authorCount }`, nil, "")
		if err != nil {
			t.Fatalf("executeQuery() error = %v", err)
		}
		var data struct {
			BookCount   int `json:"bookCount"`
			AuthorCount int `json:"authorCount"`
		}
		if err := json.Unmarshal(result, &data); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if data.BookCount != 3 || data.AuthorCount != 2 {
			t.Errorf("got bookCount=%d authorCount=%d, want 3 and 2", data.BookCount, data.AuthorCount)
		}
	})

	t.Run("filter with variables", func(t *testing.T) {
		query := `query Books($genre: String) { allBooks(genre: $genre) { title author { name } } }`
		result, err := executeQuery(context.Background(), query, map[string]any{"genre": "refactoring"}, "")
		if err != nil {
			t.Fatalf("executeQuery() error = %v", err)
		}
		var data struct {
			AllBooks []struct {
				Title  string `json:"title"`
				Author struct {
					Name string `json:"name"`
				} `json:"author"`
			} `json:"allBooks"`
		}
		if err := json.Unmarshal(result, &data); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if len(data.AllBooks) != 2 {
			t.Fatalf("got %d books, want 2", len(data.AllBooks))
		}
		if data.AllBooks[0].Title != "Clean Code" || data.AllBooks[0].Author.Name != "Robert Martin" {
			t.Errorf("first book = %+v", data.AllBooks[0])
		}
	})

	t.Run("operation name", func(t *testing.T) {
		query := `query A { bookCount } query B { authorCount }`
		result, err := executeQuery(context.Background(), query, nil, "B")
		if err != nil {
			t.Fatalf("executeQuery() error = %v", err)
		}
		if string(result) != `{"authorCount":2}` {
			t.Errorf("result = %s, want {\"authorCount\":2}", result)
		}
	})

	t.Run("invalid query", func(t *testing.T) {
		_, err := executeQuery(context.Background(), `{ nope }`, nil, "")
		if err == nil {
			t.Fatal("executeQuery() succeeded, want error")
		}
		if !strings.HasPrefix(err.Error(), "graphql:") {
			t.Errorf("error = %q, want graphql: prefix", err)
		}
	})

	t.Run("subscription rejected", func(t *testing.T) {
		_, err := executeQuery(context.Background(), `subscription { bookAdded { title } }`, nil, "")
		if !errors.Is(err, errSubscriptionUnsupported) {
			t.Errorf("error = %v, want errSubscriptionUnsupported", err)
		}
	})
}

func TestExecuteMutationNeedsToken(t *testing.T) {
	testApp := setupQueryTestApp(t)

	mutation := `mutation { addBook(title: "Clean Code", author: "Robert Martin", published: 2008, genres: ["refactoring"]) { title } }`

	_, err := executeQuery(context.Background(), mutation, nil, "")
	if err == nil || !strings.Contains(err.Error(), "UNAUTHENTICATED") {
		t.Fatalf("anonymous addBook error = %v, want UNAUTHENTICATED", err)
	}

	if _, err := testApp.catalog.CreateUser(context.Background(), "mluukkai", "refactoring", "secret"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	token, err := testApp.catalog.Login(context.Background(), "mluukkai", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	ctx, err := authContext(context.Background(), token)
	if err != nil {
		t.Fatalf("authContext() error = %v", err)
	}
	result, err := executeQuery(ctx, mutation, nil, "")
	if err != nil {
		t.Fatalf("executeQuery() error = %v", err)
	}
	if string(result) != `{"addBook":{"title":"Clean Code"}}` {
		t.Errorf("result = %s", result)
	}

	me, err := executeQuery(ctx, `{ me { username favoriteGenre } }`, nil, "")
	if err != nil {
		t.Fatalf("executeQuery(me) error = %v", err)
	}
	if string(me) != `{"me":{"username":"mluukkai","favoriteGenre":"refactoring"}}` {
		t.Errorf("me = %s", me)
	}
}

func TestAuthContextRejectsBadToken(t *testing.T) {
	setupQueryTestApp(t)

	if _, err := authContext(context.Background(), "not-a-token"); err == nil {
		t.Error("authContext() succeeded, want error")
	}
	ctx, err := authContext(context.Background(), "")
	if err != nil || ctx == nil {
		t.Errorf("authContext(\"\") = %v, %v; want anonymous context", ctx, err)
	}
}

func TestFormatGraphQLErrors(t *testing.T) {
	if err := formatGraphQLErrors(nil); err != nil {
		t.Errorf("formatGraphQLErrors(nil) = %v, want nil", err)
	}

	single := gqlerror.List{{Message: "boom", Extensions: map[string]any{"code": "BAD_USER_INPUT"}}}
	if got := formatGraphQLErrors(single).Error(); got != "graphql: boom (BAD_USER_INPUT)" {
		t.Errorf("single error = %q", got)
	}

	multi := gqlerror.List{{Message: "first"}, {Message: "second"}}
	got := formatGraphQLErrors(multi).Error()
	if !strings.Contains(got, "first") || !strings.Contains(got, "second") {
		t.Errorf("multiple errors = %q", got)
	}
}

func TestGetGraphQLSchema(t *testing.T) {
	schema := GetGraphQLSchema()
	for _, want := range []string{"type Book", "type Author", "bookAdded", "editAuthor"} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema does not contain %q", want)
		}
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	if _, err := openStore(context.Background(), config.StorageConfig{Driver: "mongodb"}); err == nil {
		t.Error("openStore(mongodb) succeeded, want error")
	}
}

func TestReadPasswordLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"secret\n", "secret"},
		{"secret\r\nignored\n", "secret"},
		{"no newline", "no newline"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := readPasswordLine(strings.NewReader(tt.in))
		if err != nil {
			t.Errorf("readPasswordLine(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("readPasswordLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
