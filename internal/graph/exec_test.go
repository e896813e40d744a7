package graph

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/executor"
	"github.com/99designs/gqlgen/graphql/handler/extension"

	"github.com/hmans/catalog/internal/auth"
	"github.com/hmans/catalog/internal/catalog"
	"github.com/hmans/catalog/internal/library"
)

func newTestExecutor(t *testing.T, r *Resolver) *executor.Executor {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := executor.New(NewExecutableSchema(Config{Resolvers: r}))
	exec.Use(extension.Introspection{})
	exec.SetErrorPresenter(ErrorPresenter(logger))
	exec.SetRecoverFunc(RecoverFunc(logger))
	return exec
}

// runOperation executes query and returns the first response and the handler
// for subsequent ones.
func runOperation(ctx context.Context, exec *executor.Executor, query string, vars map[string]any) (*graphql.Response, graphql.ResponseHandler, context.Context) {
	ctx = graphql.StartOperationTrace(ctx)
	opCtx, errs := exec.CreateOperationContext(ctx, &graphql.RawParams{
		Query:     query,
		Variables: vars,
	})
	if errs != nil {
		return exec.DispatchError(graphql.WithOperationContext(ctx, opCtx), errs), nil, ctx
	}
	handler, ctx := exec.DispatchOperation(ctx, opCtx)
	return handler(ctx), handler, ctx
}

func execQuery(t *testing.T, exec *executor.Executor, ctx context.Context, query string, vars map[string]any) (map[string]any, *graphql.Response) {
	t.Helper()
	resp, _, _ := runOperation(ctx, exec, query, vars)
	if resp == nil {
		t.Fatal("nil response")
	}
	var data map[string]any
	if len(resp.Data) > 0 && string(resp.Data) != "null" {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			t.Fatalf("unmarshal data %s: %v", resp.Data, err)
		}
	}
	return data, resp
}

func errorCode(t *testing.T, resp *graphql.Response) string {
	t.Helper()
	if len(resp.Errors) == 0 {
		t.Fatalf("no errors, data = %s", resp.Data)
	}
	code, _ := resp.Errors[0].Extensions["code"].(string)
	return code
}

func TestExecQueries(t *testing.T) {
	resolver, svc := setupTestResolver(t)
	ctx := authedContext(t, svc)
	exec := newTestExecutor(t, resolver)

	createTestBook(t, resolver, ctx, "Clean Code", "Robert Martin", "refactoring")
	createTestBook(t, resolver, ctx, "Agile software development", "Robert Martin", "agile", "design")
	if _, err := svc.EditAuthor(ctx, "Robert Martin", 1952); err != nil {
		t.Fatalf("EditAuthor() error = %v", err)
	}
	if _, _, err := svc.Store().EnsureAuthor(ctx, "Sandi Metz"); err != nil {
		t.Fatalf("EnsureAuthor() error = %v", err)
	}

	data, resp := execQuery(t, exec, context.Background(), `{
		bookCount
		authorCount
		allBooks(genre: "design") { title genres author { name born } }
		allAuthors { name born bookCount }
	}`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}

	if data["bookCount"] != float64(2) {
		t.Errorf("bookCount = %v, want 2", data["bookCount"])
	}
	if data["authorCount"] != float64(2) {
		t.Errorf("authorCount = %v, want 2", data["authorCount"])
	}

	books := data["allBooks"].([]any)
	if len(books) != 1 {
		t.Fatalf("allBooks = %v, want one book", books)
	}
	book := books[0].(map[string]any)
	if book["title"] != "Agile software development" {
		t.Errorf("title = %v", book["title"])
	}
	if g := book["genres"].([]any); len(g) != 2 || g[0] != "agile" || g[1] != "design" {
		t.Errorf("genres = %v, want [agile design]", g)
	}
	author := book["author"].(map[string]any)
	if author["name"] != "Robert Martin" || author["born"] != float64(1952) {
		t.Errorf("author = %v", author)
	}

	counts := map[string]any{}
	borns := map[string]any{}
	for _, a := range data["allAuthors"].([]any) {
		a := a.(map[string]any)
		counts[a["name"].(string)] = a["bookCount"]
		borns[a["name"].(string)] = a["born"]
	}
	if counts["Robert Martin"] != float64(2) || counts["Sandi Metz"] != float64(0) {
		t.Errorf("bookCounts = %v", counts)
	}
	if borns["Sandi Metz"] != nil {
		t.Errorf("Sandi Metz born = %v, want null", borns["Sandi Metz"])
	}
}

func TestExecAuthorBookCount(t *testing.T) {
	resolver, svc := setupTestResolver(t)
	ctx := authedContext(t, svc)
	exec := newTestExecutor(t, resolver)

	createTestBook(t, resolver, ctx, "Clean Code", "Robert Martin", "refactoring")
	createTestBook(t, resolver, ctx, "Agile software development", "Robert Martin", "agile")
	createTestBook(t, resolver, ctx, "Crime and punishment", "Fyodor Dostoevsky", "classic")

	data, resp := execQuery(t, exec, ctx, `mutation { editAuthor(name: "Robert Martin", setBornTo: 1952) { name bookCount } }`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("editAuthor errors: %v", resp.Errors)
	}
	if got := data["editAuthor"].(map[string]any)["bookCount"]; got != float64(2) {
		t.Errorf("editAuthor bookCount = %v, want 2", got)
	}

	data, resp = execQuery(t, exec, ctx, `{ allBooks(author: "Robert Martin") { title author { name bookCount } } }`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("allBooks errors: %v", resp.Errors)
	}
	books := data["allBooks"].([]any)
	if len(books) != 2 {
		t.Fatalf("allBooks = %v, want two books", books)
	}
	for _, b := range books {
		author := b.(map[string]any)["author"].(map[string]any)
		if author["bookCount"] != float64(2) {
			t.Errorf("%v author bookCount = %v, want 2", b.(map[string]any)["title"], author["bookCount"])
		}
	}

	data, resp = execQuery(t, exec, ctx, `mutation { addBook(title: "The Demon", author: "Fyodor Dostoevsky", published: 1872, genres: []) { author { bookCount } } }`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("addBook errors: %v", resp.Errors)
	}
	if got := data["addBook"].(map[string]any)["author"].(map[string]any)["bookCount"]; got != float64(2) {
		t.Errorf("addBook author bookCount = %v, want 2", got)
	}
}

func TestExecFieldOrderAndAliases(t *testing.T) {
	resolver, _ := setupTestResolver(t)
	exec := newTestExecutor(t, resolver)

	resp, _, _ := runOperation(context.Background(), exec, `{ b: bookCount __typename a: authorCount }`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}
	want := `{"b":0,"__typename":"Query","a":0}`
	if string(resp.Data) != want {
		t.Errorf("data = %s, want %s", resp.Data, want)
	}
}

func TestExecVariables(t *testing.T) {
	resolver, svc := setupTestResolver(t)
	ctx := authedContext(t, svc)
	exec := newTestExecutor(t, resolver)

	data, resp := execQuery(t, exec, ctx, `mutation Add($title: String!, $author: String!, $year: Int!, $genres: [String!]!) {
		addBook(title: $title, author: $author, published: $year, genres: $genres) {
			id title published genres author { name bookCount }
		}
	}`, map[string]any{
		"title":  "Crime and punishment",
		"author": "Fyodor Dostoevsky",
		"year":   1866,
		"genres": []any{"classic", "crime"},
	})
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}

	book := data["addBook"].(map[string]any)
	if book["id"] == "" || book["published"] != float64(1866) {
		t.Errorf("addBook = %v", book)
	}
	if n, _ := svc.BookCount(ctx); n != 1 {
		t.Errorf("BookCount() = %d, want 1", n)
	}
}

func TestExecAddBookUnauthenticated(t *testing.T) {
	resolver, svc := setupTestResolver(t)
	exec := newTestExecutor(t, resolver)

	data, resp := execQuery(t, exec, context.Background(),
		`mutation { addBook(title: "Clean Code", author: "Robert Martin", published: 2008, genres: []) { title } }`, nil)

	if code := errorCode(t, resp); code != CodeUnauthenticated {
		t.Errorf("code = %q, want %s", code, CodeUnauthenticated)
	}
	if data != nil {
		t.Errorf("data = %v, want null", data)
	}
	if n, _ := svc.AuthorCount(context.Background()); n != 0 {
		t.Errorf("AuthorCount() = %d, want 0", n)
	}
}

func TestExecValidationError(t *testing.T) {
	resolver, svc := setupTestResolver(t)
	ctx := authedContext(t, svc)
	exec := newTestExecutor(t, resolver)

	_, resp := execQuery(t, exec, ctx,
		`mutation { addBook(title: "Abcd", author: "Robert Martin", published: 2008, genres: []) { title } }`, nil)

	if code := errorCode(t, resp); code != CodeBadUserInput {
		t.Errorf("code = %q, want %s", code, CodeBadUserInput)
	}
	if got := resp.Errors[0].Extensions["invalidArgs"]; got != "Abcd" {
		t.Errorf("invalidArgs = %v, want Abcd", got)
	}
	if !strings.Contains(resp.Errors[0].Message, "at least 5 characters") {
		t.Errorf("message = %q", resp.Errors[0].Message)
	}
	if len(resp.Errors[0].Path) == 0 || resp.Errors[0].Path.String() != "addBook" {
		t.Errorf("path = %v, want addBook", resp.Errors[0].Path)
	}
}

func TestExecCreateUserDuplicate(t *testing.T) {
	resolver, svc := setupTestResolver(t)
	createTestUser(t, svc, "mluukkai")
	exec := newTestExecutor(t, resolver)

	data, resp := execQuery(t, exec, context.Background(),
		`mutation { createUser(username: "mluukkai", favoriteGenre: "crime") { username } }`, nil)

	if code := errorCode(t, resp); code != CodeBadUserInput {
		t.Errorf("code = %q, want %s", code, CodeBadUserInput)
	}
	if got := resp.Errors[0].Extensions["invalidArgs"]; got != "mluukkai" {
		t.Errorf("invalidArgs = %v, want mluukkai", got)
	}
	if resp.Errors[0].Extensions["error"] == nil {
		t.Error("extensions.error missing")
	}
	if data["createUser"] != nil {
		t.Errorf("createUser = %v, want null", data["createUser"])
	}
}

func TestExecEditAuthorUnknownIsNull(t *testing.T) {
	resolver, svc := setupTestResolver(t)
	ctx := authedContext(t, svc)
	exec := newTestExecutor(t, resolver)

	data, resp := execQuery(t, exec, ctx, `mutation { editAuthor(name: "Nobody Here", setBornTo: 1900) { name born } }`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}
	if v, ok := data["editAuthor"]; !ok || v != nil {
		t.Errorf("editAuthor = %v, want null", v)
	}
}

func TestExecLogin(t *testing.T) {
	resolver, svc := setupTestResolver(t)
	createTestUser(t, svc, "mluukkai")
	exec := newTestExecutor(t, resolver)

	data, resp := execQuery(t, exec, context.Background(),
		`mutation { login(username: "mluukkai", password: "secret") { value } }`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}
	token := data["login"].(map[string]any)["value"].(string)
	if token == "" {
		t.Fatal("empty token")
	}

	_, wrong := execQuery(t, exec, context.Background(),
		`mutation { login(username: "mluukkai", password: "nope") { value } }`, nil)
	_, unknown := execQuery(t, exec, context.Background(),
		`mutation { login(username: "nobody", password: "secret") { value } }`, nil)

	if errorCode(t, wrong) != CodeUnauthenticated || errorCode(t, unknown) != CodeUnauthenticated {
		t.Errorf("codes = %q / %q, want %s", errorCode(t, wrong), errorCode(t, unknown), CodeUnauthenticated)
	}
	if wrong.Errors[0].Message != unknown.Errors[0].Message {
		t.Errorf("messages differ: %q vs %q", wrong.Errors[0].Message, unknown.Errors[0].Message)
	}
}

func TestExecMe(t *testing.T) {
	resolver, svc := setupTestResolver(t)
	exec := newTestExecutor(t, resolver)

	data, resp := execQuery(t, exec, context.Background(), `{ me { username } }`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("anonymous me errors: %v", resp.Errors)
	}
	if data["me"] != nil {
		t.Errorf("me = %v, want null", data["me"])
	}

	u := createTestUser(t, svc, "hellas")
	data, resp = execQuery(t, exec, auth.WithUser(context.Background(), u), `{ me { id username favoriteGenre } }`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("me errors: %v", resp.Errors)
	}
	me := data["me"].(map[string]any)
	if me["username"] != "hellas" || me["id"] != u.ID || me["favoriteGenre"] != "refactoring" {
		t.Errorf("me = %v", me)
	}
}

func TestExecSearchBooks(t *testing.T) {
	resolver, svc := setupTestResolver(t)
	ctx := authedContext(t, svc)
	exec := newTestExecutor(t, resolver)

	createTestBook(t, resolver, ctx, "Crime and punishment", "Fyodor Dostoevsky", "classic")
	createTestBook(t, resolver, ctx, "Clean Code", "Robert Martin")

	data, resp := execQuery(t, exec, ctx, `{ searchBooks(query: "punishment", limit: 5) { title author { name } } }`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}
	books := data["searchBooks"].([]any)
	if len(books) != 1 || books[0].(map[string]any)["title"] != "Crime and punishment" {
		t.Errorf("searchBooks = %v", books)
	}
}

func TestExecValidationFailureKeepsCode(t *testing.T) {
	resolver, _ := setupTestResolver(t)
	exec := newTestExecutor(t, resolver)

	_, resp := execQuery(t, exec, context.Background(), `{ noSuchField }`, nil)
	if code := errorCode(t, resp); code == CodeInternal || code == "" {
		t.Errorf("code = %q, want gqlgen validation code", code)
	}
}

func TestExecIntrospection(t *testing.T) {
	resolver, _ := setupTestResolver(t)
	exec := newTestExecutor(t, resolver)

	data, resp := execQuery(t, exec, context.Background(), `{
		__schema { queryType { name } subscriptionType { name } }
		__type(name: "Author") { kind name fields { name type { kind name ofType { name } } } }
	}`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}

	schema := data["__schema"].(map[string]any)
	if schema["queryType"].(map[string]any)["name"] != "Query" {
		t.Errorf("queryType = %v", schema["queryType"])
	}
	if schema["subscriptionType"].(map[string]any)["name"] != "Subscription" {
		t.Errorf("subscriptionType = %v", schema["subscriptionType"])
	}

	typ := data["__type"].(map[string]any)
	if typ["kind"] != "OBJECT" || typ["name"] != "Author" {
		t.Errorf("__type = %v", typ)
	}
	fields := map[string]bool{}
	for _, f := range typ["fields"].([]any) {
		fields[f.(map[string]any)["name"].(string)] = true
	}
	for _, want := range []string{"id", "name", "born", "bookCount"} {
		if !fields[want] {
			t.Errorf("Author.%s missing from introspection", want)
		}
	}
}

func TestExecSubscription(t *testing.T) {
	resolver, svc := setupTestResolver(t)
	ctx := authedContext(t, svc)
	exec := newTestExecutor(t, resolver)

	subCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subCtx = graphql.StartOperationTrace(subCtx)
	opCtx, errs := exec.CreateOperationContext(subCtx, &graphql.RawParams{
		Query: `subscription { bookAdded { title author { name } } }`,
	})
	if errs != nil {
		t.Fatalf("CreateOperationContext() errors = %v", errs)
	}
	next, subCtx := exec.DispatchOperation(subCtx, opCtx)

	// The listener is registered by DispatchOperation
	if n := resolver.Events.Subscribers("BOOK_ADDED"); n != 1 {
		t.Fatalf("Subscribers() = %d, want 1", n)
	}

	createTestBook(t, resolver, ctx, "Clean Code", "Robert Martin")
	createTestBook(t, resolver, ctx, "The Demon", "Fyodor Dostoevsky")

	for _, want := range []string{
		`{"bookAdded":{"title":"Clean Code","author":{"name":"Robert Martin"}}}`,
		`{"bookAdded":{"title":"The Demon","author":{"name":"Fyodor Dostoevsky"}}}`,
	} {
		resp := next(subCtx)
		if resp == nil {
			t.Fatal("stream ended early")
		}
		if len(resp.Errors) > 0 {
			t.Fatalf("errors: %v", resp.Errors)
		}
		if string(resp.Data) != want {
			t.Errorf("data = %s, want %s", resp.Data, want)
		}
	}

	cancel()
	done := make(chan *graphql.Response, 1)
	go func() { done <- next(subCtx) }()
	select {
	case resp := <-done:
		if resp != nil {
			t.Errorf("response after cancel = %s, want end of stream", resp.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("stream did not end after cancel")
	}
}

type failingSubscriptions struct{ *Resolver }

func (r failingSubscriptions) Subscription() SubscriptionResolver { return failingSubscriptionResolver{} }

type failingSubscriptionResolver struct{}

func (failingSubscriptionResolver) BookAdded(ctx context.Context) (<-chan *library.Book, error) {
	return nil, catalog.ErrNotAuthenticated
}

func TestExecSubscriptionSetupError(t *testing.T) {
	resolver, _ := setupTestResolver(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := executor.New(NewExecutableSchema(Config{Resolvers: failingSubscriptions{resolver}}))
	exec.SetErrorPresenter(ErrorPresenter(logger))
	exec.SetRecoverFunc(RecoverFunc(logger))

	resp, next, ctx := runOperation(context.Background(), exec, `subscription { bookAdded { title } }`, nil)
	if resp == nil {
		t.Fatal("nil response, want the setup error")
	}
	if code := errorCode(t, resp); code != CodeUnauthenticated {
		t.Errorf("code = %q, want %s", code, CodeUnauthenticated)
	}
	if len(resp.Errors[0].Path) == 0 || resp.Errors[0].Path.String() != "bookAdded" {
		t.Errorf("path = %v, want bookAdded", resp.Errors[0].Path)
	}
	if more := next(ctx); more != nil {
		t.Errorf("second response = %+v, want end of stream", more)
	}
}
