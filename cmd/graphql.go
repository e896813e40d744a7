package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/executor"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/hmans/catalog/internal/auth"
	"github.com/hmans/catalog/internal/graph"
)

var errSubscriptionUnsupported = errors.New("subscriptions need a websocket connection; use 'catalog serve'")

var (
	queryJSON       bool
	queryVariables  string
	queryOperation  string
	queryToken      string
	querySchemaOnly bool
)

var graphqlCmd = &cobra.Command{
	Use:     "graphql <query>",
	Aliases: []string{"query", "q"},
	Short:   "Execute a GraphQL query or mutation",
	Long: `Execute a GraphQL query or mutation against the catalog.

Examples:
  # Count books and authors
  catalog graphql '{ bookCount authorCount }'

  # Books in a genre
  catalog graphql '{ allBooks(genre: "refactoring") { title author { name } } }'

  # Mutations that need a logged in user take a token
  catalog graphql --token "$TOKEN" 'mutation { editAuthor(name: "Sandi Metz", setBornTo: 1958) { name born } }'

  # Use variables
  catalog graphql -v '{"q": "robert"}' 'query Find($q: String!) { searchBooks(query: $q) { title } }'

  # Read from stdin
  cat query.graphql | catalog graphql

  # Print the schema
  catalog graphql --schema`,
	Args: func(cmd *cobra.Command, args []string) error {
		if querySchemaOnly {
			return nil
		}
		if len(args) > 1 {
			return fmt.Errorf("accepts at most 1 argument (the GraphQL query)")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if querySchemaOnly {
			return printSchema()
		}

		var query string
		if len(args) == 1 {
			query = args[0]
		} else {
			stdinQuery, err := readFromStdin()
			if err != nil {
				return err
			}
			if stdinQuery == "" {
				return fmt.Errorf("no query provided (pass as argument or pipe to stdin)")
			}
			query = stdinQuery
		}

		var variables map[string]any
		if queryVariables != "" {
			if err := json.Unmarshal([]byte(queryVariables), &variables); err != nil {
				return fmt.Errorf("invalid variables JSON: %w", err)
			}
		}

		ctx, err := authContext(cmd.Context(), queryToken)
		if err != nil {
			return err
		}

		result, err := executeQuery(ctx, query, variables, queryOperation)
		if err != nil {
			return err
		}

		if queryJSON {
			fmt.Println(string(result))
		} else {
			prettyPrint(result)
		}
		return nil
	},
}

// readFromStdin reads the query from stdin if it is a pipe or file.
func readFromStdin() (string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return "", nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// authContext attaches the user the token belongs to. An empty token leaves
// the context anonymous.
func authContext(ctx context.Context, token string) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if token == "" {
		return ctx, nil
	}
	gate := auth.NewGate(app.tokens, app.store)
	ctx, err := gate.Authenticate(ctx, "Bearer "+token)
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	return ctx, nil
}

// executeQuery runs a GraphQL operation against the catalog.
// On success, it returns just the data portion of the response.
func executeQuery(ctx context.Context, query string, variables map[string]any, operationName string) ([]byte, error) {
	es := graph.NewExecutableSchema(graph.Config{
		Resolvers: &graph.Resolver{Catalog: app.catalog, Events: app.events},
	})

	exec := executor.New(es)
	exec.Use(extension.Introspection{})
	exec.SetErrorPresenter(graph.ErrorPresenter(slog.Default()))
	exec.SetRecoverFunc(graph.RecoverFunc(slog.Default()))

	ctx = graphql.StartOperationTrace(ctx)
	params := &graphql.RawParams{
		Query:         query,
		Variables:     variables,
		OperationName: operationName,
	}

	opCtx, errs := exec.CreateOperationContext(ctx, params)
	if errs != nil {
		return nil, formatGraphQLErrors(errs)
	}
	if opCtx.Operation != nil && opCtx.Operation.Operation == ast.Subscription {
		return nil, errSubscriptionUnsupported
	}

	ctx = graphql.WithOperationContext(ctx, opCtx)
	handler, ctx := exec.DispatchOperation(ctx, opCtx)
	resp := handler(ctx)

	if len(resp.Errors) > 0 {
		return nil, formatGraphQLErrors(resp.Errors)
	}
	return resp.Data, nil
}

// formatGraphQLErrors folds GraphQL errors into a single error, keeping the
// error code where one is set.
func formatGraphQLErrors(errs gqlerror.List) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return fmt.Errorf("graphql: %s", describeError(errs[0]))
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, describeError(e))
	}
	return fmt.Errorf("graphql errors:\n  %s", strings.Join(msgs, "\n  "))
}

func describeError(e *gqlerror.Error) string {
	if code, ok := e.Extensions["code"].(string); ok && code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, code)
	}
	return e.Message
}

// prettyPrint outputs the JSON with colors and indentation.
func prettyPrint(data []byte) {
	fmt.Println(string(pretty.Color(pretty.Pretty(data), nil)))
}

func printSchema() error {
	fmt.Print(GetGraphQLSchema())
	return nil
}

// GetGraphQLSchema returns the GraphQL schema as SDL.
func GetGraphQLSchema() string {
	var buf bytes.Buffer
	f := formatter.NewFormatter(&buf, formatter.WithIndent("  "))
	es := graph.NewExecutableSchema(graph.Config{Resolvers: &graph.Resolver{}})
	f.FormatSchema(es.Schema())
	return buf.String()
}

func init() {
	graphqlCmd.Flags().BoolVar(&queryJSON, "json", false, "Output raw JSON (no formatting)")
	graphqlCmd.Flags().StringVarP(&queryVariables, "variables", "v", "", "Query variables as JSON string")
	graphqlCmd.Flags().StringVarP(&queryOperation, "operation", "o", "", "Operation name (for multi-operation documents)")
	graphqlCmd.Flags().StringVar(&queryToken, "token", "", "Bearer token to run the operation as a user")
	graphqlCmd.Flags().BoolVar(&querySchemaOnly, "schema", false, "Print the GraphQL schema and exit")
	rootCmd.AddCommand(graphqlCmd)
}
