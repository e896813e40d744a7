package graph

// This file will be automatically regenerated based on the schema, any resolver
// implementations
// will be copied through when generating and any unknown code will be moved to the end.
// Code generated by github.com/99designs/gqlgen version v0.17.84

import (
	"context"

	"github.com/hmans/catalog/internal/auth"
	"github.com/hmans/catalog/internal/catalog"
	"github.com/hmans/catalog/internal/graph/model"
	"github.com/hmans/catalog/internal/library"
)

// BookCount is the resolver for the bookCount field.
func (r *authorResolver) BookCount(ctx context.Context, obj *library.Author) (int, error) {
	return r.Catalog.AuthorBookCount(ctx, obj)
}

// AddBook is the resolver for the addBook field.
func (r *mutationResolver) AddBook(ctx context.Context, title string, author string, published int, genres []string) (*library.Book, error) {
	if auth.UserFromContext(ctx) == nil {
		return nil, catalog.ErrNotAuthenticated
	}
	return r.Catalog.AddBook(ctx, catalog.NewBook{
		Title:     title,
		Author:    author,
		Published: published,
		Genres:    genres,
	})
}

// EditAuthor is the resolver for the editAuthor field.
func (r *mutationResolver) EditAuthor(ctx context.Context, name string, setBornTo int) (*library.Author, error) {
	if auth.UserFromContext(ctx) == nil {
		return nil, catalog.ErrNotAuthenticated
	}
	return r.Catalog.EditAuthor(ctx, name, setBornTo)
}

// CreateUser is the resolver for the createUser field.
func (r *mutationResolver) CreateUser(ctx context.Context, username string, favoriteGenre string, password *string) (*library.User, error) {
	return r.Catalog.CreateUser(ctx, username, favoriteGenre, deref(password))
}

// Login is the resolver for the login field.
func (r *mutationResolver) Login(ctx context.Context, username string, password string) (*model.Token, error) {
	value, err := r.Catalog.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return &model.Token{Value: value}, nil
}

// BookCount is the resolver for the bookCount field.
func (r *queryResolver) BookCount(ctx context.Context) (int, error) {
	return r.Catalog.BookCount(ctx)
}

// AuthorCount is the resolver for the authorCount field.
func (r *queryResolver) AuthorCount(ctx context.Context) (int, error) {
	return r.Catalog.AuthorCount(ctx)
}

// AllBooks is the resolver for the allBooks field.
func (r *queryResolver) AllBooks(ctx context.Context, author *string, genre *string) ([]*library.Book, error) {
	return r.Catalog.Books(ctx, deref(author), deref(genre))
}

// AllAuthors is the resolver for the allAuthors field.
func (r *queryResolver) AllAuthors(ctx context.Context) ([]*library.Author, error) {
	return r.Catalog.Authors(ctx)
}

// Me is the resolver for the me field.
func (r *queryResolver) Me(ctx context.Context) (*library.User, error) {
	return auth.UserFromContext(ctx), nil
}

// SearchBooks is the resolver for the searchBooks field.
func (r *queryResolver) SearchBooks(ctx context.Context, query string, limit *int) ([]*library.Book, error) {
	n := 0
	if limit != nil {
		n = *limit
	}
	return r.Catalog.SearchBooks(ctx, query, n)
}

// BookAdded is the resolver for the bookAdded field. The stream ends when
// the subscriber disconnects.
func (r *subscriptionResolver) BookAdded(ctx context.Context) (<-chan *library.Book, error) {
	return r.Events.Subscribe(ctx, catalog.TopicBookAdded), nil
}

// Author returns AuthorResolver implementation.
func (r *Resolver) Author() AuthorResolver { return &authorResolver{r} }

// Mutation returns MutationResolver implementation.
func (r *Resolver) Mutation() MutationResolver { return &mutationResolver{r} }

// Query returns QueryResolver implementation.
func (r *Resolver) Query() QueryResolver { return &queryResolver{r} }

// Subscription returns SubscriptionResolver implementation.
func (r *Resolver) Subscription() SubscriptionResolver { return &subscriptionResolver{r} }

type authorResolver struct{ *Resolver }
type mutationResolver struct{ *Resolver }
type queryResolver struct{ *Resolver }
type subscriptionResolver struct{ *Resolver }
