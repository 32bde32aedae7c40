package auth

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// FirestoreUsers stores accounts in the top-level users collection, one
// document per user keyed by user id.
type FirestoreUsers struct {
	client *firestore.Client
}

var _ UserStore = (*FirestoreUsers)(nil)

// NewFirestoreUsers wraps a Firestore client as a UserStore.
func NewFirestoreUsers(client *firestore.Client) *FirestoreUsers {
	return &FirestoreUsers{client: client}
}

func (f *FirestoreUsers) GetByEmail(ctx context.Context, email string) (User, error) {
	iter := f.client.Collection("users").
		Where("email", "==", email).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to query users: %w", err)
	}

	var user User
	if err := snap.DataTo(&user); err != nil {
		return User{}, fmt.Errorf("failed to parse user record: %w", err)
	}
	return user, nil
}

func (f *FirestoreUsers) Create(ctx context.Context, user User) error {
	if _, err := f.client.Collection("users").Doc(user.UserID).Set(ctx, user); err != nil {
		return fmt.Errorf("failed to create user record: %w", err)
	}
	return nil
}
