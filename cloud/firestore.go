package cloud

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Connect initializes the Firestore client through the Firebase app.
// credentialsFile may be empty when ambient credentials are available.
func Connect(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var fbConfig *firebase.Config
	if projectID != "" {
		fbConfig = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	return client, nil
}

// FirestoreStore stores each user's data under users/{uid}/{collection}/{id}.
type FirestoreStore struct {
	client   *firestore.Client
	sessions SessionSource
}

// Compile-time verification that *FirestoreStore implements Store
var _ Store = (*FirestoreStore)(nil)

// NewFirestoreStore wraps a Firestore client. A nil client yields a store
// that no-ops everything, which keeps local-only installs working.
func NewFirestoreStore(client *firestore.Client, sessions SessionSource) *FirestoreStore {
	return &FirestoreStore{client: client, sessions: sessions}
}

// userCollection resolves the signed-in user's sub-collection, or nil when
// there is no active session.
func (s *FirestoreStore) userCollection(collection string) *firestore.CollectionRef {
	if s.client == nil || s.sessions == nil {
		return nil
	}
	uid, ok := s.sessions.UserID()
	if !ok {
		return nil
	}
	return s.client.Collection("users").Doc(uid).Collection(collection)
}

func (s *FirestoreStore) ListAll(ctx context.Context, collection string) ([]Document, error) {
	col := s.userCollection(collection)
	if col == nil {
		return nil, nil
	}

	var docs []Document
	iter := col.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", collection, err)
		}
		docs = append(docs, snap.Data())
	}
	return docs, nil
}

func (s *FirestoreStore) Upsert(ctx context.Context, collection, id string, doc Document) error {
	col := s.userCollection(collection)
	if col == nil {
		return nil
	}
	if _, err := col.Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	col := s.userCollection(collection)
	if col == nil {
		return nil
	}
	// Firestore deletes are already no-ops for absent documents
	if _, err := col.Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) BatchUpsert(ctx context.Context, collection string, docs []Document) error {
	col := s.userCollection(collection)
	if col == nil || len(docs) == 0 {
		return nil
	}

	batch := s.client.Batch()
	for _, doc := range docs {
		id, ok := doc["id"].(string)
		if !ok || id == "" {
			return ErrMissingID
		}
		batch.Set(col.Doc(id), doc)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s batch: %w", collection, err)
	}
	return nil
}
