// Package mongostore implements the repository store interfaces on MongoDB.
// Documents use string ids so records stay readable from the mongo shell.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"visar-backend/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	_ repository.ClientStore       = (*ClientStore)(nil)
	_ repository.ReferenceStore    = (*ReferenceStore)(nil)
	_ repository.TemplateStore     = (*TemplateStore)(nil)
	_ repository.ConversationStore = (*ConversationStore)(nil)
	_ repository.PetitionStore     = (*PetitionStore)(nil)
	_ repository.JobStore          = (*JobStore)(nil)
	_ repository.CaseDocumentStore = (*CaseDocumentStore)(nil)
)

// Collection names
const (
	ClientsCollection       = "clients"
	ReferencesCollection    = "reference_documents"
	TemplatesCollection     = "templates"
	ConversationsCollection = "conversation_turns"
	PetitionsCollection     = "petitions"
	JobsCollection          = "jobs"
	CaseDocumentsCollection = "documents"
)

// Connect opens a client for uri and verifies it with a ping
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the stores rely on. The unique
// (client_id, seq) index is what turns a lost append race into ErrConflict.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		ClientsCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		ReferencesCollection: {
			{Keys: bson.D{{Key: "indexed", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "visa_type", Value: 1}}},
		},
		TemplatesCollection: {
			{Keys: bson.D{{Key: "visa_type", Value: 1}, {Key: "criterion", Value: 1}}},
		},
		ConversationsCollection: {
			{
				Keys:    bson.D{{Key: "client_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		PetitionsCollection: {
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		CaseDocumentsCollection: {
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "uploaded_at", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// translate maps driver errors onto the repository sentinel errors
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return errors.Join(repository.ErrConflict, err)
	}
	return err
}

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// requireMatch turns a write that matched nothing into ErrNotFound
func requireMatch(matched int64) error {
	if matched == 0 {
		return repository.ErrNotFound
	}
	return nil
}
