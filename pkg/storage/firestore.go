package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solarfleet/solarfleet/pkg/log"
	"github.com/solarfleet/solarfleet/pkg/types"
)

// FirestoreProvider implements Database using Google Cloud Firestore.
// Plants are stored as a JSON string in the "json" field so the document
// shape can evolve without migrations. Notifications use plain fields so
// they can be queried.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func decodePlantDoc(doc *firestore.DocumentSnapshot) (types.Plant, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		return types.Plant{}, fmt.Errorf("plant %s missing json: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return types.Plant{}, fmt.Errorf("plant %s json not string", doc.Ref.ID)
	}
	var plant types.Plant
	if err := json.Unmarshal([]byte(jsonStr), &plant); err != nil {
		return types.Plant{}, fmt.Errorf("failed to unmarshal plant %s: %w", doc.Ref.ID, err)
	}
	plant.ID = doc.Ref.ID
	return plant, nil
}

// ListPlants retrieves all plants from the "plants" collection. Malformed
// documents are logged and skipped.
func (f *FirestoreProvider) ListPlants(ctx context.Context) ([]types.Plant, error) {
	iter := f.client.Collection("plants").Documents(ctx)
	defer iter.Stop()

	var plants []types.Plant
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating plants: %w", err)
		}
		plant, err := decodePlantDoc(doc)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping malformed plant", slog.String("plantID", doc.Ref.ID), slog.Any("err", err))
			continue
		}
		plants = append(plants, plant)
	}
	return plants, nil
}

// GetPlant retrieves a plant from the "plants" collection.
func (f *FirestoreProvider) GetPlant(ctx context.Context, id string) (types.Plant, error) {
	doc, err := f.client.Collection("plants").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Plant{}, fmt.Errorf("%w: %s", ErrPlantNotFound, id)
		}
		return types.Plant{}, fmt.Errorf("failed to get plant %s: %w", id, err)
	}
	return decodePlantDoc(doc)
}

// PutPlant creates or replaces a plant. It is used for seeding.
func (f *FirestoreProvider) PutPlant(ctx context.Context, plant types.Plant) error {
	plantJSON, err := json.Marshal(plant)
	if err != nil {
		return fmt.Errorf("failed to marshal plant %s: %w", plant.ID, err)
	}
	_, err = f.client.Collection("plants").Doc(plant.ID).Set(ctx, map[string]interface{}{
		"json": string(plantJSON),
	})
	if err != nil {
		return fmt.Errorf("failed to put plant %s: %w", plant.ID, err)
	}
	return nil
}

// UpdatePlantStatus rewrites the three polled fields inside a transaction
// so concurrent edits of the rest of the plant are not lost.
func (f *FirestoreProvider) UpdatePlantStatus(ctx context.Context, id string, update types.PlantUpdate) error {
	ref := f.client.Collection("plants").Doc(id)
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("%w: %s", ErrPlantNotFound, id)
			}
			return err
		}
		plant, err := decodePlantDoc(doc)
		if err != nil {
			return err
		}
		plant.Status = update.Status
		plant.ETotal = update.ETotal
		plant.UpdatedAt = update.UpdatedAt
		plantJSON, err := json.Marshal(plant)
		if err != nil {
			return fmt.Errorf("failed to marshal plant %s: %w", id, err)
		}
		return tx.Set(ref, map[string]interface{}{"json": string(plantJSON)}, firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("failed to update plant %s: %w", id, err)
	}
	return nil
}

type firestoreNotification struct {
	UserID    string    `firestore:"userID"`
	Message   string    `firestore:"message"`
	Read      bool      `firestore:"read"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func (n firestoreNotification) toType(id string) types.Notification {
	return types.Notification{
		ID:        id,
		UserID:    n.UserID,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

// FindUnreadNotification queries "notifications" for an unread match.
func (f *FirestoreProvider) FindUnreadNotification(ctx context.Context, userID, message string) (*types.Notification, error) {
	iter := f.client.Collection("notifications").
		Where("userID", "==", userID).
		Where("message", "==", message).
		Where("read", "==", false).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	var n firestoreNotification
	if err := doc.DataTo(&n); err != nil {
		return nil, fmt.Errorf("failed to decode notification %s: %w", doc.Ref.ID, err)
	}
	out := n.toType(doc.Ref.ID)
	return &out, nil
}

// CreateNotification adds an unread notification.
func (f *FirestoreProvider) CreateNotification(ctx context.Context, userID, message string) (types.Notification, error) {
	id := uuid.NewString()
	n := firestoreNotification{
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.client.Collection("notifications").Doc(id).Create(ctx, n); err != nil {
		return types.Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}
	return n.toType(id), nil
}

// MarkNotificationRead flags a notification as read.
func (f *FirestoreProvider) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := f.client.Collection("notifications").Doc(id).Update(ctx, []firestore.Update{
		{Path: "read", Value: true},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
		}
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	return nil
}
