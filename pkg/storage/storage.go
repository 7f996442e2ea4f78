package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/solarfleet/solarfleet/pkg/types"
)

var (
	ErrPlantNotFound        = errors.New("plant not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// PlantRepository stores the fleet.
type PlantRepository interface {
	// ListPlants returns every plant in the fleet.
	ListPlants(ctx context.Context) ([]types.Plant, error)
	// GetPlant returns one plant or ErrPlantNotFound.
	GetPlant(ctx context.Context, id string) (types.Plant, error)
	// UpdatePlantStatus writes status, eTotal and updatedAt and nothing else.
	UpdatePlantStatus(ctx context.Context, id string, update types.PlantUpdate) error
	// PutPlant creates or replaces a plant.
	PutPlant(ctx context.Context, plant types.Plant) error
}

// NotificationRepository stores owner alerts.
type NotificationRepository interface {
	// FindUnreadNotification returns the unread notification for userID with
	// exactly message, or nil if there is none.
	FindUnreadNotification(ctx context.Context, userID, message string) (*types.Notification, error)
	CreateNotification(ctx context.Context, userID, message string) (types.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// Database is everything the service persists.
type Database interface {
	PlantRepository
	NotificationRepository

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, postgres, memory)")

	var p struct{ Database }

	fs := configuredFirestore()
	pg := configuredPostgres()
	mem := configuredMemory()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "postgres":
			if err := pg.Validate(); err != nil {
				panic(fmt.Sprintf("postgres validation failed: %v", err))
			}
			p.Database = pg
			if err := pg.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("postgres init failed: %v", err))
			}
		case "memory":
			p.Database = mem
			if err := mem.Init(); err != nil {
				panic(fmt.Sprintf("memory init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
