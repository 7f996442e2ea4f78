package storage

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"

	"github.com/solarfleet/solarfleet/pkg/types"
)

// MemoryProvider keeps everything in process memory. The fleet can be
// seeded from a YAML file; nothing is written back.
type MemoryProvider struct {
	file string

	mu            sync.Mutex
	plants        map[string]types.Plant
	notifications map[string]types.Notification
}

// Fleet is the layout of the YAML seed file.
type Fleet struct {
	Plants []types.Plant `yaml:"plants"`
}

// NewMemoryProvider returns an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		plants:        make(map[string]types.Plant),
		notifications: make(map[string]types.Notification),
	}
}

func configuredMemory() *MemoryProvider {
	file := lflag.String("memory-fleet-file", "", "YAML file with the plants to load when storage-provider is memory")

	m := NewMemoryProvider()
	lflag.Do(func() {
		m.file = *file
	})
	return m
}

// Init loads the fleet file if one is configured.
func (m *MemoryProvider) Init() error {
	if m.file == "" {
		return nil
	}
	buf, err := os.ReadFile(m.file)
	if err != nil {
		return fmt.Errorf("failed to read fleet file: %w", err)
	}
	return m.Load(buf)
}

// ParseFleet decodes a YAML fleet document and checks every plant has an id
// and a vendor.
func ParseFleet(buf []byte) ([]types.Plant, error) {
	var fleet Fleet
	if err := yaml.Unmarshal(buf, &fleet); err != nil {
		return nil, fmt.Errorf("failed to parse fleet: %w", err)
	}
	for i, p := range fleet.Plants {
		if p.ID == "" {
			return nil, fmt.Errorf("plant %d has no id", i)
		}
		if p.Vendor == "" {
			return nil, fmt.Errorf("plant %s has no vendor", p.ID)
		}
	}
	return fleet.Plants, nil
}

// Load adds the plants of a YAML fleet document.
func (m *MemoryProvider) Load(buf []byte) error {
	plants, err := ParseFleet(buf)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range plants {
		m.plants[p.ID] = p
	}
	return nil
}

// Close is a no-op.
func (m *MemoryProvider) Close() error {
	return nil
}

// ListPlants returns the plants ordered by id.
func (m *MemoryProvider) ListPlants(ctx context.Context) ([]types.Plant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plants := make([]types.Plant, 0, len(m.plants))
	for _, p := range m.plants {
		plants = append(plants, p)
	}
	slices.SortFunc(plants, func(a, b types.Plant) int { return strings.Compare(a.ID, b.ID) })
	return plants, nil
}

func (m *MemoryProvider) GetPlant(ctx context.Context, id string) (types.Plant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plants[id]
	if !ok {
		return types.Plant{}, fmt.Errorf("%w: %s", ErrPlantNotFound, id)
	}
	return p, nil
}

func (m *MemoryProvider) PutPlant(ctx context.Context, plant types.Plant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plants[plant.ID] = plant
	return nil
}

func (m *MemoryProvider) UpdatePlantStatus(ctx context.Context, id string, update types.PlantUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plants[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlantNotFound, id)
	}
	p.Status = update.Status
	p.ETotal = update.ETotal
	p.UpdatedAt = update.UpdatedAt
	m.plants[id] = p
	return nil
}

func (m *MemoryProvider) FindUnreadNotification(ctx context.Context, userID, message string) (*types.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *types.Notification
	for _, n := range m.notifications {
		if n.Read || n.UserID != userID || n.Message != message {
			continue
		}
		if found == nil || n.CreatedAt.Before(found.CreatedAt) {
			n := n
			found = &n
		}
	}
	return found, nil
}

func (m *MemoryProvider) CreateNotification(ctx context.Context, userID, message string) (types.Notification, error) {
	n := types.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.ID] = n
	return n, nil
}

func (m *MemoryProvider) MarkNotificationRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}
	n.Read = true
	m.notifications[id] = n
	return nil
}

// Notifications returns every stored notification, oldest first.
func (m *MemoryProvider) Notifications() []types.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b types.Notification) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}
