package types

import (
	"fmt"
	"time"
)

// Status is the tri-state health of a plant.
type Status int

const (
	StatusError     Status = -1
	StatusUnknown   Status = 0
	StatusProducing Status = 1
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusError:
		return "ERROR"
	case StatusProducing:
		return "PRODUCING"
	case StatusUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Valid reports whether s is one of the three known states.
func (s Status) Valid() bool {
	return s == StatusError || s == StatusUnknown || s == StatusProducing
}

// Credentials are the vendor login details stored with a plant. Only the
// fields a given vendor needs are filled in.
type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	// StationID is the vendor-side plant identifier when the account owns
	// more than one plant. If empty the adapter picks the first plant.
	StationID string `json:"stationID,omitempty" yaml:"stationID,omitempty"`
	AppID     string `json:"appID,omitempty" yaml:"appID,omitempty"`
	AppSecret string `json:"appSecret,omitempty" yaml:"appSecret,omitempty"`
}

// Plant is a solar installation being monitored.
type Plant struct {
	ID          string      `json:"id" yaml:"id"`
	PublicCode  string      `json:"publicCode" yaml:"publicCode"`
	OwnerID     string      `json:"ownerID" yaml:"ownerID"`
	Vendor      string      `json:"vendor" yaml:"vendor"`
	Credentials Credentials `json:"credentials" yaml:"credentials"`
	Status      Status      `json:"status" yaml:"status"`
	ETotal      float64     `json:"eTotal" yaml:"eTotal"`
	UpdatedAt   time.Time   `json:"updatedAt" yaml:"updatedAt"`
}

// PlantUpdate is what the scheduler writes back after a successful poll.
type PlantUpdate struct {
	Status    Status    `json:"status"`
	ETotal    float64   `json:"eTotal"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Notification is an alert shown to a plant owner.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userID"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
