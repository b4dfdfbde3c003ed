package store

import "github.com/pliu/chainchat/internal/models"

// Store is the room directory: room records and their message history.
// Token balances are deliberately not here; they belong to the core ledger.
type Store interface {
	// Room operations
	CreateRoom(name, creator string) (string, error)
	EnsureRoom(id, name, creator string) error
	RoomExists(id string) (bool, error)
	GetRoom(id string) (*models.Room, error)
	ListRooms() ([]models.Room, error)

	// Message operations
	AppendMessage(roomID string, m *models.Message) error
	RoomMessages(roomID string) ([]models.Message, error)
}
