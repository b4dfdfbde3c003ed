package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pliu/chainchat/internal/models"
)

type SQLStore struct {
	db         *sql.DB
	driverName string

	mu         sync.Mutex
	lastRoomMs int64
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	s.createTables()
	return s, nil
}

func (s *SQLStore) createTables() {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		creator TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT REFERENCES rooms(id),
		public_key TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		chain_hash TEXT NOT NULL
	);
	`

	if s.driverName == "postgres" {
		// Adjust for Postgres syntax
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
	}

	_, err := s.db.Exec(query)
	if err != nil {
		panic(err)
	}
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

// nextRoomID derives an id from the wall clock, bumped past the previous id
// when two creations land in the same millisecond.
func (s *SQLStore) nextRoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= s.lastRoomMs {
		now = s.lastRoomMs + 1
	}
	s.lastRoomMs = now
	return fmt.Sprintf("room_%d", now)
}

func (s *SQLStore) CreateRoom(name, creator string) (string, error) {
	id := s.nextRoomID()
	query := s.rebind("INSERT INTO rooms (id, name, creator) VALUES (?, ?, ?)")
	if _, err := s.db.Exec(query, id, name, creator); err != nil {
		return "", err
	}
	return id, nil
}

// EnsureRoom inserts a room with a fixed id if it does not exist yet. Used
// for the well-known general room at startup.
func (s *SQLStore) EnsureRoom(id, name, creator string) error {
	exists, err := s.RoomExists(id)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	query := s.rebind("INSERT INTO rooms (id, name, creator) VALUES (?, ?, ?)")
	_, err = s.db.Exec(query, id, name, creator)
	return err
}

func (s *SQLStore) RoomExists(id string) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM rooms WHERE id = ?)")
	err := s.db.QueryRow(query, id).Scan(&exists)
	return exists, err
}

func (s *SQLStore) GetRoom(id string) (*models.Room, error) {
	var room models.Room
	query := s.rebind("SELECT id, name, creator FROM rooms WHERE id = ?")
	err := s.db.QueryRow(query, id).Scan(&room.ID, &room.Name, &room.Creator)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *SQLStore) ListRooms() ([]models.Room, error) {
	query := "SELECT id, name, creator FROM rooms ORDER BY id ASC"
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Creator); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *SQLStore) AppendMessage(roomID string, m *models.Message) error {
	exists, err := s.RoomExists(roomID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("room %s not found", roomID)
	}
	query := s.rebind("INSERT INTO messages (room_id, public_key, content, timestamp, chain_hash) VALUES (?, ?, ?, ?, ?)")
	_, err = s.db.Exec(query, roomID, m.PublicKey, m.Content, m.Timestamp, m.ChainHash)
	return err
}

func (s *SQLStore) RoomMessages(roomID string) ([]models.Message, error) {
	query := s.rebind(`
		SELECT content, public_key, timestamp, chain_hash
		FROM messages
		WHERE room_id = ?
		ORDER BY id ASC
	`)
	rows, err := s.db.Query(query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Content, &m.PublicKey, &m.Timestamp, &m.ChainHash); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
