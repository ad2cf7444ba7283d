// internal/players/directory.go
package players

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxNameLength bounds display names accepted at the boundary.
const MaxNameLength = 24

const avatarBase = "https://ui-avatars.com/api/"

// Player is a participant's profile. Host status and score are owned by the session.
type Player struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar"`
	SessionCode string    `json:"-"`
	JoinedAt    time.Time `json:"-"`
}

// NewPlayer builds a player with a fresh id and a generated avatar.
// Hosts get a darker avatar background than guests.
func NewPlayer(name string, host bool) (*Player, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	bg := "666"
	if host {
		bg = "333"
	}
	return &Player{
		ID:       uuid.New(),
		Name:     name,
		Avatar:   AvatarURL(name, bg),
		JoinedAt: time.Now(),
	}, nil
}

// CleanName trims and validates a display name.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("player name is required")
	}
	if len([]rune(name)) > MaxNameLength {
		return "", fmt.Errorf("player name longer than %d characters", MaxNameLength)
	}
	return name, nil
}

// AvatarURL renders an initials avatar for name on the given background color.
func AvatarURL(name, background string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("background", background)
	q.Set("color", "fff")
	return avatarBase + "?" + q.Encode()
}

// Directory maps player ids to profiles independently of any session's lifecycle.
type Directory struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*Player
}

func NewDirectory() *Directory {
	return &Directory{
		players: make(map[uuid.UUID]*Player),
	}
}

func (d *Directory) Add(p *Player) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.players[p.ID] = p
}

func (d *Directory) Get(id uuid.UUID) (*Player, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.players[id]
	return p, ok
}

// Remove deletes a player. Removing an unknown id is a no-op.
func (d *Directory) Remove(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.players, id)
}

// RemoveSession drops every player whose membership points at code.
func (d *Directory) RemoveSession(code string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for id, p := range d.players {
		if p.SessionCode == code {
			delete(d.players, id)
			n++
		}
	}
	return n
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.players)
}
