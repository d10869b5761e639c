package models

import (
	"slices"
	"time"
)

// Format is the squad-size category of a match
type Format string

const (
	FormatF5  Format = "F5"
	FormatF6  Format = "F6"
	FormatF7  Format = "F7"
	FormatF8  Format = "F8"
	FormatF9  Format = "F9"
	FormatF10 Format = "F10"
	FormatF11 Format = "F11"
)

// Formats lists every format in squad-size order.
var Formats = []Format{FormatF5, FormatF6, FormatF7, FormatF8, FormatF9, FormatF10, FormatF11}

// Valid reports whether f is one of the known formats
func (f Format) Valid() bool {
	return slices.Contains(Formats, f)
}

// Team identifies a side of a match
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// Valid reports whether t is A or B
func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

// User represents a user in the system. A user without a username is a
// shadow record created on first authenticated contact.
type User struct {
	AuthID                  string    `json:"auth_id" dynamodbav:"auth_id"`
	Username                *string   `json:"username" dynamodbav:"username,omitempty"`
	Email                   string    `json:"email" dynamodbav:"email"`
	Friends                 []string  `json:"friends" dynamodbav:"friends,stringset,omitempty"`
	PendingSentRequests     []string  `json:"pending_sent_requests" dynamodbav:"pending_sent_requests,stringset,omitempty"`
	PendingReceivedRequests []string  `json:"pending_received_requests" dynamodbav:"pending_received_requests,stringset,omitempty"`
	CreatedAt               time.Time `json:"created_at" dynamodbav:"created_at"`
}

// IsRegistered reports whether the user has completed registration
func (u *User) IsRegistered() bool {
	return u.Username != nil && *u.Username != ""
}

// DisplayName returns the username or an empty string for shadow users
func (u *User) DisplayName() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

// IsFriend reports whether id is a confirmed friend
func (u *User) IsFriend(id string) bool {
	return slices.Contains(u.Friends, id)
}

// HasSentRequestTo reports whether a request to id is pending
func (u *User) HasSentRequestTo(id string) bool {
	return slices.Contains(u.PendingSentRequests, id)
}

// HasRequestFrom reports whether a request from id is awaiting an answer
func (u *User) HasRequestFrom(id string) bool {
	return slices.Contains(u.PendingReceivedRequests, id)
}

// PlayerStat is a single player's line in a match
type PlayerStat struct {
	UserID   string `json:"user_id" dynamodbav:"user_id"`
	Username string `json:"username,omitempty" dynamodbav:"-"`
	Team     Team   `json:"team" dynamodbav:"team"`
	Goals    int    `json:"goals" dynamodbav:"goals"`
	Assists  int    `json:"assists" dynamodbav:"assists"`
}

// Validation records a participant's acknowledgement of a match
type Validation struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Timestamp time.Time `json:"timestamp" dynamodbav:"timestamp"`
	Skipped   bool      `json:"skipped,omitempty" dynamodbav:"skipped,omitempty"`
}

// Score holds the per-team result of a match
type Score struct {
	TeamA int `json:"teamA" dynamodbav:"teamA"`
	TeamB int `json:"teamB" dynamodbav:"teamB"`
}

// For returns the goals scored by team t
func (s Score) For(t Team) int {
	if t == TeamB {
		return s.TeamB
	}
	return s.TeamA
}

// Against returns the goals conceded by team t
func (s Score) Against(t Team) int {
	if t == TeamB {
		return s.TeamA
	}
	return s.TeamB
}

// Match represents a recorded pickup match
type Match struct {
	MatchID         string       `json:"match_id" dynamodbav:"match_id"`
	Date            string       `json:"date" dynamodbav:"date"`
	Time            string       `json:"time" dynamodbav:"time"`
	Location        string       `json:"location" dynamodbav:"location"`
	Format          Format       `json:"format" dynamodbav:"format"`
	CreatedBy       string       `json:"created_by" dynamodbav:"created_by"`
	CreatorUsername string       `json:"creator_username,omitempty" dynamodbav:"-"`
	Players         []PlayerStat `json:"players" dynamodbav:"players"`
	Score           Score        `json:"score" dynamodbav:"score"`
	Validations     []Validation `json:"validations" dynamodbav:"validations"`
	IsValidated     bool         `json:"is_validated" dynamodbav:"is_validated"`
	Version         int          `json:"-" dynamodbav:"version"`
	CreatedAt       time.Time    `json:"created_at" dynamodbav:"created_at"`
}

// Player returns the stat line for userID, if present
func (m *Match) Player(userID string) (PlayerStat, bool) {
	for _, p := range m.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return PlayerStat{}, false
}

// HasPlayer reports whether userID is in the player list
func (m *Match) HasPlayer(userID string) bool {
	_, ok := m.Player(userID)
	return ok
}

// HasValidationFrom reports whether userID has any validation entry
func (m *Match) HasValidationFrom(userID string) bool {
	for _, v := range m.Validations {
		if v.UserID == userID {
			return true
		}
	}
	return false
}

// PlayerIDs returns the ids of all players in list order
func (m *Match) PlayerIDs() []string {
	ids := make([]string, 0, len(m.Players))
	for _, p := range m.Players {
		ids = append(ids, p.UserID)
	}
	return ids
}

// ValidatorIDs returns the ids of every validation entry
func (m *Match) ValidatorIDs() []string {
	ids := make([]string, 0, len(m.Validations))
	for _, v := range m.Validations {
		ids = append(ids, v.UserID)
	}
	return ids
}

// Clone returns a deep copy so callers can mutate without aliasing
func (m *Match) Clone() *Match {
	c := *m
	c.Players = slices.Clone(m.Players)
	c.Validations = slices.Clone(m.Validations)
	return &c
}

// FriendView is another user as seen by the viewer, with the relationship
// between them
type FriendView struct {
	AuthID           string    `json:"auth_id"`
	Username         string    `json:"username"`
	Email            string    `json:"email,omitempty"`
	IsFriend         bool      `json:"is_friend"`
	IsPendingFriend  bool      `json:"is_pending_friend"`
	IsPendingRequest bool      `json:"is_pending_request"`
	CreatedAt        time.Time `json:"created_at"`
}

// ViewOf describes other from u's point of view
func (u *User) ViewOf(other *User) FriendView {
	return FriendView{
		AuthID:           other.AuthID,
		Username:         other.DisplayName(),
		Email:            other.Email,
		IsFriend:         u.IsFriend(other.AuthID),
		IsPendingFriend:  u.HasSentRequestTo(other.AuthID),
		IsPendingRequest: u.HasRequestFrom(other.AuthID),
		CreatedAt:        other.CreatedAt,
	}
}
