// Package session keeps the identity of the logged-in portal user in client storage.
package session

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core/user"
)

// StorageKey is the storage item holding the session.
const StorageKey = "user"

// Session identifies the logged-in user. It never expires.
type Session struct {
	Role user.Role `json:"role"`
	ID   string    `json:"id"`
}

type envelope struct {
	User *Session `json:"user"`
}

type Store struct {
	storage Storage
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Set replaces the current session.
func (s *Store) Set(role user.Role, id string) error {
	data, err := json.Marshal(envelope{User: &Session{Role: role, ID: id}})
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	return errors.Wrap(s.storage.SetItem(StorageKey, string(data)), "storing session")
}

// Get returns the current session, or nil when there is none or it cannot be read.
func (s *Store) Get() *Session {
	raw, ok, err := s.storage.GetItem(StorageKey)
	if err != nil || !ok {
		return nil
	}
	var env envelope
	if err = json.Unmarshal([]byte(raw), &env); err != nil {
		return nil
	}
	if env.User == nil || env.User.ID == "" {
		return nil
	}
	return env.User
}

func (s *Store) Clear() error {
	return errors.Wrap(s.storage.RemoveItem(StorageKey), "clearing session")
}
