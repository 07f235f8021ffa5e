package inmemdb

import (
	"sync"

	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
)

type (
	DB struct {
		user        *userTable
		event       *eventTable
		certificate *certificateTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	eventTable struct {
		sync.RWMutex
		table map[int]*event.Event
	}

	certificateTable struct {
		sync.RWMutex
		pkCount int
		table   map[int]*certificate.Certificate
	}
)

func Open() *DB {
	return &DB{
		user:        &userTable{table: make(map[string]*user.User)},
		event:       &eventTable{table: make(map[int]*event.Event)},
		certificate: &certificateTable{table: make(map[int]*certificate.Certificate)},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.event.Lock()
	db.event.table = make(map[int]*event.Event)
	db.event.Unlock()

	db.certificate.Lock()
	db.certificate.pkCount = 0
	db.certificate.table = make(map[int]*certificate.Certificate)
	db.certificate.Unlock()
}
