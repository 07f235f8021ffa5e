// Package dashboard loads what the role dashboards display.
package dashboard

import (
	"context"
	"sync"

	"github.com/trezcool/certdesk/core/user"
	"github.com/trezcool/certdesk/portal/backend"
)

// Messages shown when loading fails.
type Messages struct {
	Failed      string // the backend gave no reason
	Unavailable string
	Empty       string // nothing to show; empty disables the check
}

var (
	StudentMessages = Messages{
		Failed:      "Failed to fetch data",
		Unavailable: "Server error while fetching student data.",
		Empty:       "No student data found",
	}
	DefaultMessages = Messages{
		Failed:      "Failed to fetch data",
		Unavailable: "Server error. Please try again later.",
	}
)

// MessagesFor returns the messages of the dashboard of role.
func MessagesFor(role user.Role) Messages {
	if role == user.RoleStudent {
		return StudentMessages
	}
	return DefaultMessages
}

// State is a snapshot of a Loader.
type State struct {
	Loading bool
	Data    *backend.DashboardData
	Err     string
}

type identity struct {
	role user.Role
	id   string
}

// Loader fetches the data of one dashboard: once when mounted and again whenever the identity changes.
// A result is dropped when a newer fetch was started or the Loader was unmounted. Failures are not retried.
type Loader struct {
	backend backend.Backend

	mu        sync.Mutex
	gen       int
	ident     *identity
	loading   bool
	data      *backend.DashboardData
	err       string
	unmounted bool
}

func NewLoader(b backend.Backend) *Loader {
	return &Loader{backend: b}
}

// Load fetches the dashboard of user id with role unless it is the one already loaded.
// The data of the previous identity is dropped at once.
// The returned channel is closed once the fetch is over.
func (l *Loader) Load(ctx context.Context, role user.Role, id string) <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := identity{role: role, id: id}
	if l.unmounted || (l.ident != nil && *l.ident == next) {
		return closed()
	}
	l.ident = &next
	l.data = nil
	return l.fetch(ctx)
}

// Reload fetches the current dashboard again.
func (l *Loader) Reload(ctx context.Context) <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unmounted || l.ident == nil {
		return closed()
	}
	return l.fetch(ctx)
}

// fetch must be called with l.mu held.
func (l *Loader) fetch(ctx context.Context) <-chan struct{} {
	l.gen++
	gen, ident := l.gen, *l.ident
	l.loading = true
	l.err = ""

	done := make(chan struct{})
	go func() {
		defer close(done)
		data, err := l.backend.FetchByRole(ctx, ident.role, ident.id)
		l.apply(gen, ident.role, data, err)
	}()
	return done
}

func (l *Loader) apply(gen int, role user.Role, data backend.DashboardData, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unmounted || gen != l.gen {
		return
	}
	l.loading = false
	msgs := MessagesFor(role)
	switch {
	case err != nil && backend.IsUnavailable(err):
		l.err = msgs.Unavailable
	case err != nil:
		l.err = backend.MessageOf(err, msgs.Failed)
	case msgs.Empty != "" && data.User.ID == "":
		l.data = nil
		l.err = msgs.Empty
	default:
		l.data = &data
	}
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{Loading: l.loading, Data: l.data, Err: l.err}
}

// Unmount detaches the Loader: pending results are dropped.
func (l *Loader) Unmount() {
	l.mu.Lock()
	l.unmounted = true
	l.mu.Unlock()
}

func closed() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
