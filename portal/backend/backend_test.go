package backend_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
	"github.com/trezcool/certdesk/portal/api"
	"github.com/trezcool/certdesk/portal/backend"
	"github.com/trezcool/certdesk/portal/session"
	"github.com/trezcool/certdesk/storage/database/seed"
	testutil "github.com/trezcool/certdesk/tests"
)

type backendCase struct {
	name     string
	newFunc  func(t *testing.T) backend.Backend
	badLogin string
}

// every test runs against both backends over the same demo data
var backends = []backendCase{
	{
		name: "live",
		newFunc: func(t *testing.T) backend.Backend {
			srv := testutil.NewSeededEnv(t).StartServer(t)
			return backend.NewLive(api.NewClient(srv.URL+"/api", srv.Client()))
		},
		badLogin: "Invalid credentials",
	},
	{
		name: "local",
		newFunc: func(t *testing.T) backend.Backend {
			env := testutil.NewSeededEnv(t)
			return backend.NewLocal(backend.LocalDeps{
				UserSvc:    env.UserSvc,
				EventSvc:   env.EventSvc,
				CertSvc:    env.CertSvc,
				Validate:   env.Validate,
				Translator: env.Translator,
			})
		},
		badLogin: backend.MockLoginError,
	},
}

func certIDs(certs []certificate.Certificate) []int {
	ids := make([]int, 0, len(certs))
	for _, c := range certs {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestBackend_Login(t *testing.T) {
	for _, bc := range backends {
		t.Run(bc.name, func(t *testing.T) {
			b := bc.newFunc(t)
			ctx := context.Background()

			tests := []struct {
				name    string
				creds   backend.Credentials
				want    session.Session
				wantErr string
			}{
				{name: "student", creds: backend.Credentials{Identifier: "student", Password: seed.DemoPassword, Role: user.RoleStudent}, want: session.Session{Role: user.RoleStudent, ID: "STU001"}},
				{name: "advisor", creds: backend.Credentials{Identifier: "advisor", Password: seed.DemoPassword}, want: session.Session{Role: user.RoleTeacher, ID: "FAC001"}},
				{name: "role comes from the account", creds: backend.Credentials{Identifier: "admin", Password: seed.DemoPassword, Role: user.RoleStudent}, want: session.Session{Role: user.RoleAdmin, ID: "ADM001"}},
				{name: "wrong password", creds: backend.Credentials{Identifier: "organizer", Password: "nope"}, wantErr: bc.badLogin},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := b.Login(ctx, tt.creds)
					if tt.wantErr != "" {
						assert.Equal(t, tt.wantErr, backend.MessageOf(err, "Login failed"))
						return
					}
					require.NoError(t, err)
					assert.Equal(t, tt.want, got)
				})
			}
		})
	}
}

func TestBackend_FetchByRole(t *testing.T) {
	for _, bc := range backends {
		t.Run(bc.name, func(t *testing.T) {
			b := bc.newFunc(t)
			ctx := context.Background()

			t.Run("student", func(t *testing.T) {
				data, err := b.FetchByRole(ctx, user.RoleStudent, "STU001")
				require.NoError(t, err)
				assert.Equal(t, "Anusree K Jinan", data.User.Name)
				assert.Equal(t, []int{1, 2}, certIDs(data.Certificates))
			})

			t.Run("student without certificates", func(t *testing.T) {
				_, err := b.CreateUser(ctx, backend.NewAccount{Role: user.RoleStudent, Name: "Mia Paul", Password: "Xq7#Lm9$zW", ClassID: "S2", Dept: "CSE"})
				require.NoError(t, err)
				data, err := b.FetchByRole(ctx, user.RoleStudent, "STU004")
				require.NoError(t, err)
				assert.NotNil(t, data.Certificates)
				assert.Empty(t, data.Certificates)
			})

			t.Run("teacher", func(t *testing.T) {
				data, err := b.FetchByRole(ctx, user.RoleTeacher, "FAC001")
				require.NoError(t, err)
				require.Len(t, data.Students, 3) // STU001, STU002 and STU004, all CSE
				assert.Equal(t, []int{1, 2}, certIDs(data.Students[0].Certificates))
				assert.Equal(t, []int{3}, certIDs(data.Students[1].Certificates))
				assert.Empty(t, data.Students[2].Certificates)
			})

			t.Run("organizer", func(t *testing.T) {
				data, err := b.FetchByRole(ctx, user.RoleOrganizer, "ORG001")
				require.NoError(t, err)
				assert.Equal(t, "Alumni Association", data.User.ClubName)
				require.Len(t, data.Events, 3)
				assert.Equal(t, 101, data.Events[0].ID)
			})

			t.Run("admin", func(t *testing.T) {
				data, err := b.FetchByRole(ctx, user.RoleAdmin, "ADM001")
				require.NoError(t, err)
				assert.Equal(t, map[user.Role]int{
					user.RoleStudent:   4,
					user.RoleTeacher:   1,
					user.RoleOrganizer: 1,
					user.RoleAdmin:     1,
				}, data.Users.Counts())
			})

			t.Run("same data when nothing changed", func(t *testing.T) {
				first, err := b.FetchByRole(ctx, user.RoleTeacher, "FAC001")
				require.NoError(t, err)
				second, err := b.FetchByRole(ctx, user.RoleTeacher, "FAC001")
				require.NoError(t, err)
				assert.Equal(t, first, second)
			})

			notFound := []struct {
				role    user.Role
				id      string
				wantMsg string
			}{
				{role: user.RoleStudent, id: "STU999", wantMsg: "Student not found"},
				{role: user.RoleStudent, id: "FAC001", wantMsg: "Student not found"},
				{role: user.RoleTeacher, id: "FAC999", wantMsg: "Teacher not found"},
				{role: user.RoleOrganizer, id: "ORG999", wantMsg: "Organizer not found"},
				{role: user.RoleAdmin, id: "STU001", wantMsg: "Admin not found"},
			}
			for _, tt := range notFound {
				t.Run(string(tt.role)+" "+tt.id, func(t *testing.T) {
					_, err := b.FetchByRole(ctx, tt.role, tt.id)
					assert.Equal(t, tt.wantMsg, backend.MessageOf(err, "Failed to fetch data"))
				})
			}
		})
	}
}

func TestBackend_events(t *testing.T) {
	for _, bc := range backends {
		t.Run(bc.name, func(t *testing.T) {
			b := bc.newFunc(t)
			ctx := context.Background()

			evt, err := b.CreateEvent(ctx, "ORG001", backend.NewEvent{Name: "Sports Day", Date: "2026-01-10"})
			require.NoError(t, err)
			assert.Equal(t, 104, evt.ID)
			assert.Equal(t, event.StatusPending, evt.Status)
			assert.Zero(t, evt.CertsUploaded)

			_, err = b.CreateEvent(ctx, "ORG001", backend.NewEvent{Name: "Gala", Date: "10/01/2026"})
			assert.Equal(t, "date: date must be a date in the format YYYY-MM-DD", backend.MessageOf(err, ""))

			_, err = b.CreateEvent(ctx, "STU001", backend.NewEvent{Name: "Gala", Date: "2026-01-10"})
			assert.Equal(t, "Organizer not found", backend.MessageOf(err, ""))

			batch := backend.Batch{
				EventID:     evt.ID,
				OrganizerID: "ORG001",
				Files: []certificate.File{
					{Name: "STU001_S4_sports.pdf", Content: strings.NewReader("cert-1")},
					{Name: "STU003_S4_sports.pdf", Content: strings.NewReader("cert-3")},
				},
			}
			res, err := b.UploadCertificates(ctx, batch)
			require.NoError(t, err)
			assert.Equal(t, 2, res.CertsUploaded)
			assert.Equal(t, event.StatusDistributed, res.Event.Status)
			assert.Len(t, res.Certificates, 2)

			batch.Files = []certificate.File{{Name: "STU002_S4.pdf", Content: strings.NewReader("late")}}
			_, err = b.UploadCertificates(ctx, batch)
			assert.Equal(t, event.ErrAlreadyDistributed.Error(), backend.MessageOf(err, ""))

			batch.EventID = 101
			batch.Files = []certificate.File{{Name: "report.pdf", Content: strings.NewReader("x")}}
			_, err = b.UploadCertificates(ctx, batch)
			assert.Equal(t, `Filename "report.pdf" must be in format: studentId_classId_anything.pdf`, backend.MessageOf(err, ""))
		})
	}
}

func TestBackend_CreateUser(t *testing.T) {
	for _, bc := range backends {
		t.Run(bc.name, func(t *testing.T) {
			b := bc.newFunc(t)
			ctx := context.Background()
			pwd := "Xq7#Lm9$zW"

			tests := []struct {
				name    string
				account backend.NewAccount
				wantID  string
				wantErr string
			}{
				{name: "advisor", account: backend.NewAccount{Role: "advisor", Name: "Dr. Rao", Password: pwd, ClassID: "S2", Dept: "ECE"}, wantID: "FAC002"},
				{name: "organizer", account: backend.NewAccount{Role: user.RoleOrganizer, Name: "Arts", Password: pwd, ClubName: "Arts Club"}, wantID: "ORG002"},
				{name: "organizer without club", account: backend.NewAccount{Role: user.RoleOrganizer, Name: "Arts", Password: pwd}, wantErr: "club_name: club_name is required for this role"},
				{name: "username taken", account: backend.NewAccount{Role: user.RoleAdmin, Name: "Root", Username: "admin", Password: pwd}, wantErr: user.ErrUsernameExists.Error()},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					usr, err := b.CreateUser(ctx, tt.account)
					if tt.wantErr != "" {
						assert.Equal(t, tt.wantErr, backend.MessageOf(err, "Failed to create user"))
						return
					}
					require.NoError(t, err)
					assert.Equal(t, tt.wantID, usr.ID)
				})
			}
		})
	}
}

func TestLive_unavailable(t *testing.T) {
	srv := testutil.NewEnv(t).StartServer(t)
	srv.Close()
	b := backend.NewLive(api.NewClient(srv.URL+"/api", http.DefaultClient))

	_, err := b.FetchByRole(context.Background(), user.RoleStudent, "STU001")
	assert.True(t, backend.IsUnavailable(err))
	assert.Equal(t, "Failed to fetch data", backend.MessageOf(err, "Failed to fetch data"))
}

func TestNewMock(t *testing.T) {
	conf := core.NewTestConfig()
	conf.WorkDir = t.TempDir()
	env := testutil.NewEnv(t)

	b, err := backend.NewMock(context.Background(), conf, env.Logger)
	require.NoError(t, err)

	sess, err := b.Login(context.Background(), backend.Credentials{Identifier: "organizer", Password: seed.DemoPassword})
	require.NoError(t, err)
	assert.Equal(t, session.Session{Role: user.RoleOrganizer, ID: "ORG001"}, sess)

	res, err := b.UploadCertificates(context.Background(), backend.Batch{
		EventID:     101,
		OrganizerID: "ORG001",
		Files:       []certificate.File{{Name: "STU002_S4.pdf", Content: strings.NewReader("cert")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CertsUploaded)
}
