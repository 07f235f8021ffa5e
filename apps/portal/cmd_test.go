package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/portal"
	"github.com/trezcool/certdesk/portal/backend"
	"github.com/trezcool/certdesk/portal/router"
	"github.com/trezcool/certdesk/portal/session"
	"github.com/trezcool/certdesk/portal/upload"
	"github.com/trezcool/certdesk/storage/database/seed"
	testutil "github.com/trezcool/certdesk/tests"
)

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
	wantOut    []string
}

func (tt cliTest) check(t *testing.T, out string, err error) {
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	default:
		assert.NoError(t, err)
	}
	for _, s := range tt.wantOut {
		assert.Contains(t, out, s)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

type cliFactory func() (cli *commandLine, out *bytes.Buffer, closeFunc func() error)

// setup returns a CLI factory: every CLI it builds shares the same backend and session file, like successive invocations.
func setup(t *testing.T) (cliFactory, *testutil.Env) {
	env := testutil.NewSeededEnv(t)
	b := backend.NewLocal(backend.LocalDeps{
		UserSvc:    env.UserSvc,
		EventSvc:   env.EventSvc,
		CertSvc:    env.CertSvc,
		Validate:   env.Validate,
		Translator: env.Translator,
	})
	sessionPath := filepath.Join(t.TempDir(), "session.db")

	return func() (*commandLine, *bytes.Buffer, func() error) {
		storage, err := session.OpenBoltStorage(sessionPath)
		require.NoError(t, err)

		var out bytes.Buffer
		shell := portal.NewShell(session.NewStore(storage), router.Router{}, b, env.Logger)
		return &commandLine{shell: shell, out: &out}, &out, storage.Close
	}, env
}

func runAll(t *testing.T, newCLI cliFactory, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"portal"}, tt.args...)
		mockPassword(tt.pwd)

		t.Run(tt.name, func(t *testing.T) {
			cli, out, closeFunc := newCLI()
			err := cli.run(context.Background(), args)
			// release the session file for the next invocation
			require.NoError(t, closeFunc())
			tt.check(t, out.String(), err)
		})
	}
}

func Test_commandLine_organizer(t *testing.T) {
	newCLI, env := setup(t)
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"STU001_S4_sports.pdf", "STU002_S4_sports.pdf"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0o600))
		paths = append(paths, p)
	}
	bad := filepath.Join(dir, "sports.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o600))

	runAll(t, newCLI, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "whoami: logged out", args: []string{"whoami"}, wantErr: errNotLoggedIn},
		{name: "login: no username", args: []string{"login"}, wantErr: errHelp},
		{name: "login: bad password", args: []string{"login", "-username", "organizer"}, pwd: "nope", wantErrStr: backend.MockLoginError},
		{
			name: "login", args: []string{"login", "-username", "organizer", "-role", "organizer"}, pwd: seed.DemoPassword,
			wantOut: []string{"logged in as organizer ORG001", "Annual Tech Fest 2025", "Pending"},
		},
		{name: "whoami", args: []string{"whoami"}, wantOut: []string{"organizer ORG001 (/organizer)"}},
		{name: "create-event: no date", args: []string{"create-event", "-name", "Sports Day"}, wantErrStr: "Event name and date are required."},
		{name: "create-event", args: []string{"create-event", "-name", "Sports Day", "-date", "2026-01-10"}, wantOut: []string{"created event 104: Sports Day (Pending)"}},
		{name: "upload: no files", args: []string{"upload", "-event", "104"}, wantErr: errHelp},
		{name: "upload: no event", args: append([]string{"upload"}, paths...), wantErr: upload.ErrNothingToUpload},
		{
			name: "upload: bad filename", args: append([]string{"upload", "-event", "104"}, append(paths, bad)...),
			wantErrStr: `Filename "sports.pdf" must be in format: studentId_classId_anything.pdf`,
		},
		{
			name: "upload", args: append([]string{"upload", "-event", "104"}, paths...),
			wantOut: []string{"Uploading 2 file(s)...", "Successfully uploaded 2 file(s).", "STU001: " + env.Conf.Storage.BaseURL + "/events/104/"},
		},
		{name: "upload: again", args: append([]string{"upload", "-event", "104"}, paths...), wantErrStr: "Certificates already distributed for this event."},
		{name: "open: admin view is not checked", args: []string{"open", "/admin"}, wantErrStr: "Admin not found"},
		{name: "logout", args: []string{"logout"}, wantOut: []string{"logged out"}},
		{name: "upload: logged out", args: append([]string{"upload", "-event", "104"}, paths...), wantErr: errNotOrganizer},
	})

	evt, err := env.EventSvc.GetByID(context.Background(), 104)
	require.NoError(t, err)
	assert.Equal(t, event.StatusDistributed, evt.Status)
	assert.Equal(t, 2, evt.CertsUploaded)
}

func Test_commandLine_admin(t *testing.T) {
	newCLI, _ := setup(t)
	pwd := "Xq7#Lm9$zW"

	runAll(t, newCLI, []cliTest{
		{name: "create-user: logged out", args: []string{"create-user", "-name", "Mia"}, pwd: pwd, wantErr: errNotLoggedIn},
		{name: "login", args: []string{"login", "-username", "admin"}, pwd: seed.DemoPassword, wantOut: []string{"students: 3", "admins: 1"}},
		{name: "create-user: no password", args: []string{"create-user", "-name", "Mia"}, wantErrStr: "Name and password are required"},
		{name: "create-user: no class", args: []string{"create-user", "-name", "Mia"}, pwd: pwd, wantErrStr: "Class ID and Department are required for this role"},
		{
			name: "create-user", args: []string{"create-user", "-name", "Mia Paul", "-class", "S2", "-dept", "CSE"}, pwd: pwd,
			wantOut: []string{"Successfully created student: Mia Paul (STU004)"},
		},
		{name: "open", args: []string{"open", "/admin"}, wantOut: []string{"view: admin", "students: 4"}},
		{name: "open: unknown path", args: []string{"open", "/nowhere"}, wantOut: []string{"view: login"}},
	})
}

func Test_commandLine_student(t *testing.T) {
	newCLI, _ := setup(t)

	runAll(t, newCLI, []cliTest{
		{name: "open: logged out", args: []string{"open", "/student"}, wantOut: []string{"view: login"}},
		{name: "login", args: []string{"login", "-username", "student"}, pwd: seed.DemoPassword, wantOut: []string{"Anusree K Jinan", "Web Dev Workshop 2025", "Cloud Computing Seminar"}},
		{name: "open: teacher view", args: []string{"open", "/teacher"}, wantErrStr: "Teacher not found"},
		{name: "create-event: not an organizer", args: []string{"create-event", "-name", "Gala", "-date", "2026-01-10"}, wantErr: errNotOrganizer},
	})
}
