package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/user"
	"github.com/trezcool/certdesk/portal"
	"github.com/trezcool/certdesk/portal/backend"
	"github.com/trezcool/certdesk/portal/dashboard"
	"github.com/trezcool/certdesk/portal/router"
	"github.com/trezcool/certdesk/portal/upload"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp         = errors.New("help provided")
	errNotLoggedIn  = errors.New("not logged in")
	errNotOrganizer = errors.New("log in as an organizer first")
)

type commandLine struct {
	shell *portal.Shell
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME|EMAIL|ID [-role ROLE] - log in (the password is prompted)")
	fmt.Fprintln(cli.out, "  logout - log out")
	fmt.Fprintln(cli.out, "  whoami - show the logged in user")
	fmt.Fprintln(cli.out, "  open PATH - show the view at PATH (/student, /teacher, /organizer, /admin)")
	fmt.Fprintln(cli.out, "  create-event -name NAME -date YYYY-MM-DD - create an event (organizers)")
	fmt.Fprintln(cli.out, "  upload -event ID FILE... - distribute certificates for an event (organizers)")
	fmt.Fprintln(cli.out, "  create-user -role ROLE -name NAME [-class CLASS -dept DEPT] [-club CLUB] - create a user (the password is prompted)")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginUname := loginCmd.String("username", "", "Your username, email or ID. The password will be prompted next.")
	loginRole := loginCmd.String("role", "", "student, teacher (advisor), organizer or admin.")

	createEventCmd := flag.NewFlagSet("create-event", flag.ContinueOnError)
	createEventName := createEventCmd.String("name", "", "The event name.")
	createEventDate := createEventCmd.String("date", "", "The event date (YYYY-MM-DD).")

	uploadCmd := flag.NewFlagSet("upload", flag.ContinueOnError)
	uploadEvent := uploadCmd.Int("event", 0, "The event ID.")

	createUserCmd := flag.NewFlagSet("create-user", flag.ContinueOnError)
	createUserRole := createUserCmd.String("role", "student", "student, teacher (advisor), organizer or admin.")
	createUserName := createUserCmd.String("name", "", "The user's full name.")
	createUserClass := createUserCmd.String("class", "", "The class ID (students and teachers).")
	createUserDept := createUserCmd.String("dept", "", "The department (students and teachers).")
	createUserClub := createUserCmd.String("club", "", "The club name (organizers).")

	for _, fs := range []*flag.FlagSet{loginCmd, createEventCmd, uploadCmd, createUserCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		role, _ := user.ParseRole(*loginRole)
		return cli.login(ctx, backend.Credentials{Identifier: *loginUname, Password: pwd, Role: role})
	case "logout":
		if err := cli.shell.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "logged out")
		return nil
	case "whoami":
		return cli.whoami()
	case "open":
		if len(args) < 3 {
			fmt.Fprintln(cli.out, "Usage: open PATH")
			return errHelp
		}
		return cli.open(ctx, args[2])
	case "create-event":
		if err := createEventCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.createEvent(ctx, *createEventName, *createEventDate)
	case "upload":
		if err := uploadCmd.Parse(args[2:]); err != nil {
			return err
		}
		if uploadCmd.NArg() == 0 {
			uploadCmd.Usage()
			return errHelp
		}
		return cli.upload(ctx, *uploadEvent, uploadCmd.Args())
	case "create-user":
		if err := createUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.createUser(ctx, dashboard.AccountForm{
			Role:     user.Role(*createUserRole),
			Name:     *createUserName,
			Password: pwd,
			ClassID:  *createUserClass,
			Dept:     *createUserDept,
			ClubName: *createUserClub,
		})
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) login(ctx context.Context, creds backend.Credentials) error {
	view, status, err := cli.shell.Login(ctx, creds)
	if err != nil {
		return errors.New(status)
	}
	sess := cli.shell.Session()
	fmt.Fprintf(cli.out, "logged in as %s %s\n", sess.Role, sess.ID)
	if view == router.Login {
		return nil
	}
	return cli.printDashboard(ctx)
}

func (cli *commandLine) whoami() error {
	sess := cli.shell.Session()
	if sess == nil {
		return errNotLoggedIn
	}
	fmt.Fprintf(cli.out, "%s %s (%s)\n", sess.Role, sess.ID, cli.shell.Location())
	return nil
}

func (cli *commandLine) open(ctx context.Context, location string) error {
	view := cli.shell.Navigate(location)
	fmt.Fprintf(cli.out, "view: %s\n", view)
	if view == router.Login {
		return nil
	}
	return cli.printDashboard(ctx)
}

func (cli *commandLine) loadDashboard(ctx context.Context) (*backend.DashboardData, error) {
	l, done := cli.shell.Dashboard(ctx)
	if l == nil {
		return nil, errNotLoggedIn
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	st := l.State()
	if st.Err != "" {
		return nil, errors.New(st.Err)
	}
	return st.Data, nil
}

func (cli *commandLine) printDashboard(ctx context.Context) error {
	data, err := cli.loadDashboard(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch data.Role {
	case user.RoleStudent:
		fmt.Fprintf(w, "%s (%s, %s %s)\n", data.User.Name, data.User.ID, data.User.Dept, data.User.ClassID)
		printCertificates(w, data.Certificates)
	case user.RoleTeacher:
		fmt.Fprintf(w, "%s (%s, %s)\n", data.User.Name, data.User.ID, data.User.Dept)
		for _, rec := range data.Students {
			fmt.Fprintf(w, "\n%s\t%s\t%d certificate(s)\n", rec.Student.ID, rec.Student.Name, len(rec.Certificates))
			printCertificates(w, rec.Certificates)
		}
	case user.RoleOrganizer:
		fmt.Fprintf(w, "%s (%s)\n", data.User.ClubName, data.User.ID)
		fmt.Fprintln(w, "ID\tEVENT\tDATE\tSTATUS\tCERTIFICATES")
		for _, evt := range data.Events {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", evt.ID, evt.Name, evt.Date, evt.Status, evt.CertsUploaded)
		}
	case user.RoleAdmin:
		counts := data.Users.Counts()
		fmt.Fprintf(w, "students: %d\tteachers: %d\torganizers: %d\tadmins: %d\n",
			counts[user.RoleStudent], counts[user.RoleTeacher], counts[user.RoleOrganizer], counts[user.RoleAdmin])
	}
	return nil
}

func printCertificates(w io.Writer, certs []certificate.Certificate) {
	if len(certs) == 0 {
		fmt.Fprintln(w, "no certificates yet")
		return
	}
	fmt.Fprintln(w, "ID\tEVENT\tORGANIZER\tISSUED\tFILE")
	for _, c := range certs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.EventName, c.Organizer, c.IssueDate, c.FileURL)
	}
}

// organizerBoard opens the logged in organizer's dashboard.
func (cli *commandLine) organizerBoard(ctx context.Context) (*upload.Board, error) {
	sess := cli.shell.Session()
	if sess == nil || sess.Role != user.RoleOrganizer {
		return nil, errNotOrganizer
	}
	cli.shell.Navigate("/organizer")
	data, err := cli.loadDashboard(ctx)
	if err != nil {
		return nil, err
	}
	return upload.NewBoard(cli.shell.Backend(), sess.ID, data.Events), nil
}

func (cli *commandLine) createEvent(ctx context.Context, name, date string) error {
	board, err := cli.organizerBoard(ctx)
	if err != nil {
		return err
	}
	defer board.Unmount()

	evt, err := board.CreateEvent(ctx, name, date)
	if err != nil {
		return errors.New(board.State().Status)
	}
	fmt.Fprintf(cli.out, "created event %d: %s (%s)\n", evt.ID, evt.Name, evt.Status)
	return nil
}

func (cli *commandLine) upload(ctx context.Context, eventID int, paths []string) error {
	board, err := cli.organizerBoard(ctx)
	if err != nil {
		return err
	}
	defer board.Unmount()

	files := make([]certificate.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		files = append(files, certificate.File{
			Name:        filepath.Base(p),
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
			Content:     f,
		})
	}

	if eventID > 0 {
		board.Select(eventID)
	}
	task := board.Submit(ctx, files)
	if task.State() == upload.InFlight {
		fmt.Fprintln(cli.out, board.State().Status)
	}
	res, err := task.Wait(ctx)
	if err != nil {
		if res.Status != "" {
			return errors.New(res.Status)
		}
		return err
	}
	fmt.Fprintln(cli.out, res.Status)
	for _, c := range res.Certificates {
		fmt.Fprintf(cli.out, "  %s: %s\n", c.StudentID, c.FileURL)
	}
	return nil
}

func (cli *commandLine) createUser(ctx context.Context, form dashboard.AccountForm) error {
	if cli.shell.Session() == nil {
		return errNotLoggedIn
	}
	usr, status, err := dashboard.CreateAccount(ctx, cli.shell.Backend(), form)
	if err != nil {
		return errors.New(status)
	}
	fmt.Fprintf(cli.out, "%s (%s)\n", status, usr.ID)
	return nil
}
