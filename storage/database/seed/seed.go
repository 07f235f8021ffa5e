// Package seed loads the demo data set: a few students of two departments, their advisor,
// an organizer with three events and some already issued certificates.
package seed

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
)

// DemoPassword is the password of every demo account.
const DemoPassword = "pass"

var (
	Users = []user.User{
		{ID: "STU001", Role: user.RoleStudent, Name: "Anusree K Jinan", Username: "student", ClassID: "S4", Dept: "CSE"},
		{ID: "STU002", Role: user.RoleStudent, Name: "Joann J Koodathil", Username: "joann", ClassID: "S4", Dept: "CSE"},
		{ID: "STU003", Role: user.RoleStudent, Name: "Benny T George", Username: "benny", ClassID: "S4", Dept: "ECE"},
		{ID: "FAC001", Role: user.RoleTeacher, Name: "Dr. John Mathew", Username: "advisor", Dept: "CSE"},
		{ID: "ORG001", Role: user.RoleOrganizer, Name: "Alumni Association", Username: "organizer", ClubName: "Alumni Association"},
		{ID: "ADM001", Role: user.RoleAdmin, Name: "Administrator", Username: "admin"},
	}

	Events = []event.Event{
		{ID: 97, Name: "Web Dev Workshop 2025", OrganizerID: "ORG002", Organizer: "Tech Club", Date: "2025-07-15", Status: event.StatusDistributed, CertsUploaded: 1},
		{ID: 98, Name: "Cloud Computing Seminar", OrganizerID: "ORG003", Organizer: "Dept of CSE", Date: "2025-09-01", Status: event.StatusDistributed, CertsUploaded: 1},
		{ID: 99, Name: "Python Programming Contest", OrganizerID: "ORG004", Organizer: "Coding Society", Date: "2024-11-20", Status: event.StatusDistributed, CertsUploaded: 1},
		{ID: 100, Name: "AI/ML Bootcamp", OrganizerID: "ORG005", Organizer: "Innovate Group", Date: "2025-08-10", Status: event.StatusDistributed, CertsUploaded: 1},
		{ID: 101, Name: "Annual Tech Fest 2025", OrganizerID: "ORG001", Organizer: "Alumni Association", Date: "2025-10-25", Status: event.StatusPending},
		{ID: 102, Name: "Placement Training Drive", OrganizerID: "ORG001", Organizer: "Training Cell", Date: "2025-09-01", Status: event.StatusDistributed, CertsUploaded: 150},
		{ID: 103, Name: "Python Workshop Series", OrganizerID: "ORG001", Organizer: "Coding Society", Date: "2025-08-15", Status: event.StatusDistributed, CertsUploaded: 85},
	}

	Certificates = []certificate.Certificate{
		{ID: 1, StudentID: "STU001", EventID: 97, EventName: "Web Dev Workshop 2025", Organizer: "Tech Club", IssueDate: "2025-07-15", FileURL: "https://placehold.co/1200x800/22c55e/ffffff?text=CERTIFICATE_A"},
		{ID: 2, StudentID: "STU001", EventID: 98, EventName: "Cloud Computing Seminar", Organizer: "Dept of CSE", IssueDate: "2025-09-01", FileURL: "https://placehold.co/1200x800/1d4ed8/ffffff?text=CERTIFICATE_B"},
		{ID: 3, StudentID: "STU002", EventID: 99, EventName: "Python Programming Contest", Organizer: "Coding Society", IssueDate: "2024-11-20", FileURL: "https://placehold.co/1200x800/f59e0b/ffffff?text=CERTIFICATE_C"},
		{ID: 4, StudentID: "STU003", EventID: 100, EventName: "AI/ML Bootcamp", Organizer: "Innovate Group", IssueDate: "2025-08-10", FileURL: "https://placehold.co/1200x800/be185d/ffffff?text=CERTIFICATE_D"},
	}
)

// Load stores the demo data set through the given repositories.
func Load(ctx context.Context, usrRepo user.Repository, evtRepo event.Repository, certRepo certificate.Repository) error {
	now := time.Now().UTC()
	for _, usr := range Users {
		usr := usr
		usr.CreatedAt = now
		if err := usr.SetPassword(DemoPassword); err != nil {
			return errors.Wrap(err, "setting password")
		}
		if _, err := usrRepo.CreateUser(ctx, usr); err != nil {
			return errors.Wrapf(err, "creating user %s", usr.ID)
		}
	}
	for _, evt := range Events {
		if _, err := evtRepo.CreateEvent(ctx, evt); err != nil {
			return errors.Wrapf(err, "creating event %d", evt.ID)
		}
	}
	if _, err := certRepo.CreateCertificates(ctx, Certificates...); err != nil {
		return errors.Wrap(err, "creating certificates")
	}
	return nil
}
