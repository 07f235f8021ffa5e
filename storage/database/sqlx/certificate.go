package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core/certificate"
)

const certificateColumns = `id, student_id, event_id, event_name, organizer, to_char(issue_date, 'YYYY-MM-DD') AS issue_date, file_url`

type certificateRepository struct {
	db *sqlx.DB
}

var _ certificate.Repository = (*certificateRepository)(nil)

func NewCertificateRepository(db *sqlx.DB) certificate.Repository {
	return &certificateRepository{db: db}
}

func (repo *certificateRepository) CreateCertificates(ctx context.Context, certs ...certificate.Certificate) ([]certificate.Certificate, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var explicitIDs bool
	created := make([]certificate.Certificate, 0, len(certs))
	for _, cert := range certs {
		var q string
		if cert.ID == 0 {
			q = `INSERT INTO certificates (student_id, event_id, event_name, organizer, issue_date, file_url)
				VALUES (:student_id, :event_id, :event_name, :organizer, :issue_date, :file_url) RETURNING id`
		} else {
			explicitIDs = true
			q = `INSERT INTO certificates (id, student_id, event_id, event_name, organizer, issue_date, file_url)
				VALUES (:id, :student_id, :event_id, :event_name, :organizer, :issue_date, :file_url) RETURNING id`
		}
		stmt, err := tx.PrepareNamedContext(ctx, q)
		if err != nil {
			return nil, errors.Wrap(err, "preparing certificate insert")
		}
		err = stmt.GetContext(ctx, &cert.ID, cert)
		_ = stmt.Close()
		if err != nil {
			return nil, errors.Wrap(err, "inserting certificate")
		}
		created = append(created, cert)
	}

	if explicitIDs {
		q := `SELECT setval(pg_get_serial_sequence('certificates', 'id'), (SELECT MAX(id) FROM certificates))`
		if _, err = tx.ExecContext(ctx, q); err != nil {
			return nil, errors.Wrap(err, "resetting certificate sequence")
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing certificates")
	}
	return created, nil
}

func (repo *certificateRepository) QueryCertificates(ctx context.Context, studentIDs ...string) ([]certificate.Certificate, error) {
	certs := make([]certificate.Certificate, 0)
	q := `SELECT ` + certificateColumns + ` FROM certificates WHERE student_id = ANY($1) ORDER BY id`
	if err := repo.db.SelectContext(ctx, &certs, q, pq.Array(studentIDs)); err != nil {
		return nil, errors.Wrap(err, "selecting certificates")
	}
	return certs, nil
}
