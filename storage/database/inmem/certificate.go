package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/certdesk/core/certificate"
)

type certificateRepository struct {
	db *certificateTable
}

var _ certificate.Repository = (*certificateRepository)(nil)

func NewCertificateRepository(db *DB) certificate.Repository {
	return &certificateRepository{db: db.certificate}
}

func (repo *certificateRepository) CreateCertificates(_ context.Context, certs ...certificate.Certificate) ([]certificate.Certificate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]certificate.Certificate, 0, len(certs))
	for _, cert := range certs {
		cert := cert
		if cert.ID == 0 {
			repo.db.pkCount++
			cert.ID = repo.db.pkCount
		} else if cert.ID > repo.db.pkCount {
			repo.db.pkCount = cert.ID
		}
		repo.db.table[cert.ID] = &cert
		created = append(created, cert)
	}
	return created, nil
}

func (repo *certificateRepository) QueryCertificates(_ context.Context, studentIDs ...string) ([]certificate.Certificate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}

	certs := make([]certificate.Certificate, 0)
	for _, cert := range repo.db.table {
		if wanted[cert.StudentID] {
			certs = append(certs, *cert)
		}
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].ID < certs[j].ID })
	return certs, nil
}
