package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"certverify/internal/certificate/models"
	id "certverify/pkg/domain"
	"certverify/pkg/platform/sentinel"
)

// Postgres persists certificates in PostgreSQL. The seq bigserial column
// records insertion order and breaks uploaded_at ties in list queries.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const certificateColumns = `
	id, owner_id, document_type, storage_ref,
	extracted_student_name, extracted_roll_number, extracted_registration_number,
	extracted_degree, extracted_branch, extracted_institution_name,
	extracted_organization_type, issued_date,
	verification_source, verdict, forgery_risk_score, verification_status, uploaded_at`

func (s *Postgres) Insert(ctx context.Context, cert *models.Certificate) error {
	query := `
		INSERT INTO certificates (` + certificateColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(cert.ID), uuid.UUID(cert.OwnerID), string(cert.DocumentType), cert.StorageRef,
		cert.Extracted.StudentName, cert.Extracted.RollNumber, cert.Extracted.RegistrationNumber,
		cert.Extracted.Degree, cert.Extracted.Branch, cert.Extracted.InstitutionName,
		cert.Extracted.OrganizationType, cert.Extracted.IssuedDate,
		cert.VerificationSource, cert.Verdict, cert.ForgeryRiskScore,
		string(cert.VerificationStatus), cert.UploadedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *Postgres) GetByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1`
	cert, err := scanCertificate(s.db.QueryRowContext(ctx, query, uuid.UUID(certID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select certificate: %w", err)
	}
	return cert, nil
}

func (s *Postgres) ListByOwner(ctx context.Context, ownerID id.OwnerID) ([]*models.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE owner_id = $1
		ORDER BY uploaded_at DESC, seq ASC
	`
	return s.queryList(ctx, query, uuid.UUID(ownerID))
}

func (s *Postgres) ListByStatus(ctx context.Context, status models.VerificationStatus) ([]*models.Certificate, error) {
	query := `
		SELECT ` + certificateColumns + `
		FROM certificates
		WHERE verification_status = $1
		ORDER BY uploaded_at DESC, seq ASC
	`
	return s.queryList(ctx, query, string(status))
}

func (s *Postgres) queryList(ctx context.Context, query string, arg any) ([]*models.Certificate, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var out []*models.Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*models.Certificate, error) {
	var (
		cert       models.Certificate
		certID     uuid.UUID
		ownerID    uuid.UUID
		docType    string
		status     string
		student    sql.NullString
		roll       sql.NullString
		regNo      sql.NullString
		degree     sql.NullString
		branch     sql.NullString
		inst       sql.NullString
		orgType    sql.NullString
		issuedDate sql.NullTime
		verdict    sql.NullString
		score      sql.NullFloat64
	)

	err := row.Scan(
		&certID, &ownerID, &docType, &cert.StorageRef,
		&student, &roll, &regNo,
		&degree, &branch, &inst,
		&orgType, &issuedDate,
		&cert.VerificationSource, &verdict, &score, &status, &cert.UploadedAt,
	)
	if err != nil {
		return nil, err
	}

	cert.ID = id.CertificateID(certID)
	cert.OwnerID = id.OwnerID(ownerID)
	cert.DocumentType = models.DocumentType(docType)
	cert.VerificationStatus = models.VerificationStatus(status)
	cert.Extracted.StudentName = nullableString(student)
	cert.Extracted.RollNumber = nullableString(roll)
	cert.Extracted.RegistrationNumber = nullableString(regNo)
	cert.Extracted.Degree = nullableString(degree)
	cert.Extracted.Branch = nullableString(branch)
	cert.Extracted.InstitutionName = nullableString(inst)
	cert.Extracted.OrganizationType = nullableString(orgType)
	cert.Verdict = nullableString(verdict)
	if issuedDate.Valid {
		d := issuedDate.Time
		cert.Extracted.IssuedDate = &d
	}
	if score.Valid {
		v := score.Float64
		cert.ForgeryRiskScore = &v
	}
	cert.UploadedAt = cert.UploadedAt.UTC()
	return &cert, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
