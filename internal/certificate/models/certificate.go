// Package models defines the certificate aggregate and its enumerations.
package models

import (
	"time"

	id "certverify/pkg/domain"
	dErrors "certverify/pkg/domain-errors"
)

// DocumentType categorizes what kind of academic document was uploaded. The
// submitter picks it at upload time; it is not derived from the document.
type DocumentType string

const (
	DocumentTypeDegree     DocumentType = "DEGREE"
	DocumentTypeMarksheet  DocumentType = "MARKSHEET"
	DocumentTypeInternship DocumentType = "INTERNSHIP"
	DocumentTypeCourse     DocumentType = "COURSE"
	DocumentTypeOther      DocumentType = "OTHER"
)

// ParseDocumentType validates a submitter-supplied document type.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case DocumentTypeDegree, DocumentTypeMarksheet, DocumentTypeInternship,
		DocumentTypeCourse, DocumentTypeOther:
		return DocumentType(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown document type: "+s)
}

// VerificationStatus is the four-valued trust label persisted per
// certificate. PENDING belongs to the durable schema contract (clients may
// render it for in-flight submissions) but this engine never persists it:
// ingestion is synchronous-or-fails and only terminal statuses reach the
// store.
type VerificationStatus string

const (
	StatusPending           VerificationStatus = "PENDING"
	StatusVerified          VerificationStatus = "VERIFIED"
	StatusPartiallyVerified VerificationStatus = "PARTIALLY_VERIFIED"
	StatusFailed            VerificationStatus = "FAILED"
)

// ParseVerificationStatus validates a caller-supplied status filter.
func ParseVerificationStatus(s string) (VerificationStatus, error) {
	switch VerificationStatus(s) {
	case StatusPending, StatusVerified, StatusPartiallyVerified, StatusFailed:
		return VerificationStatus(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown verification status: "+s)
}

// IsTerminal reports whether the status is an ingestion outcome.
func (s VerificationStatus) IsTerminal() bool {
	return s == StatusVerified || s == StatusPartiallyVerified || s == StatusFailed
}

// ExtractedFields holds what the extraction service read off the document.
// All fields are nullable: absence means the extractor found nothing, and
// none of them are ever edited after ingestion.
type ExtractedFields struct {
	StudentName        *string    `json:"extracted_student_name"`
	RollNumber         *string    `json:"extracted_roll_number,omitempty"`
	RegistrationNumber *string    `json:"extracted_registration_number,omitempty"`
	Degree             *string    `json:"extracted_degree,omitempty"`
	Branch             *string    `json:"extracted_branch,omitempty"`
	InstitutionName    *string    `json:"extracted_institution_name"`
	OrganizationType   *string    `json:"extracted_organization_type,omitempty"`
	IssuedDate         *time.Time `json:"issued_date,omitempty"`
}

// Certificate is the write-once verification record.
//
// Invariants:
//   - ID, OwnerID, StorageRef, UploadedAt are immutable after construction
//   - ForgeryRiskScore, when present, lies in [0,100]
//   - VerificationStatus is terminal and equals classifier.Classify(score);
//     the ingestion service is the single writer and guarantees this pairing,
//     no other component may set or advance the status
//   - No update path exists anywhere: stores expose Insert but neither
//     Update nor Delete
type Certificate struct {
	ID           id.CertificateID `json:"id"`
	OwnerID      id.OwnerID       `json:"owner_id"`
	DocumentType DocumentType     `json:"document_type"`
	// StorageRef is the raw object key in blob storage. It is omitted from
	// JSON; public surfaces expose a resolved retrieval URL instead.
	StorageRef string `json:"-"`

	Extracted ExtractedFields `json:"extracted"`

	VerificationSource string             `json:"verification_source"`
	Verdict            *string            `json:"verdict,omitempty"`
	ForgeryRiskScore   *float64           `json:"forgery_risk_score"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	UploadedAt         time.Time          `json:"uploaded_at"`
}

// NewCertificate validates and assembles a certificate record. Status/score
// consistency is the ingestion service's obligation; this constructor
// enforces everything checkable without the classifier.
func NewCertificate(
	certID id.CertificateID,
	ownerID id.OwnerID,
	docType DocumentType,
	storageRef string,
	extracted ExtractedFields,
	source string,
	verdict *string,
	score *float64,
	status VerificationStatus,
	now time.Time,
) (*Certificate, error) {
	if certID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate id must be set")
	}
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner id must be set")
	}
	if _, err := ParseDocumentType(string(docType)); err != nil {
		return nil, err
	}
	if storageRef == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "storage ref must be set")
	}
	if score != nil && (*score < 0 || *score > 100) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "forgery risk score out of range [0,100]")
	}
	if !status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "verification status must be terminal")
	}
	return &Certificate{
		ID:                 certID,
		OwnerID:            ownerID,
		DocumentType:       docType,
		StorageRef:         storageRef,
		Extracted:          extracted,
		VerificationSource: source,
		Verdict:            verdict,
		ForgeryRiskScore:   score,
		VerificationStatus: status,
		UploadedAt:         now,
	}, nil
}
