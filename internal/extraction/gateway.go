// Package extraction wraps the external OCR/verification service. The model
// itself is opaque: this client uploads a document and maps the structured
// response, nothing more.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	dErrors "certverify/pkg/domain-errors"
)

// Result carries the fields the verification service extracted from a
// document. Pointers are nil where the extractor found nothing.
type Result struct {
	StudentName        *string  `json:"extracted_student_name"`
	RollNumber         *string  `json:"extracted_roll_number"`
	RegistrationNumber *string  `json:"extracted_registration_number"`
	Degree             *string  `json:"extracted_degree"`
	Branch             *string  `json:"extracted_branch"`
	InstitutionName    *string  `json:"extracted_institution_name"`
	OrganizationType   *string  `json:"extracted_organization_type"`
	IssuedDate         *string  `json:"issued_date"`
	VerificationSource string   `json:"verification_source"`
	Verdict            *string  `json:"verdict"`
	ForgeryRiskScore   *float64 `json:"forgery_risk_score"`
}

// Gateway is the interface the ingestion pipeline consumes.
type Gateway interface {
	Verify(ctx context.Context, filename, contentType string, blob []byte) (*Result, error)
	Health(ctx context.Context) error
}

// Client talks to the verification service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a gateway client. The timeout bounds the whole
// upload-and-extract round trip; the service must abort rather than block
// indefinitely.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Verify uploads the document and returns the extraction result.
// Transport-level failures (unreachable, timeout) surface as CodeUnavailable;
// a reachable service refusing the document surfaces as CodeBadRequest with
// the service's message.
func (c *Client) Verify(ctx context.Context, filename, contentType string, blob []byte) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build multipart request")
	}
	if _, err := part.Write(blob); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build multipart request")
	}
	if err := writer.Close(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build multipart request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/verify-certificate", &body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build extraction request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "extraction call canceled")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "extraction service unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read extraction response")
	}

	return parseVerifyResponse(resp.StatusCode, respBody)
}

// Health probes the verification service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("extraction health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("extraction health: status %d", resp.StatusCode)
	}
	return nil
}

// verifyEnvelope mirrors the service's response shape: the mapped fields plus
// a raw processing payload we deliberately ignore.
type verifyEnvelope struct {
	MappedData *Result `json:"mapped_data"`
}

type errorEnvelope struct {
	Detail string `json:"detail"`
}

func parseVerifyResponse(status int, body []byte) (*Result, error) {
	if status != http.StatusOK {
		message := "extraction service rejected the document"
		var e errorEnvelope
		if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
			message = e.Detail
		}
		return nil, dErrors.New(dErrors.CodeBadRequest, message)
	}

	var envelope verifyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed extraction response")
	}
	if envelope.MappedData == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "extraction response missing mapped data")
	}
	return envelope.MappedData, nil
}
