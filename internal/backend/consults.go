package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/medivoice/medivoice/internal/consult"
)

// Upload transfers blob and returns the backend's storage reference.
// Failures are never retried here.
func (c *Client) Upload(ctx context.Context, blob consult.AudioBlob) (consult.StorageReference, error) {
	if err := blob.Validate(); err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audioFile"; filename=%q`, uploadFileName(blob)))
	header.Set("Content-Type", blob.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(blob.Data)); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/consults/upload", &body, true)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do("upload", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw := readBody(resp)
	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("upload: %w", consult.ErrUnauthorized)
	}
	if !isSuccess(resp.StatusCode) {
		log.Printf("Backend: upload returned status %d: %s", resp.StatusCode, raw)
		return "", &consult.TransferError{StatusCode: resp.StatusCode, Body: raw}
	}

	var ur uploadResponse
	if err := json.Unmarshal([]byte(raw), &ur); err != nil {
		return "", &consult.TransferError{StatusCode: resp.StatusCode, Body: raw}
	}
	ref := storageReference(ur)
	if ref == "" {
		log.Printf("Backend: upload response carried no file name: %s", raw)
		return "", &consult.TransferError{StatusCode: resp.StatusCode, Body: raw}
	}

	log.Printf("Backend: uploaded %d bytes (%s) as %s", blob.Size(), blob.MIMEType, ref)
	return ref, nil
}

func uploadFileName(blob consult.AudioBlob) string {
	if blob.Name != "" {
		return blob.Name
	}
	return "audio"
}

// storageReference prefers baseFileName, then the percent-decoded last
// segment of uri.
func storageReference(ur uploadResponse) consult.StorageReference {
	if ur.BaseFileName != "" {
		return consult.StorageReference(ur.BaseFileName)
	}
	if ur.URI == "" {
		return ""
	}
	tail := ur.URI[strings.LastIndex(ur.URI, "/")+1:]
	if decoded, err := url.PathUnescape(tail); err == nil {
		tail = decoded
	}
	return consult.StorageReference(tail)
}

// Register creates the consultation record for an uploaded file.
func (c *Client) Register(ctx context.Context, ref consult.StorageReference, name string) (consult.JobID, error) {
	if strings.TrimSpace(name) == "" {
		return "", consult.NewValidationError("name", "display name is required")
	}
	if ref == "" {
		return "", consult.NewValidationError("storage reference", "empty")
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/consults", registerRequest{
		Name:         name,
		Nombre:       name,
		BaseFileName: string(ref),
	}, true)
	if err != nil {
		return "", err
	}

	resp, err := c.do("register", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw := readBody(resp)
	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("register: %w", consult.ErrUnauthorized)
	}
	if !isSuccess(resp.StatusCode) {
		log.Printf("Backend: register returned status %d: %s", resp.StatusCode, raw)
		return "", &consult.RegistrationError{StatusCode: resp.StatusCode, Body: raw}
	}

	var rr registerResponse
	if err := json.Unmarshal([]byte(raw), &rr); err != nil {
		return "", &consult.RegistrationError{StatusCode: resp.StatusCode, Body: raw}
	}
	id := rr.ID
	if id == "" {
		id = rr.LegacyID
	}
	if id == "" {
		log.Printf("Backend: register response carried no id: %s", raw)
		return "", &consult.RegistrationError{StatusCode: resp.StatusCode, Body: raw}
	}

	log.Printf("Backend: registered consultation %s for %s", id, ref)
	return consult.JobID(id), nil
}

// Finalize issues one finalize request and classifies the response.
// Transport failures and 401 are returned as errors; every other response
// is an Outcome.
func (c *Client) Finalize(ctx context.Context, job consult.JobID, ref consult.StorageReference, name string) (consult.Outcome, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/consults/finalize", finalizeRequest{
		ConsultaID:   string(job),
		BaseFileName: string(ref),
		Name:         name,
	}, true)
	if err != nil {
		return consult.Outcome{}, err
	}

	resp, err := c.do("finalize", req)
	if err != nil {
		return consult.Outcome{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusAccepted:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return consult.Outcome{Kind: consult.Pending}, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return consult.Outcome{}, &StatusError{Op: "finalize", StatusCode: resp.StatusCode, Body: readBody(resp)}

	case !isSuccess(resp.StatusCode):
		body := readBody(resp)
		log.Printf("Backend: finalize returned status %d: %s", resp.StatusCode, body)
		return consult.Outcome{Kind: consult.Failed, StatusCode: resp.StatusCode, Body: body}, nil
	}

	raw := readBody(resp)
	var cb consultBody
	if err := json.Unmarshal([]byte(raw), &cb); err != nil {
		return consult.Outcome{
			Kind:       consult.Ready,
			Details:    consult.Details{ID: job, DisplayName: name},
			StatusCode: resp.StatusCode,
			Body:       raw,
			Malformed:  true,
		}, nil
	}
	details := cb.details(job)
	if details.DisplayName == "" {
		details.DisplayName = name
	}
	return consult.Outcome{Kind: consult.Ready, Details: details, StatusCode: resp.StatusCode}, nil
}

// Details fetches the finished transcript and summary of a consultation.
func (c *Client) Details(ctx context.Context, id consult.JobID) (consult.Details, error) {
	var cb consultBody
	if err := c.getJSON(ctx, "details", consultPath(id, "/details"), &cb); err != nil {
		return consult.Details{}, err
	}
	d := cb.details(id)
	d.ID = id
	return d, nil
}

// List returns the user's consultations in backend order.
func (c *Client) List(ctx context.Context) ([]consult.Summary, error) {
	var items []consultBody
	if err := c.getJSON(ctx, "list", "/consults", &items); err != nil {
		return nil, err
	}
	out := make([]consult.Summary, 0, len(items))
	for _, it := range items {
		out = append(out, it.summary())
	}
	return out, nil
}

// Delete removes a consultation. Callers re-read the list afterwards.
func (c *Client) Delete(ctx context.Context, id consult.JobID) error {
	req, err := c.newRequest(ctx, http.MethodDelete, consultPath(id, ""), nil, true)
	if err != nil {
		return err
	}
	resp, err := c.do("delete", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return &StatusError{Op: "delete", StatusCode: resp.StatusCode, Body: readBody(resp)}
	}
	log.Printf("Backend: deleted consultation %s", id)
	return nil
}
