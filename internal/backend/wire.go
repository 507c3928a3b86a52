package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/medivoice/medivoice/internal/consult"
)

// flexID accepts identifiers encoded as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// flexTime parses the backend's creation timestamps; unknown formats decode
// to the zero time.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*f = flexTime{}
		return nil
	}
	*f = flexTime(parseTime(s))
	return nil
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	return time.Time{}
}

type uploadResponse struct {
	BaseFileName string `json:"baseFileName"`
	URI          string `json:"uri"`
}

type registerRequest struct {
	Name         string `json:"name"`
	Nombre       string `json:"nombre"`
	BaseFileName string `json:"baseFileName"`
}

type registerResponse struct {
	ID       flexID `json:"id"`
	LegacyID flexID `json:"Id"`
}

type finalizeRequest struct {
	ConsultaID   string `json:"consultaId"`
	BaseFileName string `json:"baseFileName"`
	Name         string `json:"name"`
}

// consultBody covers the finalize, details and list item shapes.
type consultBody struct {
	ID            flexID   `json:"id"`
	Name          string   `json:"name"`
	Nombre        string   `json:"nombre"`
	Transcription string   `json:"transcription"`
	Summary       string   `json:"summary"`
	Status        string   `json:"status"`
	CreatedAt     flexTime `json:"fechaCreacion"`
}

func (b consultBody) displayName() string {
	if b.Nombre != "" {
		return b.Nombre
	}
	return b.Name
}

func (b consultBody) details(fallback consult.JobID) consult.Details {
	id := consult.JobID(b.ID)
	if id == "" {
		id = fallback
	}
	return consult.Details{
		ID:          id,
		DisplayName: b.displayName(),
		CreatedAt:   time.Time(b.CreatedAt),
		Transcript:  b.Transcription,
		Summary:     b.Summary,
	}
}

func (b consultBody) summary() consult.Summary {
	return consult.Summary{
		ID:          consult.JobID(b.ID),
		DisplayName: b.displayName(),
		CreatedAt:   time.Time(b.CreatedAt),
		Status:      b.Status,
	}
}

type loginRequest struct {
	Email    string `json:"correo"`
	Password string `json:"contrasenia"`
}

type signUpRequest struct {
	Name      string `json:"nombre"`
	Email     string `json:"correo"`
	Password  string `json:"contrasenia"`
	Specialty string `json:"especialidad,omitempty"`
}

type loginResponse struct {
	Token string `json:"token"`
}
