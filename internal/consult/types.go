package consult

import "time"

// Origin tags where an AudioBlob came from.
type Origin string

const (
	OriginUpload     Origin = "upload"
	OriginMicrophone Origin = "microphone"
)

// StorageReference identifies uploaded audio bytes on the backend.
type StorageReference string

// JobID is the backend-assigned consultation identifier.
type JobID string

// AudioBlob is a named audio payload ready for transfer.
type AudioBlob struct {
	Name     string
	Data     []byte
	MIMEType string
	Origin   Origin
}

func (b AudioBlob) Size() int { return len(b.Data) }

// Details is a finished consultation. Transcript and Summary may be empty.
type Details struct {
	ID          JobID     `json:"id"`
	DisplayName string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	Transcript  string    `json:"transcript"`
	Summary     string    `json:"summary"`
}

// Summary is one row of the recent consultations list.
type Summary struct {
	ID          JobID     `json:"id"`
	DisplayName string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	Status      string    `json:"status,omitempty"`
}

type OutcomeKind int

const (
	Pending OutcomeKind = iota
	Ready
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of a single finalize request.
// Details is set only for Ready; StatusCode and Body only for Failed.
type Outcome struct {
	Kind       OutcomeKind
	Details    Details
	StatusCode int
	Body       string

	// Malformed reports a Ready response whose body could not be decoded.
	Malformed bool
}

func (o Outcome) Terminal() bool { return o.Kind != Pending }

// Profile is the signed-in user's account info.
type Profile struct {
	Name      string `json:"nombre"`
	Email     string `json:"correo"`
	Specialty string `json:"especialidad"`
	Plan      string `json:"planName,omitempty"`
}

// Stats are the per-user usage counters.
type Stats struct {
	TotalConsults       int     `json:"totalConsultas"`
	TotalTranscriptions int     `json:"totalTranscripciones"`
	TimeSaved           float64 `json:"tiempoAhorrado"`
}

// Attempt is one end-to-end submission of an AudioBlob. Ref and Job are
// filled in as the stages complete.
type Attempt struct {
	ID          string           `json:"id"`
	Ref         StorageReference `json:"ref,omitempty"`
	Job         JobID            `json:"job,omitempty"`
	DisplayName string           `json:"name"`
	Origin      Origin           `json:"origin"`
	Started     time.Time        `json:"started"`
	Deadline    time.Duration    `json:"deadline"`
}
