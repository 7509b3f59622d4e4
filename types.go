package main

// PII labels reported by detection and accepted in redaction requests.
const (
	LabelPAN     = "PAN"
	LabelAadhaar = "AADHAAR"
	LabelPhone   = "PHONE"
	LabelEmail   = "EMAIL"
	LabelName    = "NAME"
)

// Redaction modes accepted by the /redact endpoint.
const (
	ModeBlack = "black"
	ModeBlur  = "blur"
)

// DetectRequest is the request payload for the /detect endpoint.
type DetectRequest struct {
	FileB64  string `json:"file_b64" binding:"required"`
	Filename string `json:"filename"`
}

// DetectResponse is the response payload for the /detect endpoint.
type DetectResponse struct {
	Summary  Summary          `json:"summary"`
	Entities []DetectedEntity `json:"entities"`
}

// RedactRequest is the request payload for the /redact endpoint.
type RedactRequest struct {
	FileB64  string   `json:"file_b64" binding:"required"`
	Filename string   `json:"filename"`
	Labels   []string `json:"labels" binding:"required"`
	Mode     string   `json:"mode"`
	Partial  bool     `json:"partial"`
}

// RedactResponse is the response payload for the /redact endpoint.
type RedactResponse struct {
	FileB64  string `json:"file_b64"`
	Filename string `json:"filename"`
}

// LabelsResponse is the response payload for the /labels endpoint. It
// describes the full redaction surface: the labels detection can
// produce, the accepted masking modes and the fraction of a box that
// partial redaction covers per label.
type LabelsResponse struct {
	Labels        []string           `json:"labels"`
	Modes         []string           `json:"modes"`
	PartialRatios map[string]float64 `json:"partial_ratios"`
}

// Summary counts detected occurrences per label. Labels with zero hits
// are omitted entirely.
type Summary map[string]int

// accumulate folds the counts of another summary into this one.
func (s Summary) accumulate(other Summary) {
	for label, count := range other {
		s[label] += count
	}
}

// Box is the pixel rectangle of one detection in page coordinates.
type Box struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectedEntity is one detection result as reported to API clients.
type DetectedEntity struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
	Box   Box    `json:"box"`
}

// DetectedBox is the internal detection record carried between the
// detection pass and redaction. Geometry stays flat here so the
// compositor can do arithmetic without unwrapping.
type DetectedBox struct {
	Label  string
	Text   string
	Page   int
	Left   int
	Top    int
	Width  int
	Height int
}

// Box returns the API representation of the record's geometry.
func (b DetectedBox) Box() Box {
	return Box{Left: b.Left, Top: b.Top, Width: b.Width, Height: b.Height}
}

// SupportedLabels lists every label the detector can produce, in
// registry order with the NER label last.
func SupportedLabels() []string {
	return []string{LabelPAN, LabelAadhaar, LabelPhone, LabelEmail, LabelName}
}
