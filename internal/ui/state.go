package ui

import "html/template"

// State is the step of the upload-and-analyze flow a page is rendered in
type State int

// ImageUploaded, KeyEntered and Analyzing are passed through in the browser
// while the form is filled in and submitted. The server renders Idle, Result
// or Error.
const (
	Idle State = iota
	ImageUploaded
	KeyEntered
	Analyzing
	Result
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ImageUploaded:
		return "image_uploaded"
	case KeyEntered:
		return "key_entered"
	case Analyzing:
		return "analyzing"
	case Result:
		return "result"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Page is everything the template needs to render one submission.
// It never carries the API key.
type Page struct {
	Title    string
	State    State
	Filename string
	ImageURI template.URL
	Analysis string
	Warning  string
	Failure  string
}

// AnalyzingState is the state the page shows while a submission is in flight
func (p Page) AnalyzingState() string {
	return Analyzing.String()
}

func newPage() Page {
	return Page{Title: pageTitle, State: Idle}
}

func (p Page) withWarning(msg string) Page {
	p.State = Error
	p.Warning = msg
	return p
}

func (p Page) withFailure(msg string) Page {
	p.State = Error
	p.Failure = msg
	return p
}

func (p Page) withResult(text string) Page {
	p.State = Result
	p.Analysis = text
	return p
}
