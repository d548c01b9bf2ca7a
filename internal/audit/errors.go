package audit

import "errors"

// User-facing failure kinds.
var (
	ErrMissingCredential = errors.New("missing AI credential")
	ErrAnalysisFailed    = errors.New("analysis failed")
	ErrSynthesisFailed   = errors.New("speech synthesis failed")
	ErrExtractionFailed  = errors.New("unsupported or corrupt file")
	ErrFollowUpFailed    = errors.New("follow-up question failed")
)

// Guard failures; no state changes and no external call happened.
var (
	ErrNoOpenDocument   = errors.New("no document is open")
	ErrDocumentNotOpen  = errors.New("document is not the open document")
	ErrUnknownDocument  = errors.New("unknown document")
	ErrAnalysisInFlight = errors.New("analysis already in flight for this topic")
	ErrQuestionEmpty    = errors.New("question is empty")
	ErrSessionBusy      = errors.New("a question is already being answered")
	ErrSessionClosed    = errors.New("session is closed")
	ErrNoAnalysis       = errors.New("no analysis for this topic")
)

const (
	// MissingCredentialMessage replaces the analysis content when no API key is configured.
	MissingCredentialMessage = "<strong>Erreur :</strong> Clé API manquante."
	AnalysisFailureMessage   = "Une erreur est survenue lors de l'analyse."
	FollowUpFailureMessage   = "<strong>Erreur :</strong> La question n'a pas pu être traitée. Veuillez réessayer."
)
