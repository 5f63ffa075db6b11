package course

import "strings"

type Kind string

const (
	KindMaterial   Kind = "material"
	KindEvaluation Kind = "evaluation"
)

func (k Kind) Valid() bool { return k == KindMaterial || k == KindEvaluation }

type MediaType string

const (
	MediaVideo MediaType = "VIDEO"
	MediaPDF   MediaType = "PDF"
	MediaText  MediaType = "TEXT"
	// MediaExam is the legacy label some items carry instead of kind=evaluation.
	MediaExam MediaType = "EXAM"
)

// ParseMediaType normalizes a free-form label. Unknown labels are returned
// upper-cased so the dispatcher can fall back to plain text.
func ParseMediaType(s string) MediaType {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "":
		return MediaText
	case "EXAMEN", "EVALUATION":
		return MediaExam
	case "LESSON", "LECCION":
		return MediaText
	}
	return MediaType(v)
}

func (m MediaType) Known() bool {
	switch m {
	case MediaVideo, MediaPDF, MediaText:
		return true
	}
	return false
}

type Course struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Modules []Module `json:"modules,omitempty"`
}

type Module struct {
	ID         string        `json:"id"`
	CourseID   string        `json:"courseId,omitempty"`
	Title      string        `json:"title"`
	OrderIndex int           `json:"orderIndex"`
	Items      []ContentItem `json:"content,omitempty"`
}

// ContentItem is one entry of a module's mixed ordered list. Kind tells which
// resource the id belongs to; the Material fields are empty for evaluations.
type ContentItem struct {
	ID         string `json:"id"`
	ModuleID   string `json:"moduleId,omitempty"`
	Title      string `json:"title"`
	OrderIndex int    `json:"orderIndex"`
	Kind       Kind   `json:"kind"`

	MediaType    MediaType `json:"mediaType,omitempty"`
	Content      string    `json:"content,omitempty"` // URL for video/pdf, inline text otherwise
	SubtitlesURL string    `json:"subtitlesUrl,omitempty"`
}

func (c ContentItem) IsEvaluation() bool {
	return c.Kind == KindEvaluation || c.MediaType == MediaExam
}

// Key, Index and WithIndex let ordering treat modules and items alike.
func (m Module) Key() string                      { return m.ID }
func (m Module) Index() int                       { return m.OrderIndex }
func (m Module) WithIndex(i int) Module           { m.OrderIndex = i; return m }
func (c ContentItem) Key() string                 { return c.ID }
func (c ContentItem) Index() int                  { return c.OrderIndex }
func (c ContentItem) WithIndex(i int) ContentItem { c.OrderIndex = i; return c }

// OrderEntry is one element of a mixed-type reorder payload.
type OrderEntry struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
}

type Answer struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect,omitempty"`
}

type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Answers []Answer `json:"answers"`
	// ReinforcementIDs are material ids suggested when this question is missed.
	ReinforcementIDs []string `json:"reinforcementIds,omitempty"`
}

type Evaluation struct {
	ID        string     `json:"id"`
	ModuleID  string     `json:"moduleId,omitempty"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// WithoutKey returns a copy safe to hand to learners.
func (e Evaluation) WithoutKey() Evaluation {
	out := e
	out.Questions = make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		q.Answers = append([]Answer(nil), q.Answers...)
		for j := range q.Answers {
			q.Answers[j].IsCorrect = false
		}
		q.ReinforcementIDs = nil
		out.Questions[i] = q
	}
	return out
}

type MaterialRef struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	MediaType MediaType `json:"mediaType,omitempty"`
}

type AnswerChoice struct {
	QuestionID     string `json:"questionId"`
	ChosenAnswerID string `json:"chosenAnswerId"`
}

type Submission struct {
	Answers []AnswerChoice `json:"answers"`
}

type Result struct {
	ResultID        string        `json:"resultId,omitempty"`
	EvaluationID    string        `json:"evaluationId"`
	EvaluationTitle string        `json:"evaluationTitle,omitempty"`
	Score           float64       `json:"score"`
	Feedback        string        `json:"feedback"`
	Reinforcement   []MaterialRef `json:"reinforcement"`
}

// PassingScore only drives presentation; it never gates navigation.
const PassingScore = 60.0

func (r Result) Passed() bool { return r.Score >= PassingScore }
