// Package render decides which view presents a content item.
package render

import (
	"strings"

	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/media"
)

type View string

const (
	ViewAssessment View = "assessment"
	ViewVideo      View = "video"
	ViewDocument   View = "document"
	ViewText       View = "text"
)

// EmptyText is shown for text items with no body.
const EmptyText = "No content available."

// Plan is everything a presenter needs for one item.
type Plan struct {
	View View               `json:"view"`
	Item course.ContentItem `json:"item"`

	Video        *media.Source `json:"video,omitempty"`
	DocumentURL  string        `json:"documentUrl,omitempty"`
	Text         string        `json:"text,omitempty"`
	SubtitlesURL string        `json:"subtitlesUrl,omitempty"`
}

// Strategy builds a Plan for one media type.
type Strategy interface {
	Plan(item course.ContentItem) Plan
}

type StrategyFunc func(item course.ContentItem) Plan

func (f StrategyFunc) Plan(item course.ContentItem) Plan { return f(item) }

// Dispatcher routes by media type; evaluations always get the assessment
// view and anything unrecognized falls back to plain text.
type Dispatcher struct {
	strategies map[course.MediaType]Strategy
	assessment Strategy
	fallback   Strategy
}

type Option func(*Dispatcher)

// WithStrategy overrides or adds a media type strategy.
func WithStrategy(mt course.MediaType, s Strategy) Option {
	return func(d *Dispatcher) { d.strategies[course.ParseMediaType(string(mt))] = s }
}

// WithVideoChain swaps the URL recognizers used by the video strategy.
func WithVideoChain(c media.Chain) Option {
	return func(d *Dispatcher) { d.strategies[course.MediaVideo] = videoStrategy{chain: c} }
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		strategies: map[course.MediaType]Strategy{
			course.MediaVideo: videoStrategy{chain: media.DefaultChain},
			course.MediaPDF:   StrategyFunc(documentPlan),
			course.MediaText:  StrategyFunc(textPlan),
		},
		assessment: StrategyFunc(assessmentPlan),
		fallback:   StrategyFunc(textPlan),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dispatcher) Dispatch(item course.ContentItem) Plan {
	item.MediaType = course.ParseMediaType(string(item.MediaType))
	if item.IsEvaluation() {
		return d.assessment.Plan(item)
	}
	if s, ok := d.strategies[item.MediaType]; ok {
		return s.Plan(item)
	}
	return d.fallback.Plan(item)
}

var defaultDispatcher = NewDispatcher()

// Dispatch uses the default strategies.
func Dispatch(item course.ContentItem) Plan { return defaultDispatcher.Dispatch(item) }

type videoStrategy struct{ chain media.Chain }

func (s videoStrategy) Plan(item course.ContentItem) Plan {
	src := s.chain.Classify(item.Content)
	p := Plan{View: ViewVideo, Item: item, Video: &src}
	if src.Kind == media.KindDirectFile {
		p.SubtitlesURL = item.SubtitlesURL
	}
	return p
}

func documentPlan(item course.ContentItem) Plan {
	return Plan{View: ViewDocument, Item: item, DocumentURL: strings.TrimSpace(item.Content)}
}

func textPlan(item course.ContentItem) Plan {
	text := item.Content
	if strings.TrimSpace(text) == "" {
		text = EmptyText
	}
	return Plan{View: ViewText, Item: item, Text: text}
}

func assessmentPlan(item course.ContentItem) Plan {
	return Plan{View: ViewAssessment, Item: item}
}
