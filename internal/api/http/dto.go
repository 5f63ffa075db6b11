package http

import "github.com/mind-engage/mindengage-courseware/internal/course"

type titleReq struct {
	Title string `json:"title" validate:"required,max=200"`
}

type materialReq struct {
	Title        string `json:"title" validate:"required,max=200"`
	MediaType    string `json:"mediaType" validate:"max=32"`
	Content      string `json:"content"`
	SubtitlesURL string `json:"subtitlesUrl" validate:"omitempty,url"`
}

func (m materialReq) item() course.ContentItem {
	return course.ContentItem{
		Title:        m.Title,
		Kind:         course.KindMaterial,
		MediaType:    course.MediaType(m.MediaType),
		Content:      m.Content,
		SubtitlesURL: m.SubtitlesURL,
	}
}

type answerReq struct {
	ID        string `json:"id"`
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type questionReq struct {
	ID               string      `json:"id"`
	Text             string      `json:"text" validate:"required"`
	Answers          []answerReq `json:"answers" validate:"min=2,max=6,dive"`
	ReinforcementIDs []string    `json:"reinforcementIds"`
}

type evaluationReq struct {
	Title     string        `json:"title" validate:"required,max=200"`
	Questions []questionReq `json:"questions" validate:"required,min=1,dive"`
}

func (e evaluationReq) evaluation() course.Evaluation {
	ev := course.Evaluation{Title: e.Title}
	for _, q := range e.Questions {
		cq := course.Question{ID: q.ID, Text: q.Text, ReinforcementIDs: q.ReinforcementIDs}
		for _, a := range q.Answers {
			cq.Answers = append(cq.Answers, course.Answer{ID: a.ID, Text: a.Text, IsCorrect: a.IsCorrect})
		}
		ev.Questions = append(ev.Questions, cq)
	}
	return ev
}

type orderEntryReq struct {
	ID   string `json:"id" validate:"required"`
	Kind string `json:"kind" validate:"omitempty,oneof=material evaluation"`
}

type answerChoiceReq struct {
	QuestionID     string `json:"questionId" validate:"required"`
	ChosenAnswerID string `json:"chosenAnswerId" validate:"required"`
}

type submissionReq struct {
	Answers []answerChoiceReq `json:"answers" validate:"required,min=1,dive"`
}

func (s submissionReq) submission() course.Submission {
	var out course.Submission
	for _, a := range s.Answers {
		out.Answers = append(out.Answers, course.AnswerChoice{QuestionID: a.QuestionID, ChosenAnswerID: a.ChosenAnswerID})
	}
	return out
}

type positionReq struct {
	ItemID string `json:"itemId" validate:"required"`
}
