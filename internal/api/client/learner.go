package client

import (
	"context"
	"net/http"

	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/position"
)

func (c *Client) GetEvaluation(ctx context.Context, moduleID, evaluationID string) (course.Evaluation, error) {
	var out course.Evaluation
	err := c.do(ctx, call{
		op: "get evaluation", method: http.MethodGet, path: "/modules/{moduleId}/evaluations/{evalId}",
		params: map[string]string{"moduleId": moduleID, "evalId": evaluationID}, out: &out,
		resource: "evaluation", id: evaluationID,
	})
	return out, err
}

func (c *Client) SubmitEvaluation(ctx context.Context, moduleID, evaluationID string, sub course.Submission) (course.Result, error) {
	var out course.Result
	err := c.do(ctx, call{
		op: "submit evaluation", method: http.MethodPost, path: "/modules/{moduleId}/evaluations/{evalId}/submit",
		params: map[string]string{"moduleId": moduleID, "evalId": evaluationID},
		body:   sub, out: &out,
		resource: "evaluation", id: evaluationID,
	})
	return out, err
}

// PositionStore adapts the position endpoints to position.Store. The server
// takes the learner from the token, so Key.LearnerID is not sent.
type PositionStore struct{ c *Client }

var _ position.Store = PositionStore{}

func (c *Client) Positions() PositionStore { return PositionStore{c: c} }

type positionBody struct {
	ItemID string `json:"itemId"`
}

func (p PositionStore) Get(ctx context.Context, key position.Key) (string, bool, error) {
	var out positionBody
	err := p.c.do(ctx, call{
		op: "get position", method: http.MethodGet, path: "/courses/{courseId}/position",
		params: map[string]string{"courseId": key.CourseID}, out: &out,
		resource: "position", id: key.CourseID,
	})
	if course.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return out.ItemID, out.ItemID != "", nil
}

func (p PositionStore) Put(ctx context.Context, key position.Key, itemID string) error {
	return p.c.do(ctx, call{
		op: "save position", method: http.MethodPut, path: "/courses/{courseId}/position",
		params: map[string]string{"courseId": key.CourseID}, body: positionBody{ItemID: itemID},
		resource: "course", id: key.CourseID,
	})
}
