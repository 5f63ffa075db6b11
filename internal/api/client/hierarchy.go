package client

import (
	"context"
	"net/http"

	"github.com/mind-engage/mindengage-courseware/internal/course"
)

func (c *Client) ListModules(ctx context.Context, courseID string) ([]course.Module, error) {
	var out []course.Module
	err := c.do(ctx, call{
		op: "list modules", method: http.MethodGet, path: "/courses/{courseId}/modules",
		params: map[string]string{"courseId": courseID}, out: &out,
		resource: "course", id: courseID,
	})
	return out, err
}

func (c *Client) CreateModule(ctx context.Context, courseID, title string) (course.Module, error) {
	var out course.Module
	err := c.do(ctx, call{
		op: "create module", method: http.MethodPost, path: "/courses/{courseId}/modules",
		params: map[string]string{"courseId": courseID},
		body:   map[string]string{"title": title}, out: &out,
		resource: "course", id: courseID,
	})
	return out, err
}

func (c *Client) RenameModule(ctx context.Context, courseID, moduleID, title string) (course.Module, error) {
	var out course.Module
	err := c.do(ctx, call{
		op: "rename module", method: http.MethodPut, path: "/courses/{courseId}/modules/{moduleId}",
		params: map[string]string{"courseId": courseID, "moduleId": moduleID},
		body:   map[string]string{"title": title}, out: &out,
		resource: "module", id: moduleID,
	})
	return out, err
}

func (c *Client) DeleteModule(ctx context.Context, courseID, moduleID string) error {
	return c.do(ctx, call{
		op: "delete module", method: http.MethodDelete, path: "/courses/{courseId}/modules/{moduleId}",
		params:   map[string]string{"courseId": courseID, "moduleId": moduleID},
		resource: "module", id: moduleID,
	})
}

// ReorderModules sends the full ordered id list.
func (c *Client) ReorderModules(ctx context.Context, courseID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return c.do(ctx, call{
		op: "reorder modules", method: http.MethodPut, path: "/courses/{courseId}/modules/order",
		params: map[string]string{"courseId": courseID}, body: ids,
		resource: "course", id: courseID,
	})
}

func (c *Client) ListModuleContent(ctx context.Context, moduleID string) ([]course.ContentItem, error) {
	var out []course.ContentItem
	err := c.do(ctx, call{
		op: "list module content", method: http.MethodGet, path: "/modules/{moduleId}/content",
		params: map[string]string{"moduleId": moduleID}, out: &out,
		resource: "module", id: moduleID,
	})
	return out, err
}

// ReorderModuleContent sends the full kind-tagged order.
func (c *Client) ReorderModuleContent(ctx context.Context, moduleID string, entries []course.OrderEntry) error {
	if entries == nil {
		entries = []course.OrderEntry{}
	}
	return c.do(ctx, call{
		op: "reorder module content", method: http.MethodPut, path: "/modules/{moduleId}/content/order",
		params: map[string]string{"moduleId": moduleID}, body: entries,
		resource: "module", id: moduleID,
	})
}

func (c *Client) AddMaterial(ctx context.Context, moduleID string, item course.ContentItem) (course.ContentItem, error) {
	var out course.ContentItem
	err := c.do(ctx, call{
		op: "add material", method: http.MethodPost, path: "/modules/{moduleId}/materials",
		params: map[string]string{"moduleId": moduleID},
		body: map[string]string{
			"title":        item.Title,
			"mediaType":    string(item.MediaType),
			"content":      item.Content,
			"subtitlesUrl": item.SubtitlesURL,
		},
		out:      &out,
		resource: "module", id: moduleID,
	})
	return out, err
}

func (c *Client) AddEvaluation(ctx context.Context, moduleID string, ev course.Evaluation) (course.ContentItem, error) {
	var out course.ContentItem
	err := c.do(ctx, call{
		op: "add evaluation", method: http.MethodPost, path: "/modules/{moduleId}/evaluations",
		params: map[string]string{"moduleId": moduleID},
		body: struct {
			Title     string            `json:"title"`
			Questions []course.Question `json:"questions"`
		}{ev.Title, ev.Questions},
		out:      &out,
		resource: "module", id: moduleID,
	})
	return out, err
}

// itemPath routes a content id to its resource collection.
func itemPath(kind course.Kind) string {
	if kind == course.KindEvaluation {
		return "/modules/{moduleId}/evaluations/{itemId}"
	}
	return "/modules/{moduleId}/materials/{itemId}"
}

func (c *Client) RenameItem(ctx context.Context, moduleID string, ref course.OrderEntry, title string) (course.ContentItem, error) {
	var out course.ContentItem
	err := c.do(ctx, call{
		op: "rename " + string(ref.Kind), method: http.MethodPut, path: itemPath(ref.Kind),
		params: map[string]string{"moduleId": moduleID, "itemId": ref.ID},
		body:   map[string]string{"title": title}, out: &out,
		resource: string(ref.Kind), id: ref.ID,
	})
	return out, err
}

func (c *Client) DeleteItem(ctx context.Context, moduleID string, ref course.OrderEntry) error {
	return c.do(ctx, call{
		op: "delete " + string(ref.Kind), method: http.MethodDelete, path: itemPath(ref.Kind),
		params:   map[string]string{"moduleId": moduleID, "itemId": ref.ID},
		resource: string(ref.Kind), id: ref.ID,
	})
}
