// Package notion syncs assignments into a Notion database. Each record
// becomes a page keyed by its Source ID property; existence checks filter
// the database on that property rather than on title text.
package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/destinations"
	"github.com/duesync/duesync/pkg/destinations/rest"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	notionVersion  = "2022-06-28"
)

type Client struct {
	api        *rest.Client
	databaseID string
}

func New(token, databaseID string) *Client {
	return NewWithBase(defaultBaseURL, token, databaseID)
}

// NewWithBase exists for tests pointed at a stub server.
func NewWithBase(base, token, databaseID string) *Client {
	return &Client{
		api: rest.New(base, map[string]string{
			"Authorization":  "Bearer " + token,
			"Notion-Version": notionVersion,
		}),
		databaseID: databaseID,
	}
}

func (c *Client) Name() string { return "notion" }

func (c *Client) Create(ctx context.Context, a *assignment.Assignment) (string, error) {
	props := map[string]interface{}{
		"Name": map[string]interface{}{
			"title": []interface{}{richText(a.RemoteTitle())},
		},
		"Status": map[string]interface{}{
			"select": map[string]string{"name": string(a.Status)},
		},
	}
	if a.SourceID != "" {
		props["Source ID"] = map[string]interface{}{
			"rich_text": []interface{}{richText(a.SourceID)},
		}
	}
	if a.Course != "" {
		props["Course"] = map[string]interface{}{
			"rich_text": []interface{}{richText(a.Course)},
		}
	}
	if due, ok := a.DueTime(); ok {
		props["Due Date"] = map[string]interface{}{
			"date": map[string]string{"start": due.Format("2006-01-02")},
		}
	}

	res, err := c.api.PostJSON(ctx, "/pages", map[string]interface{}{
		"parent":     map[string]string{"database_id": c.databaseID},
		"properties": props,
	})
	if err != nil {
		return "", err
	}
	if res.StatusCode == 409 {
		return "", destinations.ErrAlreadyExists
	}
	if !res.OK() {
		return "", res.StatusError("create page")
	}
	return gjson.Get(res.Body, "id").String(), nil
}

func (c *Client) Exists(ctx context.Context, a *assignment.Assignment) (string, error) {
	if a.SourceID != "" {
		res, err := c.api.PostJSON(ctx, "/databases/"+c.databaseID+"/query", map[string]interface{}{
			"filter": map[string]interface{}{
				"property":  "Source ID",
				"rich_text": map[string]string{"equals": a.SourceID},
			},
			"page_size": 1,
		})
		if err != nil {
			return "", err
		}
		if !res.OK() {
			return "", res.StatusError("query database")
		}
		if results := gjson.Get(res.Body, "results").Array(); len(results) > 0 {
			return results[0].Get("id").String(), nil
		}
		return "", nil
	}
	tasks, err := c.ListAll(ctx)
	if err != nil {
		return "", err
	}
	want := strings.ToLower(a.RemoteTitle())
	for _, t := range tasks {
		if strings.ToLower(t.Title) == want {
			return t.RemoteID, nil
		}
	}
	return "", nil
}

// ListAll pages through the whole database.
func (c *Client) ListAll(ctx context.Context) ([]destinations.RemoteTask, error) {
	var tasks []destinations.RemoteTask
	cursor := ""
	for {
		body := map[string]interface{}{"page_size": 100}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		res, err := c.api.PostJSON(ctx, "/databases/"+c.databaseID+"/query", body)
		if err != nil {
			return nil, err
		}
		if !res.OK() {
			return nil, res.StatusError("query database")
		}
		parsed := gjson.Parse(res.Body)
		for _, page := range parsed.Get("results").Array() {
			tasks = append(tasks, pageToTask(page))
		}
		if !parsed.Get("has_more").Bool() {
			return tasks, nil
		}
		cursor = parsed.Get("next_cursor").String()
	}
}

func (c *Client) Delete(ctx context.Context, a *assignment.Assignment) error {
	id := a.RemoteID(c.Name())
	if id == "" {
		var err error
		id, err = c.Exists(ctx, a)
		if err != nil {
			return err
		}
	}
	if id == "" {
		return fmt.Errorf("notion: no page found for %q", a.Title)
	}
	// Notion has no hard delete over the API; archiving the page is it.
	res, err := c.api.PatchJSON(ctx, "/pages/"+id, map[string]interface{}{
		"archived": true,
	})
	if err != nil {
		return err
	}
	if !res.OK() {
		return res.StatusError("archive page")
	}
	return nil
}

func pageToTask(page gjson.Result) destinations.RemoteTask {
	status := assignment.StatusPending
	if s := assignment.Status(page.Get("properties.Status.select.name").String()); assignment.ValidStatus(s) {
		status = s
	}
	return destinations.RemoteTask{
		RemoteID: page.Get("id").String(),
		Title:    page.Get("properties.Name.title.0.plain_text").String(),
		SourceID: page.Get("properties.Source ID.rich_text.0.plain_text").String(),
		DueDate:  page.Get("properties.Due Date.date.start").String(),
		Course:   page.Get("properties.Course.rich_text.0.plain_text").String(),
		Status:   status,
	}
}

func richText(s string) map[string]interface{} {
	return map[string]interface{}{
		"text": map[string]string{"content": s},
	}
}
