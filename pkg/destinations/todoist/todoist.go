// Package todoist syncs assignments into a Todoist project over the REST v2
// API. The stable source identifier is embedded in each task's description
// ("Task ID: ...") and is the primary duplicate guard; titles are matched
// only through the shared formatter.
package todoist

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/destinations"
	"github.com/duesync/duesync/pkg/destinations/rest"
	"github.com/duesync/duesync/pkg/remind"
)

const (
	defaultBaseURL     = "https://api.todoist.com/rest/v2"
	defaultProjectName = "School Assignments"
)

var taskIDRe = regexp.MustCompile(`(?i)task id:\s*([\w.-]+)`)

type Client struct {
	api         *rest.Client
	projectName string
	projectID   string
	Now         func() time.Time
}

// New builds a Todoist destination. projectName falls back to the default
// assignments project when empty.
func New(token, projectName string) *Client {
	return NewWithBase(defaultBaseURL, token, projectName)
}

// NewWithBase exists for tests pointed at a stub server.
func NewWithBase(base, token, projectName string) *Client {
	if projectName == "" {
		projectName = defaultProjectName
	}
	return &Client{
		api: rest.New(base, map[string]string{
			"Authorization": "Bearer " + token,
		}),
		projectName: projectName,
		Now:         time.Now,
	}
}

func (c *Client) Name() string { return "todoist" }

// ensureProject resolves (or creates) the project holding our tasks.
func (c *Client) ensureProject(ctx context.Context) (string, error) {
	if c.projectID != "" {
		return c.projectID, nil
	}
	res, err := c.api.Get(ctx, "/projects")
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", res.StatusError("list projects")
	}
	for _, p := range gjson.Parse(res.Body).Array() {
		if p.Get("name").String() == c.projectName {
			c.projectID = p.Get("id").String()
			return c.projectID, nil
		}
	}
	res, err = c.api.PostJSON(ctx, "/projects", map[string]string{
		"name":  c.projectName,
		"color": "blue",
	})
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", res.StatusError("create project")
	}
	c.projectID = gjson.Get(res.Body, "id").String()
	return c.projectID, nil
}

func (c *Client) Create(ctx context.Context, a *assignment.Assignment) (string, error) {
	projectID, err := c.ensureProject(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"content":     a.RemoteTitle(),
		"description": description(a),
		"project_id":  projectID,
		"priority":    2,
	}
	if due := taskDueDate(a, c.Now()); due != "" {
		body["due_date"] = due
	}
	if a.CourseCode != "" {
		body["labels"] = []string{strings.ToLower(a.CourseCode)}
	}

	res, err := c.api.PostJSON(ctx, "/tasks", body)
	if err != nil {
		return "", err
	}
	if res.StatusCode == 409 {
		return "", destinations.ErrAlreadyExists
	}
	if !res.OK() {
		return "", res.StatusError("create task")
	}
	return gjson.Get(res.Body, "id").String(), nil
}

func (c *Client) Exists(ctx context.Context, a *assignment.Assignment) (string, error) {
	tasks, err := c.ListAll(ctx)
	if err != nil {
		return "", err
	}
	if a.SourceID != "" {
		for _, t := range tasks {
			if t.SourceID == a.SourceID {
				return t.RemoteID, nil
			}
		}
		return "", nil
	}
	// No stable identifier: exact formatted-title match is all we have.
	want := strings.ToLower(a.RemoteTitle())
	for _, t := range tasks {
		if strings.ToLower(t.Title) == want {
			return t.RemoteID, nil
		}
	}
	return "", nil
}

func (c *Client) ListAll(ctx context.Context) ([]destinations.RemoteTask, error) {
	projectID, err := c.ensureProject(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.api.Get(ctx, "/tasks?project_id="+url.QueryEscape(projectID))
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, res.StatusError("list tasks")
	}

	var tasks []destinations.RemoteTask
	for _, t := range gjson.Parse(res.Body).Array() {
		status := assignment.StatusPending
		if t.Get("is_completed").Bool() {
			status = assignment.StatusCompleted
		}
		desc := t.Get("description").String()
		sourceID := ""
		if m := taskIDRe.FindStringSubmatch(desc); m != nil {
			sourceID = m[1]
		}
		tasks = append(tasks, destinations.RemoteTask{
			RemoteID: t.Get("id").String(),
			Title:    t.Get("content").String(),
			SourceID: sourceID,
			DueDate:  t.Get("due.date").String(),
			Course:   descLine(desc, "Course: "),
			Status:   status,
		})
	}
	return tasks, nil
}

// Delete removes the task matching this record, located with the same
// identifiers creation used.
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
		return fmt.Errorf("todoist: no task found for %q", a.Title)
	}
	res, err := c.api.Delete(ctx, "/tasks/"+id)
	if err != nil {
		return err
	}
	if res.StatusCode != 204 && !res.OK() {
		return res.StatusError("delete task")
	}
	return nil
}

// description renders the task body. The Task ID line is load-bearing: it
// is how Exists recognizes our tasks later.
func description(a *assignment.Assignment) string {
	var lines []string
	if a.DueDate != "" {
		lines = append(lines, "Deadline: "+a.DueDate)
	}
	if a.Course != "" {
		lines = append(lines, "Course: "+strings.ReplaceAll(a.Course, "\n", " "))
	}
	if len(a.Sources) > 0 {
		lines = append(lines, "Source: "+a.Sources.String())
	}
	if a.SourceID != "" {
		lines = append(lines, "Task ID: "+a.SourceID)
	}
	return strings.Join(lines, "\n")
}

// descLine pulls a "Key: value" line back out of a task description.
func descLine(desc, prefix string) string {
	for _, line := range strings.Split(desc, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

// taskDueDate prefers the computed reminder date so the task surfaces when
// work should start, falling back to the raw due date.
func taskDueDate(a *assignment.Assignment, now time.Time) string {
	due, ok := a.DueTime()
	if !ok {
		return ""
	}
	opening, _ := a.OpeningTime()
	if r, ok := remind.Date(opening, due, a.AddedDate, now); ok {
		return r.Format("2006-01-02")
	}
	return due.Format("2006-01-02")
}
