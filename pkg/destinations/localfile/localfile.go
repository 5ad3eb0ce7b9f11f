// Package localfile mirrors assignments into a markdown table on disk. It
// is a destination like any other, useful for offline review and as a
// dependency-free sync target in tests.
package localfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/duesync/duesync/pkg/assignment"
	"github.com/duesync/duesync/pkg/destinations"
)

const header = `# Assignments

| Title | Due Date | Course | Status | Source ID |
|-------|----------|--------|--------|-----------|
`

type Client struct {
	path string
}

func New(path string) *Client {
	return &Client{path: path}
}

func (c *Client) Name() string { return "localfile" }

func (c *Client) Create(ctx context.Context, a *assignment.Assignment) (string, error) {
	tasks, err := c.ListAll(ctx)
	if err != nil {
		return "", err
	}
	id := rowID(a)
	for _, t := range tasks {
		if t.RemoteID == id {
			return "", destinations.ErrAlreadyExists
		}
	}
	tasks = append(tasks, destinations.RemoteTask{
		RemoteID: id,
		Title:    a.RemoteTitle(),
		SourceID: a.SourceID,
		DueDate:  a.DueDate,
		Course:   a.Course,
		Status:   a.Status,
	})
	if err := c.write(tasks); err != nil {
		return "", err
	}
	return id, nil
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
	want := strings.ToLower(a.RemoteTitle())
	for _, t := range tasks {
		if strings.ToLower(t.Title) == want {
			return t.RemoteID, nil
		}
	}
	return "", nil
}

// ListAll parses the markdown table back into tasks. A missing file is an
// empty destination, not an error.
func (c *Client) ListAll(ctx context.Context) ([]destinations.RemoteTask, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tasks []destinations.RemoteTask
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") || strings.HasPrefix(line, "|-") {
			continue
		}
		cells := splitRow(line)
		if len(cells) < 5 || cells[0] == "Title" {
			continue
		}
		status := assignment.StatusPending
		if s := assignment.Status(cells[3]); assignment.ValidStatus(s) {
			status = s
		}
		t := destinations.RemoteTask{
			Title:    cells[0],
			DueDate:  cells[1],
			Course:   cells[2],
			SourceID: cells[4],
			Status:   status,
		}
		t.RemoteID = t.SourceID
		if t.RemoteID == "" {
			t.RemoteID = strings.ToLower(t.Title)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (c *Client) Delete(ctx context.Context, a *assignment.Assignment) error {
	tasks, err := c.ListAll(ctx)
	if err != nil {
		return err
	}
	id := rowID(a)
	kept := tasks[:0]
	found := false
	for _, t := range tasks {
		if t.RemoteID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return fmt.Errorf("localfile: no row found for %q", a.Title)
	}
	return c.write(kept)
}

// write rewrites the whole table atomically.
func (c *Client) write(tasks []destinations.RemoteTask) error {
	var b strings.Builder
	b.WriteString(header)
	for _, t := range tasks {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			escapeCell(t.Title), escapeCell(t.DueDate), escapeCell(t.Course),
			escapeCell(string(t.Status)), escapeCell(t.SourceID))
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".duesync-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}

func rowID(a *assignment.Assignment) string {
	if a.SourceID != "" {
		return a.SourceID
	}
	return strings.ToLower(a.RemoteTitle())
}

// splitRow breaks a table row on unescaped pipes.
func splitRow(line string) []string {
	line = strings.Trim(line, "|")
	var cells []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			if r != '|' {
				cur.WriteRune('\\')
			}
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
