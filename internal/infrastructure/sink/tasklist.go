package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"TodoScanner/internal/domain"
	"TodoScanner/internal/ports"
)

// Keywords in an action that raise the remote task's importance.
var urgentKeywords = []string{"urgent", "asap", "critical", "important"}

// TaskListSink pushes items into a named Microsoft To Do list. Duplicate
// detection compares titles against the list's incomplete tasks. The HTTP
// client is expected to carry OAuth credentials.
type TaskListSink struct {
	client    *http.Client
	baseURL   string
	userEmail string
	listName  string
	listID    string
}

var (
	_ ports.Sink             = (*TaskListSink)(nil)
	_ ports.DuplicateChecker = (*TaskListSink)(nil)
)

// NewTaskListSink wires an authenticated HTTP client. baseURL defaults to the
// public Graph endpoint when empty.
func NewTaskListSink(client *http.Client, baseURL, userEmail, listName string) *TaskListSink {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://graph.microsoft.com/v1.0"
	}
	if listName == "" {
		listName = "Email Tasks"
	}
	return &TaskListSink{
		client:    client,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userEmail: userEmail,
		listName:  listName,
	}
}

// Name identifies the sink in logs and write results.
func (s *TaskListSink) Name() string {
	return "tasklist"
}

type remoteList struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type remoteTask struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// ExistingActions returns titles of incomplete tasks in the list. Completed
// tasks don't count as duplicates: a recurring ask may come back.
func (s *TaskListSink) ExistingActions(ctx context.Context) ([]string, error) {
	listID, err := s.ensureList(ctx)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Value []remoteTask `json:"value"`
	}
	if err := s.getJSON(ctx, s.tasksURL(listID), &payload); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	titles := make([]string, 0, len(payload.Value))
	for _, task := range payload.Value {
		if task.Status == "completed" {
			continue
		}
		titles = append(titles, task.Title)
	}
	return titles, nil
}

// Write creates one remote task per item.
func (s *TaskListSink) Write(ctx context.Context, items []domain.CanonicalItem, label string) error {
	listID, err := s.ensureList(ctx)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := s.createTask(ctx, listID, item, label); err != nil {
			return fmt.Errorf("create task %q: %w", item.Action, err)
		}
	}
	return nil
}

func (s *TaskListSink) createTask(ctx context.Context, listID string, item domain.CanonicalItem, label string) error {
	task := map[string]any{
		"title":      item.Action,
		"importance": importanceFor(item),
	}

	if body := taskBody(item, label); body != "" {
		task["body"] = map[string]string{
			"content":     body,
			"contentType": "text",
		}
	}

	if due, err := time.Parse("2006-01-02", item.Deadline); err == nil {
		task["dueDateTime"] = map[string]string{
			"dateTime": due.Format(time.RFC3339),
			"timeZone": "UTC",
		}
	}

	return s.postJSON(ctx, s.tasksURL(listID), task, nil)
}

// ensureList resolves the configured list's id, creating the list on first
// use. The id is cached for the process lifetime.
func (s *TaskListSink) ensureList(ctx context.Context) (string, error) {
	if s.listID != "" {
		return s.listID, nil
	}

	listsURL := fmt.Sprintf("%s/users/%s/todo/lists", s.baseURL, url.PathEscape(s.userEmail))

	var payload struct {
		Value []remoteList `json:"value"`
	}
	if err := s.getJSON(ctx, listsURL, &payload); err != nil {
		return "", fmt.Errorf("list task lists: %w", err)
	}

	for _, list := range payload.Value {
		if list.DisplayName == s.listName {
			s.listID = list.ID
			return s.listID, nil
		}
	}

	var created remoteList
	if err := s.postJSON(ctx, listsURL, map[string]string{"displayName": s.listName}, &created); err != nil {
		return "", fmt.Errorf("create task list: %w", err)
	}

	s.listID = created.ID
	return s.listID, nil
}

func (s *TaskListSink) tasksURL(listID string) string {
	return fmt.Sprintf("%s/users/%s/todo/lists/%s/tasks",
		s.baseURL, url.PathEscape(s.userEmail), url.PathEscape(listID))
}

func (s *TaskListSink) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *TaskListSink) postJSON(ctx context.Context, endpoint string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("graph returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func importanceFor(item domain.CanonicalItem) string {
	if item.Priority == domain.PriorityHigh {
		return "high"
	}

	lower := strings.ToLower(item.Action)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return "high"
		}
	}
	return "normal"
}

func taskBody(item domain.CanonicalItem, label string) string {
	var parts []string
	if item.Details != "" {
		parts = append(parts, "Details: "+item.Details)
	}
	parts = append(parts,
		"--- Source ---",
		"Subject: "+item.Provenance.Subject,
		"Occurred: "+item.Provenance.OccurredAt.Format("2006-01-02 15:04"),
		"Via: "+label,
	)
	return strings.Join(parts, "\n")
}
