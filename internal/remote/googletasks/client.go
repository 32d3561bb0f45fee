// Package googletasks implements the remote.Service interface on the
// Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasksync/internal/config"
	"tasksync/internal/remote"
)

const (
	// PageSize is the number of items requested per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 10 * time.Second

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Client implements remote.Service using the Google Tasks API.
type Client struct {
	svc *tasks.Service
}

var _ remote.Service = (*Client)(nil)

// New creates a client from the stored OAuth credentials.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Token source auto-refreshes
	tokenSource := oauthConfig.TokenSource(ctx, &token)
	httpClient := oauth2.NewClient(ctx, tokenSource)

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc}, nil
}

// ListTaskLists returns all task lists, flagging the default one.
func (c *Client) ListTaskLists(ctx context.Context) ([]remote.TaskList, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	// The default list has a stable alias; fetch it once so it can be
	// flagged among the listing results.
	defaultList, err := c.svc.Tasklists.Get("@default").Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}

	var result []remote.TaskList
	err = c.svc.Tasklists.List().MaxResults(PageSize).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, l := range resp.Items {
			result = append(result, remote.TaskList{
				ID:      l.Id,
				Title:   l.Title,
				Updated: parseTime(l.Updated),
				Default: l.Id == defaultList.Id,
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// CreateTaskList creates a new task list.
func (c *Client) CreateTaskList(ctx context.Context, title string) (remote.TaskList, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	l, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: title}).Context(ctx).Do()
	if err != nil {
		return remote.TaskList{}, wrapError(err)
	}
	return remote.TaskList{ID: l.Id, Title: l.Title, Updated: parseTime(l.Updated)}, nil
}

// UpdateTaskList renames a task list.
func (c *Client) UpdateTaskList(ctx context.Context, id, title string) (remote.TaskList, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	l, err := c.svc.Tasklists.Patch(id, &tasks.TaskList{Title: title}).Context(ctx).Do()
	if err != nil {
		return remote.TaskList{}, wrapError(err)
	}
	return remote.TaskList{ID: l.Id, Title: l.Title, Updated: parseTime(l.Updated)}, nil
}

// DeleteTaskList deletes a task list and its tasks.
func (c *Client) DeleteTaskList(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasklists.Delete(id).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// ListTasks returns every task of the list including completed, hidden
// and soft-deleted ones.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]remote.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result []remote.Task
	err := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(true).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, fromAPI(t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// CreateTask inserts a task under parentID after previousID.
func (c *Client) CreateTask(ctx context.Context, listID, parentID, previousID string, t remote.Task) (remote.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	call := c.svc.Tasks.Insert(listID, toAPI(t)).Context(ctx)
	if parentID != "" {
		call.Parent(parentID)
	}
	if previousID != "" {
		call.Previous(previousID)
	}
	created, err := call.Do()
	if err != nil {
		return remote.Task{}, wrapError(err)
	}
	return fromAPI(created), nil
}

// UpdateTask patches the task's content fields.
func (c *Client) UpdateTask(ctx context.Context, listID string, t remote.Task) (remote.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	patch := toAPI(t)
	if t.Due.IsZero() {
		patch.NullFields = append(patch.NullFields, "Due")
	}
	if !t.Completed {
		patch.NullFields = append(patch.NullFields, "Completed")
	}
	updated, err := c.svc.Tasks.Patch(listID, t.ID, patch).Context(ctx).Do()
	if err != nil {
		return remote.Task{}, wrapError(err)
	}
	return fromAPI(updated), nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, listID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(listID, id).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// MoveTask repositions a task under parentID after previousID.
func (c *Client) MoveTask(ctx context.Context, listID, id, parentID, previousID string) (remote.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	call := c.svc.Tasks.Move(listID, id).Context(ctx)
	if parentID != "" {
		call.Parent(parentID)
	}
	if previousID != "" {
		call.Previous(previousID)
	}
	moved, err := call.Do()
	if err != nil {
		return remote.Task{}, wrapError(err)
	}
	return fromAPI(moved), nil
}

func toAPI(t remote.Task) *tasks.Task {
	status := statusNeedsAction
	if t.Completed {
		status = statusCompleted
	}
	out := &tasks.Task{
		Id:     t.ID,
		Title:  t.Title,
		Notes:  t.Notes,
		Status: status,
	}
	if !t.Due.IsZero() {
		out.Due = t.Due.UTC().Format(time.RFC3339)
	}
	return out
}

func fromAPI(t *tasks.Task) remote.Task {
	return remote.Task{
		ID:        t.Id,
		ParentID:  t.Parent,
		Title:     t.Title,
		Notes:     t.Notes,
		Due:       parseTime(t.Due),
		Updated:   parseTime(t.Updated),
		Completed: t.Status == statusCompleted,
		Deleted:   t.Deleted,
		Hidden:    t.Hidden,
		Position:  t.Position,
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// wrapError maps API failures onto short, stable messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	if strings.Contains(errStr, "context deadline exceeded") {
		return fmt.Errorf("request timed out")
	}
	if strings.Contains(errStr, "401") || strings.Contains(errStr, "403") {
		return fmt.Errorf("token expired or revoked (run: tasksync login)")
	}
	if strings.Contains(errStr, "404") {
		// Deleting something already gone counts as acknowledged.
		return remote.ErrNotFound
	}

	return err
}
