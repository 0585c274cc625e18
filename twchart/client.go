// Package twchart uploads completed shots to a TWChart server as coffee sessions
package twchart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/calvinmclean/babyapi"
	"github.com/calvinmclean/twchart"
)

type Client struct {
	client    *babyapi.Client[*session]
	sessionID string
}

type session struct {
	// include NilResource so we don't implement Render/Bind which are not needed
	*babyapi.NilResource
	twchart.Session
}

func (s session) GetID() string {
	return s.Session.GetID()
}

func NewClient(addr string) *Client {
	client := babyapi.NewClient[*session](addr, "/sessions")
	return &Client{client: client}
}

// CreateSession starts a session for one shot. Later calls add to this session
func (c *Client) CreateSession(ctx context.Context, name string, start time.Time) (string, error) {
	resp, err := c.client.Post(ctx, &session{
		Session: twchart.Session{
			Name:      name,
			Type:      twchart.SessionTypeCoffee,
			Date:      start,
			StartTime: start,
		},
	})
	if err != nil {
		return "", fmt.Errorf("error creating session: %w", err)
	}

	c.sessionID = resp.Data.GetID()

	return c.sessionID, nil
}

func (c *Client) AddEvent(ctx context.Context, note string, at time.Time) error {
	e := twchart.Event{Note: note, Time: at}
	return c.post(ctx, "/add-event", e)
}

func (c *Client) AddStage(ctx context.Context, name string, start time.Time) error {
	s := twchart.Stage{Name: name, Start: start}
	return c.post(ctx, "/add-stage", s)
}

// Done ends the session at the given time
func (c *Client) Done(ctx context.Context, at time.Time) error {
	err := c.post(ctx, "/done", map[string]any{"time": at})
	if err != nil {
		return err
	}
	c.sessionID = ""
	return nil
}

func (c *Client) post(ctx context.Context, action string, body any) error {
	if c.sessionID == "" {
		return errors.New("no session")
	}

	url, err := c.client.URL(c.sessionID)
	if err != nil {
		return fmt.Errorf("error creating url: %w", err)
	}

	return c.makeRequest(ctx, url+action, body)
}

func (c *Client) makeRequest(ctx context.Context, url string, body any) error {
	var bodyReader io.Reader = http.NoBody
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding body: %w", err)
		}

		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := c.client.MakeGenericRequest(req, nil)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	if resp.Response.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status code: %d, response: %v", resp.Response.StatusCode, resp.Body)
	}

	return nil
}
