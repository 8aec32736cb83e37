package mumble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithSecret sets the shared secret sent as a bearer token on every request.
func WithSecret(secret string) Option {
	return func(c *Client) {
		c.secret = secret
	}
}

// WithTimeout bounds every request issued by the client. Values of zero or
// less are ignored; the default of 10 seconds is used instead.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. A nil client is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client talks to a single virtual server through a Murmur admin REST
// gateway. It is safe for concurrent use.
type Client struct {
	baseURL  string
	serverID int
	secret   string
	http     *http.Client
}

// NewClient constructs a Client for the virtual server serverID behind the
// gateway at baseURL.
func NewClient(baseURL string, serverID int, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		serverID: serverID,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type serverInfo struct {
	ID      int  `json:"id"`
	Running bool `json:"running"`
	Uptime  int  `json:"uptime"`
}

type channelMessage struct {
	Text string `json:"text"`
	Tree bool   `json:"tree"`
}

type userMessage struct {
	Text string `json:"text"`
}

// Users returns the connected users in the order the server reports them.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, "fetch users", http.MethodGet, c.serverPath("users"), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Channels returns every channel of the server's tree.
func (c *Client) Channels(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	if err := c.do(ctx, "fetch channels", http.MethodGet, c.serverPath("channels"), nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// SendToChannel posts text to a channel and, when tree is set, to all of
// its subchannels.
func (c *Client) SendToChannel(ctx context.Context, channelID int, tree bool, text string) error {
	path := c.serverPath(fmt.Sprintf("channels/%d/message", channelID))
	return c.do(ctx, "send to channel", http.MethodPost, path, channelMessage{Text: text, Tree: tree}, nil)
}

// SendToUser posts text directly to the user holding session.
func (c *Client) SendToUser(ctx context.Context, session int, text string) error {
	path := c.serverPath(fmt.Sprintf("users/%d/message", session))
	return c.do(ctx, "send to user", http.MethodPost, path, userMessage{Text: text}, nil)
}

// Uptime returns how long the virtual server has been up.
func (c *Client) Uptime(ctx context.Context) (time.Duration, error) {
	info, err := c.info(ctx, "get uptime")
	if err != nil {
		return 0, err
	}
	return time.Duration(info.Uptime) * time.Second, nil
}

// IsRunning reports whether the virtual server is running.
func (c *Client) IsRunning(ctx context.Context) (bool, error) {
	info, err := c.info(ctx, "get running state")
	if err != nil {
		return false, err
	}
	return info.Running, nil
}

func (c *Client) info(ctx context.Context, op string) (serverInfo, error) {
	var info serverInfo
	err := c.do(ctx, op, http.MethodGet, c.serverPath(""), nil, &info)
	return info, err
}

func (c *Client) serverPath(suffix string) string {
	p := fmt.Sprintf("%s/servers/%d", c.baseURL, c.serverID)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

// do performs a single request. Every failure, including non-2xx statuses
// and undecodable bodies, is returned as a *TransportError.
func (c *Client) do(ctx context.Context, op, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{
			Op:  op,
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
