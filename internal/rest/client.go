// Package rest is the client for the messaging REST collaborator. It
// only shapes requests and decodes responses; degradation policy for
// failed reads lives with the callers.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/velorahq/crewchat/internal/model"
)

const basePath = "/api/messaging"

// Client talks to the messaging REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a messaging API client for the given base URL.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body any, query url.Values) ([]byte, error) {
	u := c.baseURL + basePath + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}

func decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

// Chat rooms.

func (c *Client) ListChatRooms(ctx context.Context) ([]model.ChatRoom, error) {
	data, err := c.do(ctx, http.MethodGet, "/chat-rooms", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]model.ChatRoom](data)
}

func (c *Client) GetChatRoom(ctx context.Context, id string) (*model.ChatRoom, error) {
	data, err := c.do(ctx, http.MethodGet, "/chat-rooms/"+id, nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.ChatRoom](data)
}

func (c *Client) CreateChatRoom(ctx context.Context, room *model.ChatRoom) (*model.ChatRoom, error) {
	data, err := c.do(ctx, http.MethodPost, "/chat-rooms", room, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.ChatRoom](data)
}

func (c *Client) UpdateChatRoom(ctx context.Context, room *model.ChatRoom) (*model.ChatRoom, error) {
	data, err := c.do(ctx, http.MethodPut, "/chat-rooms/"+room.ID, room, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.ChatRoom](data)
}

func (c *Client) DeleteChatRoom(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/chat-rooms/"+id, nil, nil)
	return err
}

// Messages.

func (c *Client) ListMessages(ctx context.Context, roomID string) ([]model.Message, error) {
	data, err := c.do(ctx, http.MethodGet, "/chat-rooms/"+roomID+"/messages", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]model.Message](data)
}

func (c *Client) CreateMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	data, err := c.do(ctx, http.MethodPost, "/chat-rooms/"+msg.RoomID+"/messages", msg, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.Message](data)
}

func (c *Client) UpdateMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	data, err := c.do(ctx, http.MethodPut, "/messages/"+msg.ID, msg, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.Message](data)
}

func (c *Client) DeleteMessage(ctx context.Context, id string, forEveryone bool) error {
	q := url.Values{"forEveryone": []string{strconv.FormatBool(forEveryone)}}
	_, err := c.do(ctx, http.MethodDelete, "/messages/"+id, nil, q)
	return err
}

// Calls.

func (c *Client) ListCalls(ctx context.Context) ([]model.Call, error) {
	data, err := c.do(ctx, http.MethodGet, "/calls", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]model.Call](data)
}

func (c *Client) CreateCall(ctx context.Context, call *model.Call) (*model.Call, error) {
	data, err := c.do(ctx, http.MethodPost, "/calls", call, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.Call](data)
}

func (c *Client) UpdateCall(ctx context.Context, call *model.Call) (*model.Call, error) {
	data, err := c.do(ctx, http.MethodPut, "/calls/"+call.ID, call, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.Call](data)
}

func (c *Client) DeleteCall(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/calls/"+id, nil, nil)
	return err
}

// Meetings.

func (c *Client) ListMeetings(ctx context.Context) ([]model.Meeting, error) {
	data, err := c.do(ctx, http.MethodGet, "/meetings", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]model.Meeting](data)
}

func (c *Client) CreateMeeting(ctx context.Context, m *model.Meeting) (*model.Meeting, error) {
	data, err := c.do(ctx, http.MethodPost, "/meetings", m, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.Meeting](data)
}

func (c *Client) UpdateMeeting(ctx context.Context, m *model.Meeting) (*model.Meeting, error) {
	data, err := c.do(ctx, http.MethodPut, "/meetings/"+m.ID, m, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.Meeting](data)
}

func (c *Client) DeleteMeeting(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/meetings/"+id, nil, nil)
	return err
}

// Contacts.

func (c *Client) ListContacts(ctx context.Context) ([]model.Contact, error) {
	data, err := c.do(ctx, http.MethodGet, "/contacts", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]model.Contact](data)
}

func (c *Client) CreateContact(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	data, err := c.do(ctx, http.MethodPost, "/contacts", contact, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.Contact](data)
}

func (c *Client) UpdateContact(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	data, err := c.do(ctx, http.MethodPut, "/contacts/"+contact.ID, contact, nil)
	if err != nil {
		return nil, err
	}
	return decode[*model.Contact](data)
}

func (c *Client) DeleteContact(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/contacts/"+id, nil, nil)
	return err
}

// Sticker catalog.

func (c *Client) ListStickerPacks(ctx context.Context) ([]model.StickerPack, error) {
	data, err := c.do(ctx, http.MethodGet, "/sticker-packs", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]model.StickerPack](data)
}

func (c *Client) ListPackStickers(ctx context.Context, packID string) ([]model.Sticker, error) {
	data, err := c.do(ctx, http.MethodGet, "/sticker-packs/"+packID+"/stickers", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]model.Sticker](data)
}

func (c *Client) ListStickers(ctx context.Context) ([]model.Sticker, error) {
	data, err := c.do(ctx, http.MethodGet, "/stickers", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]model.Sticker](data)
}
