package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/velorahq/crewchat/internal/model"
)

func TestListMessagesPathAndAuth(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]model.Message{{ID: "m1", RoomID: "r1", Content: "hi"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	msgs, err := c.ListMessages(context.Background(), "r1")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if gotPath != "/api/messaging/chat-rooms/r1/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth = %q", gotAuth)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Errorf("msgs = %+v", msgs)
	}
}

func TestCreateMessagePostsToRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/messaging/chat-rooms/r1/messages" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var msg model.Message
		_ = json.NewDecoder(r.Body).Decode(&msg)
		msg.ID = "server-assigned"
		_ = json.NewEncoder(w).Encode(&msg)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	created, err := c.CreateMessage(context.Background(), &model.Message{RoomID: "r1", Content: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID != "server-assigned" {
		t.Errorf("ID = %q", created.ID)
	}
}

func TestDeleteMessageForEveryoneQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if err := c.DeleteMessage(context.Background(), "m1", true); err != nil {
		t.Fatal(err)
	}
	if gotQuery != "forEveryone=true" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestErrorStatusSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.CreateChatRoom(context.Background(), &model.ChatRoom{Type: model.RoomPrivate})
	if err == nil {
		t.Fatal("expected error for 403")
	}
}
