package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/velorahq/crewchat/internal/model"
	"github.com/velorahq/crewchat/internal/state"
)

type fakeAPI struct {
	failWrites bool
}

func (f *fakeAPI) CreateChatRoom(_ context.Context, room *model.ChatRoom) (*model.ChatRoom, error) {
	if f.failWrites {
		return nil, errors.New("server rejected")
	}
	out := *room
	out.ID = "room-srv"
	return &out, nil
}

func (f *fakeAPI) CreateMessage(_ context.Context, msg *model.Message) (*model.Message, error) {
	if f.failWrites {
		return nil, errors.New("server rejected")
	}
	out := *msg
	out.Statuses = []model.DeliveryStatus{{UserID: msg.SenderID, State: model.DeliverySent, At: msg.CreatedAt}}
	return &out, nil
}

func (f *fakeAPI) CreateCall(_ context.Context, call *model.Call) (*model.Call, error) {
	if f.failWrites {
		return nil, errors.New("server rejected")
	}
	out := *call
	return &out, nil
}

func (f *fakeAPI) CreateMeeting(_ context.Context, m *model.Meeting) (*model.Meeting, error) {
	if f.failWrites {
		return nil, errors.New("server rejected")
	}
	out := *m
	return &out, nil
}

func (f *fakeAPI) CreateContact(_ context.Context, contact *model.Contact) (*model.Contact, error) {
	if f.failWrites {
		return nil, errors.New("server rejected")
	}
	out := *contact
	out.ID = "contact-srv"
	return &out, nil
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []model.EventType
}

func (f *fakeBroadcaster) Send(eventType model.EventType, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, eventType)
}

func (f *fakeBroadcaster) events() []model.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.EventType(nil), f.sent...)
}

func setup(failWrites bool) (*Commands, *state.Store, *fakeBroadcaster) {
	st := state.NewStore("u1", nil)
	bc := &fakeBroadcaster{}
	cmds := New(&fakeAPI{failWrites: failWrites}, st, bc, "u1", zap.NewNop())
	return cmds, st, bc
}

func TestSendMessageHappyPath(t *testing.T) {
	cmds, st, bc := setup(false)

	created, err := cmds.SendMessage(context.Background(), "r1", model.MessageText, "hello", "")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if created.SenderID != "u1" || created.ID == "" {
		t.Errorf("created = %+v", created)
	}

	bucket := st.RoomMessages("r1")
	if len(bucket) != 1 || bucket[0].ID != created.ID {
		t.Errorf("bucket = %+v, want the optimistic message", bucket)
	}
	if evts := bc.events(); len(evts) != 1 || evts[0] != model.EventMessage {
		t.Errorf("broadcasts = %v, want [message]", evts)
	}
	// Own messages never count as unread.
	if st.TotalUnread() != 0 {
		t.Errorf("total unread = %d, want 0", st.TotalUnread())
	}
}

func TestSendMessageRESTFailureAppliesNothing(t *testing.T) {
	cmds, st, bc := setup(true)

	_, err := cmds.SendMessage(context.Background(), "r1", model.MessageText, "hello", "")
	if err == nil {
		t.Fatal("SendMessage() expected error")
	}
	if got := len(st.RoomMessages("r1")); got != 0 {
		t.Errorf("bucket size = %d, want 0 after failed write", got)
	}
	if evts := bc.events(); len(evts) != 0 {
		t.Errorf("broadcasts = %v, want none after failed write", evts)
	}
}

func TestSendMessageValidation(t *testing.T) {
	cmds, _, _ := setup(false)

	if _, err := cmds.SendMessage(context.Background(), "r1", model.MessageText, "", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("error = %v, want ErrEmptyMessage", err)
	}
	if _, err := cmds.SendMessage(context.Background(), "", model.MessageText, "hi", ""); err == nil {
		t.Error("expected error for missing room")
	}
}

func TestSendMessageEchoDeduplicated(t *testing.T) {
	cmds, st, _ := setup(false)

	created, err := cmds.SendMessage(context.Background(), "r1", model.MessageText, "hello", "")
	if err != nil {
		t.Fatal(err)
	}

	// Server fan-out echo arrives moments later under the same id.
	echo := *created
	echo.CreatedAt = created.CreatedAt.Add(1500 * time.Millisecond)
	st.Dispatch(state.AddMessage{Message: echo})

	if got := len(st.RoomMessages("r1")); got != 1 {
		t.Errorf("bucket size = %d, want 1 after echo", got)
	}
}

func TestCreateChatRoom(t *testing.T) {
	cmds, st, bc := setup(false)

	room, err := cmds.CreateChatRoom(context.Background(), "ops", model.RoomGroup, []string{"u1", "u2"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.Snapshot().Rooms[room.ID]; !ok {
		t.Error("room missing from store")
	}
	if evts := bc.events(); len(evts) != 0 {
		t.Errorf("broadcasts = %v, want none for room creation", evts)
	}
}

func TestCreateChatRoomValidation(t *testing.T) {
	cmds, _, _ := setup(false)
	if _, err := cmds.CreateChatRoom(context.Background(), "x", model.RoomGroup, nil); !errors.Is(err, ErrNoParticipants) {
		t.Errorf("error = %v, want ErrNoParticipants", err)
	}
}

func TestMakeCallBroadcastsInitiated(t *testing.T) {
	cmds, st, bc := setup(false)

	call, err := cmds.MakeCall(context.Background(), "u2", model.CallVideo)
	if err != nil {
		t.Fatal(err)
	}
	if call.Status != model.CallInitiated {
		t.Errorf("status = %s, want initiated", call.Status)
	}
	if _, ok := st.Snapshot().Calls[call.ID]; !ok {
		t.Error("call missing from store")
	}
	if evts := bc.events(); len(evts) != 1 || evts[0] != model.EventCallInitiated {
		t.Errorf("broadcasts = %v, want [call_initiated]", evts)
	}
}

func TestScheduleMeeting(t *testing.T) {
	cmds, st, bc := setup(false)

	m, err := cmds.ScheduleMeeting(context.Background(), "standup", time.Now().Add(time.Hour), 30)
	if err != nil {
		t.Fatal(err)
	}
	if m.Status != model.MeetingScheduled {
		t.Errorf("status = %s", m.Status)
	}
	if _, ok := st.Snapshot().Meetings[m.ID]; !ok {
		t.Error("meeting missing from store")
	}
	if evts := bc.events(); len(evts) != 1 || evts[0] != model.EventMeetingScheduled {
		t.Errorf("broadcasts = %v, want [meeting_scheduled]", evts)
	}
}

func TestAddContact(t *testing.T) {
	cmds, st, _ := setup(false)

	contact, err := cmds.AddContact(context.Background(), "u9", "boss")
	if err != nil {
		t.Fatal(err)
	}
	if contact.OwnerID != "u1" || contact.TargetID != "u9" {
		t.Errorf("contact = %+v", contact)
	}
	if _, ok := st.Snapshot().Contacts[contact.ID]; !ok {
		t.Error("contact missing from store")
	}
}

func TestMarkMessagesAsReadIsLocalOnlyPlusReceipt(t *testing.T) {
	cmds, st, bc := setup(false)

	st.Dispatch(state.AddMessage{Message: model.Message{ID: "m1", RoomID: "r1", SenderID: "u2", Content: "hi", CreatedAt: time.Now()}})
	if st.TotalUnread() != 1 {
		t.Fatalf("total unread = %d, want 1", st.TotalUnread())
	}

	cmds.MarkMessagesAsRead("r1")

	if st.TotalUnread() != 0 {
		t.Errorf("total unread = %d, want 0", st.TotalUnread())
	}
	if evts := bc.events(); len(evts) != 1 || evts[0] != model.EventMessageRead {
		t.Errorf("broadcasts = %v, want [message_read]", evts)
	}
}
