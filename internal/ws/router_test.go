package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/E011011101001/HEAL-backend/internal/auth"
	"github.com/E011011101001/HEAL-backend/internal/chatbot"
	"github.com/E011011101001/HEAL-backend/internal/langsvc"
	"github.com/E011011101001/HEAL-backend/internal/models"
	"github.com/E011011101001/HEAL-backend/internal/store"
)

const testSecret = "test-secret"

// fakeSender records everything pushed to one client.
type fakeSender struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (f *fakeSender) SendJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, payload)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSender) payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeUsers implements UserResolver.
type fakeUsers struct {
	users map[uint]models.User
}

func (f *fakeUsers) Get(id uint) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		cp := u
		return &cp, nil
	}
	return nil, fmt.Errorf("user %d not found", id)
}

// fakeRooms implements Membership and RoomRepo.
type fakeRooms struct {
	mu      sync.Mutex
	rooms   map[uint]models.Room
	doctors map[uint][]uint
}

func (f *fakeRooms) IsMember(user *models.User, roomID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return false, nil
	}
	if user.Role == models.RolePatient {
		return room.PatientID == user.ID, nil
	}
	for _, id := range f.doctors[roomID] {
		if id == user.ID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRooms) Get(roomID uint) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok := f.rooms[roomID]; ok {
		cp := room
		return &cp, nil
	}
	return nil, fmt.Errorf("room %d not found", roomID)
}

func (f *fakeRooms) ActiveDoctorIDs(roomID uint) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.doctors[roomID]...), nil
}

type savedMessage struct {
	id       uint
	senderID uint
	roomID   uint
	text     string
}

// fakeMessages implements MessageRepo. Render marks the language used
// so tests can tell which rendition went where.
type fakeMessages struct {
	mu    sync.Mutex
	next  uint
	saved []savedMessage
}

func (f *fakeMessages) SaveRaw(senderID, roomID uint, text string, _ time.Time) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.saved = append(f.saved, savedMessage{id: f.next, senderID: senderID, roomID: roomID, text: text})
	return f.next, nil
}

func (f *fakeMessages) Render(roomID, msgID uint, lang string) (*store.RenderedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.saved {
		if m.id == msgID && m.roomID == roomID {
			return &store.RenderedMessage{
				MessageID:    m.id,
				RoomID:       m.roomID,
				SenderUserID: m.senderID,
				Timestamp:    time.Now(),
				Content: store.MessageContent{
					Text: m.text,
					Metadata: store.MessageMetadata{
						Translation:  lang + ":" + m.text,
						MedicalTerms: []store.RenderedTerm{},
					},
				},
			}, nil
		}
	}
	return nil, fmt.Errorf("message %d not found", msgID)
}

func (f *fakeMessages) all() []savedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]savedMessage(nil), f.saved...)
}

type enrichCall struct {
	msgID      uint
	sourceLang string
	targetLang string
}

type fakeEnricher struct {
	mu    sync.Mutex
	calls []enrichCall
}

func (f *fakeEnricher) Enrich(_ context.Context, msgID uint, _ string, sourceLang, targetLang string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, enrichCall{msgID: msgID, sourceLang: sourceLang, targetLang: targetLang})
	return nil
}

func (f *fakeEnricher) all() []enrichCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]enrichCall(nil), f.calls...)
}

// scriptedChat answers every Chat call with a fixed reply.
type scriptedChat struct {
	reply string
}

func (s *scriptedChat) Chat(context.Context, []langsvc.Turn) (string, error) {
	return s.reply, nil
}

func (s *scriptedChat) Translate(_ context.Context, text, lang string) (string, error) {
	return "[" + lang + "] " + text, nil
}

func (s *scriptedChat) ExtractTerms(context.Context, string, string) ([]langsvc.ExtractedTerm, error) {
	return nil, nil
}

func (s *scriptedChat) ExplainTerm(context.Context, string, string) (langsvc.TermExplanation, error) {
	return langsvc.TermExplanation{Type: "GENERAL"}, nil
}

func (s *scriptedChat) Synonyms(context.Context, string, string) ([]string, error) {
	return nil, nil
}

type fixture struct {
	sessions *SessionManager
	router   *MessageRouter
	hub      *Hub
	users    *fakeUsers
	rooms    *fakeRooms
	messages *fakeMessages
	enricher *fakeEnricher
	pool     *chatbot.Pool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := &fakeUsers{users: map[uint]models.User{
		1: {ID: 1, Name: "Pat", Role: models.RolePatient, LanguageCode: "en"},
		5: {ID: 5, Name: "Dr Yamada", Role: models.RoleDoctor, LanguageCode: "jp"},
		6: {ID: 6, Name: "Dr Lee", Role: models.RoleDoctor, LanguageCode: "ko"},
	}}
	rooms := &fakeRooms{
		rooms:   map[uint]models.Room{10: {ID: 10, PatientID: 1}},
		doctors: map[uint][]uint{},
	}
	messages := &fakeMessages{}
	enricher := &fakeEnricher{}
	pool := chatbot.NewPool(&scriptedChat{reply: "how long have you had it?"})
	sessions := NewSessionManager(users, rooms, testSecret)
	router := NewMessageRouter(sessions, messages, rooms, users, enricher, pool)
	f := &fixture{
		sessions: sessions,
		router:   router,
		hub:      NewHub(router),
		users:    users,
		rooms:    rooms,
		messages: messages,
		enricher: enricher,
		pool:     pool,
	}
	t.Cleanup(f.hub.Shutdown)
	return f
}

func (f *fixture) connect(t *testing.T, connID string, userID, roomID uint) (*Session, *fakeSender) {
	t.Helper()
	token, err := auth.GenerateAccessToken(userID, testSecret, 60)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	sess, err := f.sessions.Connect(connID, token, roomID)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	sender := &fakeSender{}
	f.hub.Room(roomID).Join(connID, sender)
	return sess, sender
}

func frame(text string) []byte {
	ts := time.Now().UTC().Format(time.RFC3339)
	return []byte(`{"text":` + quote(text) + `,"timestamp":"` + ts + `"}`)
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestConnectRejectsBadToken(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sessions.Connect("c1", "not-a-token", 10); err != ErrUserInvalid {
		t.Fatalf("expected ErrUserInvalid, got %v", err)
	}
}

func TestConnectRejectsNonMember(t *testing.T) {
	f := newFixture(t)
	token, _ := auth.GenerateAccessToken(6, testSecret, 60)
	if _, err := f.sessions.Connect("c1", token, 10); err != ErrRoomInvalid {
		t.Fatalf("expected ErrRoomInvalid for outside doctor, got %v", err)
	}
	token, _ = auth.GenerateAccessToken(1, testSecret, 60)
	if _, err := f.sessions.Connect("c2", token, 99); err != ErrRoomInvalid {
		t.Fatalf("expected ErrRoomInvalid for missing room, got %v", err)
	}
}

func TestErrorEventKindsMatchWireProtocol(t *testing.T) {
	// Deployed clients key on these literal strings.
	if KindUnauthorized != "unauthorizationError" {
		t.Errorf("connect-failure kind = %q, want %q", KindUnauthorized, "unauthorizationError")
	}
	if KindMissingItems != "missing items" {
		t.Errorf("validation kind = %q, want %q", KindMissingItems, "missing items")
	}
}

func TestHandleRejectsMissingFields(t *testing.T) {
	f := newFixture(t)
	_, sender := f.connect(t, "c1", 1, 10)
	room := f.hub.Room(10)

	room.Enqueue(Event{ConnID: "c1", Sender: sender, Raw: []byte(`{"text":"no timestamp"}`)})
	waitFor(t, func() bool { return len(sender.payloads()) == 1 })

	var ev ErrorEvent
	if err := json.Unmarshal(sender.payloads()[0], &ev); err != nil {
		t.Fatal(err)
	}
	// Clients match these literals, so assert the wire values directly.
	if ev.Error != "missing items" || ev.Message != `"text" and "timestamp" are required` {
		t.Errorf("unexpected error event: %+v", ev)
	}
	if len(f.messages.all()) != 0 {
		t.Error("expected nothing persisted for a rejected frame")
	}
}

func TestHandleUnknownSessionClosesConnection(t *testing.T) {
	f := newFixture(t)
	sender := &fakeSender{}
	room := f.hub.Room(10)

	room.Enqueue(Event{ConnID: "ghost", Sender: sender, Raw: frame("hello")})
	waitFor(t, func() bool { return len(sender.payloads()) == 1 })

	var ev ErrorEvent
	json.Unmarshal(sender.payloads()[0], &ev)
	if ev.Error != KindInternalServer {
		t.Errorf("expected internal error event, got %+v", ev)
	}
	sender.mu.Lock()
	closed := sender.closed
	sender.mu.Unlock()
	if !closed {
		t.Error("expected connection closed on session desync")
	}
}

func TestIntakeBotAnswersWhenNoDoctor(t *testing.T) {
	f := newFixture(t)
	_, sender := f.connect(t, "c1", 1, 10)
	room := f.hub.Room(10)

	room.Enqueue(Event{ConnID: "c1", Sender: sender, Raw: frame("I have a headache")})
	waitFor(t, func() bool { return len(sender.payloads()) == 2 })

	saved := f.messages.all()
	if len(saved) != 2 {
		t.Fatalf("expected patient and bot messages persisted, got %d", len(saved))
	}
	if saved[0].senderID != 1 || saved[1].senderID != models.AISenderID {
		t.Errorf("unexpected senders: %+v", saved)
	}
	if f.pool.Size() != 1 {
		t.Errorf("expected one bot in the pool, got %d", f.pool.Size())
	}

	var botMsg store.RenderedMessage
	if err := json.Unmarshal(sender.payloads()[1], &botMsg); err != nil {
		t.Fatal(err)
	}
	if botMsg.SenderUserID != models.AISenderID || botMsg.Content.Text != "how long have you had it?" {
		t.Errorf("unexpected bot message: %+v", botMsg)
	}
	// both enrichments stay in the patient's language
	for _, call := range f.enricher.all() {
		if call.sourceLang != "en" || call.targetLang != "en" {
			t.Errorf("unexpected enrich call: %+v", call)
		}
	}
}

func TestRelayPatientToLastJoinedDoctor(t *testing.T) {
	f := newFixture(t)
	f.rooms.doctors[10] = []uint{6, 5} // Dr Yamada (jp) joined last
	_, patientSender := f.connect(t, "c1", 1, 10)
	_, doctorSender := f.connect(t, "c2", 5, 10)
	room := f.hub.Room(10)

	room.Enqueue(Event{ConnID: "c1", Sender: patientSender, Raw: frame("my chest hurts")})
	waitFor(t, func() bool {
		return len(patientSender.payloads()) == 1 && len(doctorSender.payloads()) == 1
	})

	calls := f.enricher.all()
	if len(calls) != 1 || calls[0].sourceLang != "en" || calls[0].targetLang != "jp" {
		t.Fatalf("expected en->jp enrichment, got %+v", calls)
	}

	var ack, relayed store.RenderedMessage
	json.Unmarshal(patientSender.payloads()[0], &ack)
	json.Unmarshal(doctorSender.payloads()[0], &relayed)
	if ack.Content.Metadata.Translation != "en:my chest hurts" {
		t.Errorf("ack should be rendered in the sender's language, got %q", ack.Content.Metadata.Translation)
	}
	if relayed.Content.Metadata.Translation != "jp:my chest hurts" {
		t.Errorf("relay should be rendered in the doctor's language, got %q", relayed.Content.Metadata.Translation)
	}
}

func TestRelayDoctorToPatientLanguage(t *testing.T) {
	f := newFixture(t)
	f.rooms.doctors[10] = []uint{5}
	_, patientSender := f.connect(t, "c1", 1, 10)
	_, doctorSender := f.connect(t, "c2", 5, 10)
	room := f.hub.Room(10)

	room.Enqueue(Event{ConnID: "c2", Sender: doctorSender, Raw: frame("痛みはいつからですか")})
	waitFor(t, func() bool {
		return len(doctorSender.payloads()) == 1 && len(patientSender.payloads()) == 1
	})

	calls := f.enricher.all()
	if len(calls) != 1 || calls[0].sourceLang != "jp" || calls[0].targetLang != "en" {
		t.Fatalf("expected jp->en enrichment, got %+v", calls)
	}
	var relayed store.RenderedMessage
	json.Unmarshal(patientSender.payloads()[0], &relayed)
	if relayed.Content.Metadata.Translation != "en:痛みはいつからですか" {
		t.Errorf("patient should receive their language, got %q", relayed.Content.Metadata.Translation)
	}
}

func TestRoomWorkerPreservesOrder(t *testing.T) {
	f := newFixture(t)
	f.rooms.doctors[10] = []uint{5}
	_, sender := f.connect(t, "c1", 1, 10)
	room := f.hub.Room(10)

	for i := 0; i < 10; i++ {
		room.Enqueue(Event{ConnID: "c1", Sender: sender, Raw: frame(fmt.Sprintf("message %d", i))})
	}
	waitFor(t, func() bool { return len(f.messages.all()) == 10 })

	for i, m := range f.messages.all() {
		if m.text != fmt.Sprintf("message %d", i) {
			t.Fatalf("order violated at %d: %q", i, m.text)
		}
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "c1", 1, 10)
	if f.sessions.Count() != 1 {
		t.Fatalf("expected one session, got %d", f.sessions.Count())
	}
	f.sessions.Disconnect("c1")
	f.sessions.Disconnect("c1")
	f.sessions.Disconnect("never-registered")
	if f.sessions.Count() != 0 {
		t.Fatalf("expected no sessions, got %d", f.sessions.Count())
	}
}
