package httpapi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/codecollab/server/internal/ai"
	"github.com/codecollab/server/internal/auth"
	"github.com/codecollab/server/internal/store"
	"github.com/codecollab/server/internal/ws"
)

// fakeUsers is an in-memory UserStore.
type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*store.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*store.User)}
}

func (f *fakeUsers) add(username, email, hashedPassword string, active bool) *store.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &store.User{
		ID:             primitive.NewObjectID(),
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().UTC(),
		IsActive:       active,
	}
	f.users[u.ID.Hex()] = u
	return u
}

func (f *fakeUsers) Create(_ context.Context, username, email, hashedPassword string) (*store.User, error) {
	return f.add(username, email, hashedPassword, true), nil
}

func (f *fakeUsers) ByEmail(_ context.Context, email string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) ByID(_ context.Context, id string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.ByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// gateDirectory adapts fakeUsers to the session gate's directory view.
type gateDirectory struct {
	users *fakeUsers
}

func (d *gateDirectory) UserByID(ctx context.Context, id string) (*auth.User, error) {
	u, err := d.users.ByID(ctx, id)
	if err != nil {
		return nil, nil
	}
	return &auth.User{ID: u.ID.Hex(), Username: u.Username, Email: u.Email, Active: u.IsActive}, nil
}

// fakeChats is an in-memory ChatStore that also serves as the hub's
// persistence sink.
type fakeChats struct {
	mu        sync.Mutex
	exchanges []ws.Exchange
	histories map[string]*store.ChatHistory
}

func newFakeChats() *fakeChats {
	return &fakeChats{histories: make(map[string]*store.ChatHistory)}
}

func (f *fakeChats) Insert(_ context.Context, userID, prompt, response, mode, codeContext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &store.ChatHistory{
		ID:     primitive.NewObjectID(),
		UserID: userID,
		Messages: []store.ChatMessage{
			{Role: "user", Content: prompt, Timestamp: time.Now().UTC()},
			{Role: "assistant", Content: response, Timestamp: time.Now().UTC()},
		},
		Mode:        mode,
		CodeContext: codeContext,
		CreatedAt:   time.Now().UTC(),
	}
	f.histories[h.ID.Hex()] = h
	return h.ID.Hex(), nil
}

func (f *fakeChats) SaveExchange(ctx context.Context, ex ws.Exchange) (string, error) {
	f.mu.Lock()
	f.exchanges = append(f.exchanges, ex)
	f.mu.Unlock()
	return f.Insert(ctx, ex.UserID, ex.Prompt, ex.Response, string(ex.Mode), ex.CodeContext)
}

func (f *fakeChats) savedExchanges() []ws.Exchange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ws.Exchange(nil), f.exchanges...)
}

func (f *fakeChats) ByID(_ context.Context, id, userID string) (*store.ChatHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.histories[id]; ok && h.UserID == userID {
		return h, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeChats) ListByUser(_ context.Context, userID string, _, _ int64) ([]store.ChatHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.ChatHistory
	for _, h := range f.histories {
		if h.UserID == userID {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (f *fakeChats) Delete(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.histories[id]; ok && h.UserID == userID {
		delete(f.histories, id)
		return nil
	}
	return store.ErrNotFound
}

// fakeSnippets is an in-memory SnippetStore with the repository's
// visibility rules: owners see their own, everyone sees public.
type fakeSnippets struct {
	mu       sync.Mutex
	snippets map[string]*store.Snippet
}

func newFakeSnippets() *fakeSnippets {
	return &fakeSnippets{snippets: make(map[string]*store.Snippet)}
}

func (f *fakeSnippets) Create(_ context.Context, userID string, in store.SnippetInput) (*store.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	s := &store.Snippet{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Title:       in.Title,
		Code:        in.Code,
		Language:    in.Language,
		Description: in.Description,
		Tags:        in.Tags,
		IsPublic:    in.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.snippets[s.ID.Hex()] = s
	return s, nil
}

func (f *fakeSnippets) ByID(_ context.Context, id, userID string) (*store.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.snippets[id]; ok && (s.UserID == userID || s.IsPublic) {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeSnippets) ListByUser(_ context.Context, userID string, _, _ int64) ([]store.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Snippet{}
	for _, s := range f.snippets {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSnippets) ListPublic(_ context.Context, _, _ int64) ([]store.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Snippet{}
	for _, s := range f.snippets {
		if s.IsPublic {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSnippets) Update(_ context.Context, id, userID string, in store.SnippetInput) (*store.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snippets[id]
	if !ok || s.UserID != userID {
		return nil, store.ErrNotFound
	}
	s.Title = in.Title
	s.Code = in.Code
	s.Language = in.Language
	s.Description = in.Description
	s.Tags = in.Tags
	s.IsPublic = in.IsPublic
	s.UpdatedAt = time.Now().UTC()
	return s, nil
}

func (f *fakeSnippets) Delete(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.snippets[id]; ok && s.UserID == userID {
		delete(f.snippets, id)
		return nil
	}
	return store.ErrNotFound
}

// scriptedStream replays fixed fragments.
type scriptedStream struct {
	fragments []string
	idx       int
	cur       string
}

func (s *scriptedStream) Next() bool {
	if s.idx >= len(s.fragments) {
		return false
	}
	s.cur = s.fragments[s.idx]
	s.idx++
	return true
}

func (s *scriptedStream) Current() string { return s.cur }
func (s *scriptedStream) Err() error      { return nil }
func (s *scriptedStream) Close() error    { return nil }

// scriptedEngine returns the same canned response for every request.
type scriptedEngine struct {
	fragments []string
}

func (e *scriptedEngine) Complete(_ context.Context, _ ai.Request) (string, error) {
	return strings.Join(e.fragments, ""), nil
}

func (e *scriptedEngine) Stream(_ context.Context, _ ai.Request) (ai.TokenStream, error) {
	return &scriptedStream{fragments: e.fragments}, nil
}

const testOrigin = "http://app.test"

// apiFixture wires an API with in-memory stores and a canned engine.
type apiFixture struct {
	api      *API
	users    *fakeUsers
	snippets *fakeSnippets
	chats    *fakeChats
	tokens   *auth.Tokens
	hub      *ws.Hub
}

func newAPIFixture(engine ai.Engine) *apiFixture {
	users := newFakeUsers()
	snippets := newFakeSnippets()
	chats := newFakeChats()
	tokens := auth.NewTokens("test-secret", time.Hour)
	gate := auth.NewGate(tokens, &gateDirectory{users: users})
	hub := ws.NewHub(ws.Options{
		MaxMessageSize: 64 * 1024,
		SendBuffer:     16,
		RateLimit:      100,
		RateWindow:     time.Minute,
	}, engine, chats, zerolog.Nop())

	api := New(gate, tokens, users, snippets, chats, engine, hub, []string{testOrigin}, zerolog.Nop())
	return &apiFixture{api: api, users: users, snippets: snippets, chats: chats, tokens: tokens, hub: hub}
}

// addUser registers an account directly in the store and returns it with a
// valid access token.
func (f *apiFixture) addUser(username, email, password string, active bool) (*store.User, string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	u := f.users.add(username, email, hash, active)
	token, err := f.tokens.Issue(u.ID.Hex())
	if err != nil {
		panic(err)
	}
	return u, token
}
