package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"agora/auth"
	"agora/config"
	"agora/db"
	"agora/feeds"
	"agora/models"
	"agora/moderation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct{ a, b string }

// fakeStore keeps just enough state in memory for the handlers under test
type fakeStore struct {
	db.Store
	mu          sync.Mutex
	users       map[string]models.User
	posts       map[string]models.Post
	communities map[string]models.Community
	likes       map[pair]bool
	follows     map[pair]bool
	bookmarks   map[pair]bool
	members     map[pair]bool
	comments    map[string][]models.Comment

	notifications map[string][]models.Notification
	readThreads   []pair
	lastQuery     string
	lastArgs      []interface{}
	lastPage      [2]int
	adsLimit      int
	adsCalls      int
	pingErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[string]models.User{
			"alice": {Id: "alice", Email: "alice@example.com", Username: "alice", Handle: "alice"},
			"bob":   {Id: "bob", Email: "bob@example.com", Username: "bob", Handle: "bob"},
		},
		posts: map[string]models.Post{
			"p1": {Id: "p1", Text: "hello", AuthorId: "alice"},
		},
		communities: map[string]models.Community{
			"c1": {Id: "c1", Name: "gophers"},
		},
		likes:     map[pair]bool{},
		follows:   map[pair]bool{},
		bookmarks: map[pair]bool{},
		members:   map[pair]bool{},
		comments:  map[string][]models.Comment{},
		notifications: map[string][]models.Notification{
			"alice": {
				{Id: "n1", Type: models.NotificationLike, UserId: "alice", SourceId: "bob", PostId: "p1"},
				{Id: "n2", Type: models.NotificationFollow, UserId: "alice", SourceId: "bob"},
			},
		},
	}
}

func (s *fakeStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *fakeStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username || u.Handle == user.Handle {
			return models.User{}, db.ErrAlreadyExists
		}
	}
	user.Id = "u-" + user.Handle
	s.users[user.Id] = user
	return user, nil
}

func (s *fakeStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, db.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == login || u.Username == login {
			return u, nil
		}
	}
	return models.User{}, db.ErrNotFound
}

func (s *fakeStore) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.Id = "new-post"
	s.posts[post.Id] = post
	return post, nil
}

func (s *fakeStore) GetPost(ctx context.Context, id string) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return models.Post{}, db.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, id)
	return nil
}

func (s *fakeStore) QueryPosts(ctx context.Context, query string, args []interface{}) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery, s.lastArgs = query, args
	return []models.Post{{Id: "p1", Text: "hello", AuthorId: "alice"}}, nil
}

func (s *fakeStore) RecordImpressions(ctx context.Context, postIDs []string) error { return nil }

func (s *fakeStore) LikePost(ctx context.Context, postID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		return false, db.ErrNotFound
	}
	k := pair{postID, userID}
	if s.likes[k] {
		return false, nil
	}
	s.likes[k] = true
	return true, nil
}

func (s *fakeStore) UnlikePost(ctx context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{postID, userID}
	if !s.likes[k] {
		return db.ErrNotFound
	}
	delete(s.likes, k)
	return nil
}

func (s *fakeStore) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[followingID]; !ok {
		return false, db.ErrNotFound
	}
	k := pair{followerID, followingID}
	if s.follows[k] {
		return false, nil
	}
	s.follows[k] = true
	return true, nil
}

func (s *fakeStore) Unfollow(ctx context.Context, followerID, followingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{followerID, followingID}
	if !s.follows[k] {
		return db.ErrNotFound
	}
	delete(s.follows, k)
	return nil
}

func (s *fakeStore) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.follows[pair{followerID, followingID}], nil
}

func (s *fakeStore) GetCommunity(ctx context.Context, id string) (models.Community, error) {
	c, ok := s.communities[id]
	if !ok {
		return models.Community{}, db.ErrNotFound
	}
	return c, nil
}

func (s *fakeStore) GetActiveAds(ctx context.Context, limit int) ([]models.Advertisement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adsLimit = limit
	s.adsCalls++
	return []models.Advertisement{}, nil
}

func (s *fakeStore) CreateAd(ctx context.Context, ad models.Advertisement) (models.Advertisement, error) {
	ad.Id = "ad1"
	return ad, nil
}

func (s *fakeStore) UpdateUser(ctx context.Context, id string, update models.UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, db.ErrNotFound
	}
	for _, u := range s.users {
		if u.Id == id {
			continue
		}
		if (update.Handle != nil && u.Handle == *update.Handle) || (update.Username != nil && u.Username == *update.Username) {
			return models.User{}, db.ErrAlreadyExists
		}
	}
	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.Handle != nil {
		user.Handle = *update.Handle
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	s.users[id] = user
	return user, nil
}

func (s *fakeStore) BookmarkPost(ctx context.Context, postID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		return false, db.ErrNotFound
	}
	k := pair{postID, userID}
	if s.bookmarks[k] {
		return false, nil
	}
	s.bookmarks[k] = true
	return true, nil
}

func (s *fakeStore) RemoveBookmark(ctx context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{postID, userID}
	if !s.bookmarks[k] {
		return db.ErrNotFound
	}
	delete(s.bookmarks, k)
	return nil
}

func (s *fakeStore) CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[comment.PostId]; !ok {
		return models.Comment{}, db.ErrNotFound
	}
	comment.Id = "comment-" + comment.PostId
	s.comments[comment.PostId] = append(s.comments[comment.PostId], comment)
	return comment, nil
}

func (s *fakeStore) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Comment{}, s.comments[postID]...), nil
}

func (s *fakeStore) JoinCommunity(ctx context.Context, communityID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.communities[communityID]; !ok {
		return false, db.ErrNotFound
	}
	k := pair{communityID, userID}
	if s.members[k] {
		return false, nil
	}
	s.members[k] = true
	return true, nil
}

func (s *fakeStore) LeaveCommunity(ctx context.Context, communityID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pair{communityID, userID}
	if !s.members[k] {
		return db.ErrNotFound
	}
	delete(s.members, k)
	return nil
}

func (s *fakeStore) GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPage = [2]int{page, pageSize}
	return append([]models.Notification{}, s.notifications[userID]...), nil
}

func (s *fakeStore) MarkNotificationsRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications[userID] {
		s.notifications[userID][i].Read = true
	}
	return nil
}

func (s *fakeStore) GetThread(ctx context.Context, userID, partnerID string, page, pageSize int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPage = [2]int{page, pageSize}
	return []models.Message{
		{Id: "m1", SenderId: partnerID, RecipientId: userID, Content: "hi"},
	}, nil
}

func (s *fakeStore) MarkThreadRead(ctx context.Context, userID, partnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readThreads = append(s.readThreads, pair{userID, partnerID})
	return nil
}

func (s *fakeStore) CreateMessage(ctx context.Context, message models.Message) (models.Message, error) {
	if _, err := s.GetUserByID(ctx, message.RecipientId); err != nil {
		return models.Message{}, err
	}
	message.Id = "m1"
	return message, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(event models.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return true
}

type testServer struct {
	app         *fiber.App
	store       *fakeStore
	events      *recordingPublisher
	tokens      *auth.Tokens
	broadcaster *Broadcaster
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithAdsCache(t, 0)
}

func newTestServerWithAdsCache(t *testing.T, adsCacheTTL time.Duration) *testServer {
	t.Helper()

	cfg := config.Default()
	store := newFakeStore()
	events := &recordingPublisher{}
	tokens := auth.NewTokens("test-secret", time.Hour)
	broadcaster := NewBroadcaster()

	app := Server(&ServerConfig{
		Store:       store,
		Feeds:       feeds.New(cfg, store),
		Tokens:      tokens,
		Moderator:   moderation.New(cfg.Moderation),
		Events:      events,
		Broadcaster: broadcaster,
		Ads:         cfg.Ads,
		AdsCacheTTL: adsCacheTTL,
	})

	return &testServer{app: app, store: store, events: events, tokens: tokens, broadcaster: broadcaster}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.tokens.Issue(models.User{Id: userID, Handle: userID, Username: userID})
	require.NoError(t, err)
	return token
}

// do sends a request and returns the status and decoded JSON body
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	decoded := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

// list sends an authenticated GET and decodes a JSON array response into out
func (s *testServer) list(t *testing.T, path, token string, out interface{}) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), path)
	}
	return resp.StatusCode
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/posts/for-you", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized", body["error"])

	status, _ = s.do(t, http.MethodGet, "/api/posts/for-you", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	other := auth.NewTokens("other-secret", time.Hour)
	forged, err := other.Issue(models.User{Id: "alice"})
	require.NoError(t, err)
	status, _ = s.do(t, http.MethodGet, "/api/posts/for-you", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/posts/for-you", s.token(t, "alice"), nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestSignUpAndSignIn(t *testing.T) {
	s := newTestServer(t)

	signup := map[string]string{
		"email":    "carol@example.com",
		"username": "carol",
		"handle":   "carol",
		"password": "long enough",
	}

	status, body := s.do(t, http.MethodPost, "/api/auth/signup", "", signup)
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "carol", user["handle"])
	assert.NotContains(t, user, "email")

	status, _ = s.do(t, http.MethodPost, "/api/auth/signup", "", signup)
	assert.Equal(t, http.StatusConflict, status)

	status, body = s.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"emailOrUsername": "carol@example.com",
		"password":        "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", body["error"])

	status, body = s.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"emailOrUsername": "carol",
		"password":        "long enough",
	})
	require.Equal(t, http.StatusOK, status)

	token := body["token"].(string)
	current, err := s.tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-carol", current.ID)
}

func TestSignUpValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "nope", "username": "dave", "handle": "dave", "password": "long enough"}},
		{"short handle", map[string]string{"email": "d@example.com", "username": "dave", "handle": "dv", "password": "long enough"}},
		{"handle with spaces", map[string]string{"email": "d@example.com", "username": "dave", "handle": "da ve", "password": "long enough"}},
		{"short password", map[string]string{"email": "d@example.com", "username": "dave", "handle": "dave", "password": "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := s.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestFollow(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")

	status, body := s.do(t, http.MethodPost, "/api/users/alice/follow", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Cannot follow yourself", body["error"])

	status, _ = s.do(t, http.MethodPost, "/api/users/bob/follow", alice, nil)
	assert.Equal(t, http.StatusCreated, status)

	status, body = s.do(t, http.MethodPost, "/api/users/bob/follow", alice, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Already following", body["message"])

	status, _ = s.do(t, http.MethodPost, "/api/users/nobody/follow", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)

	require.Len(t, s.events.events, 1)
	assert.Equal(t, models.FollowEvent{Follow: models.Follow{FollowerId: "alice", FollowingId: "bob"}}, s.events.events[0])

	status, body = s.do(t, http.MethodGet, "/api/users/alice/follows/bob", alice, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["isFollowing"])

	status, _ = s.do(t, http.MethodDelete, "/api/users/bob/follow", alice, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodDelete, "/api/users/bob/follow", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFollowsOnBehalfOfOthersIsForbidden(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		status, _ := s.do(t, method, "/api/users/bob/follows/alice", alice, nil)
		assert.Equal(t, http.StatusForbidden, status, method)
	}

	status, _ := s.do(t, http.MethodPost, "/api/users/alice/follows/bob", alice, nil)
	assert.Equal(t, http.StatusCreated, status)
}

func TestLikes(t *testing.T) {
	s := newTestServer(t)
	bob := s.token(t, "bob")

	status, body := s.do(t, http.MethodDelete, "/api/posts/p1/like", bob, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Like not found", body["error"])

	status, _ = s.do(t, http.MethodPost, "/api/posts/p1/like", bob, nil)
	assert.Equal(t, http.StatusCreated, status)

	status, body = s.do(t, http.MethodPost, "/api/posts/p1/like", bob, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Post already liked", body["message"])

	status, _ = s.do(t, http.MethodPost, "/api/posts/missing/like", bob, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodDelete, "/api/posts/p1/like", bob, nil)
	assert.Equal(t, http.StatusOK, status)

	require.Len(t, s.events.events, 1)
	assert.IsType(t, models.LikeEvent{}, s.events.events[0])
}

func TestCreatePost(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")

	long := make([]byte, 301)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"empty", map[string]interface{}{"text": "   "}, http.StatusBadRequest},
		{"too long", map[string]interface{}{"text": string(long)}, http.StatusBadRequest},
		{"too many images", map[string]interface{}{"text": "pics", "images": []string{"a", "b", "c", "d", "e"}}, http.StatusBadRequest},
		{"spam", map[string]interface{}{"text": "check my bio for more"}, http.StatusBadRequest},
		{"unknown community", map[string]interface{}{"text": "hello gophers", "communityId": "nope"}, http.StatusNotFound},
		{"community post", map[string]interface{}{"text": "hello gophers", "communityId": "c1"}, http.StatusCreated},
		{"plain post", map[string]interface{}{"text": "Good morning @bob"}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := s.do(t, http.MethodPost, "/api/posts", alice, tt.body)
			assert.Equal(t, tt.status, status)
		})
	}

	require.Len(t, s.events.events, 2)
	created := s.events.events[1].(models.PostCreatedEvent)
	assert.Equal(t, "alice", created.Post.AuthorId)
	assert.Equal(t, "Good morning @bob", created.Post.Text)
}

func TestDeletePost(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodDelete, "/api/posts/p1", s.token(t, "bob"), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodDelete, "/api/posts/p1", s.token(t, "alice"), nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/api/posts/p1", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFeedRoutes(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")

	for _, path := range []string{
		"/api/posts/for-you?page=2",
		"/api/posts/following",
		"/api/communities/c1/posts",
		"/api/posts",
		"/api/users/alice/posts",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+alice)
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)

		var posts []models.Post
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&posts), path)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Len(t, posts, 1, path)
	}

	status, _ := s.do(t, http.MethodGet, "/api/communities/nope/posts", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMessages(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")

	status, body := s.do(t, http.MethodPost, "/api/messages", alice, map[string]string{"recipientId": "alice", "content": "hi me"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Cannot message yourself", body["error"])

	status, _ = s.do(t, http.MethodPost, "/api/messages", alice, map[string]string{"recipientId": "nobody", "content": "hi"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, "/api/messages", alice, map[string]string{"recipientId": "bob", "content": "hi bob"})
	assert.Equal(t, http.StatusCreated, status)
	require.Len(t, s.events.events, 1)
	assert.IsType(t, models.MessageEvent{}, s.events.events[0])
}

func TestAdsLimit(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		query string
		limit int
	}{
		{"", 5},
		{"?limit=3", 3},
		{"?limit=0", 5},
		{"?limit=500", 20},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			status, _ := s.do(t, http.MethodGet, "/api/ads"+tt.query, "", nil)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.limit, s.store.adsLimit)
		})
	}
}

func TestAnalyticsRejectsUnknownBucket(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/api/analytics?time=year", s.token(t, "alice"), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid time", body["error"])
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	s.store.pingErr = errors.New("down")
	status, _ = s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, body = s.do(t, http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["error"])
}

func TestDescribeFeeds(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var views []models.FeedDescription
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	assert.Len(t, views, 2)
}

func TestBookmarks(t *testing.T) {
	s := newTestServer(t)
	bob := s.token(t, "bob")

	tests := []struct {
		name    string
		method  string
		path    string
		status  int
		message string
		err     string
	}{
		{"remove before bookmarking", http.MethodDelete, "/api/posts/p1/bookmark", http.StatusNotFound, "", "Bookmark not found"},
		{"bookmark", http.MethodPost, "/api/posts/p1/bookmark", http.StatusCreated, "Post bookmarked", ""},
		{"bookmark again", http.MethodPost, "/api/posts/p1/bookmark", http.StatusOK, "Post already bookmarked", ""},
		{"unknown post", http.MethodPost, "/api/posts/missing/bookmark", http.StatusNotFound, "", "Post not found"},
		{"remove", http.MethodDelete, "/api/posts/p1/bookmark", http.StatusOK, "Bookmark removed", ""},
		{"remove again", http.MethodDelete, "/api/posts/p1/bookmark", http.StatusNotFound, "", "Bookmark not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, tt.method, tt.path, bob, nil)
			assert.Equal(t, tt.status, status)
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
			if tt.err != "" {
				assert.Equal(t, tt.err, body["error"])
			}
		})
	}

	status, _ := s.do(t, http.MethodPost, "/api/posts/p1/bookmark", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestListBookmarks(t *testing.T) {
	s := newTestServer(t)

	var posts []models.Post
	status := s.list(t, "/api/bookmarks?page=2", s.token(t, "bob"), &posts)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, posts, 1)
	assert.Contains(t, s.store.lastQuery, "bookmarks")
	assert.Contains(t, s.store.lastArgs, "bob")

	status = s.list(t, "/api/bookmarks", "", &posts)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestComments(t *testing.T) {
	s := newTestServer(t)
	bob := s.token(t, "bob")

	tests := []struct {
		name   string
		path   string
		text   string
		status int
		err    string
	}{
		{"blank", "/api/posts/p1/comments", "   ", http.StatusBadRequest, ""},
		{"too long", "/api/posts/p1/comments", strings.Repeat("a", 301), http.StatusBadRequest, ""},
		{"unknown post", "/api/posts/missing/comments", "nice", http.StatusNotFound, "Post not found"},
		{"longest allowed", "/api/posts/p1/comments", strings.Repeat("a", 300), http.StatusCreated, ""},
		{"trimmed", "/api/posts/p1/comments", "  nice post  ", http.StatusCreated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, http.MethodPost, tt.path, bob, map[string]string{"text": tt.text})
			assert.Equal(t, tt.status, status)
			if tt.err != "" {
				assert.Equal(t, tt.err, body["error"])
			}
		})
	}

	var comments []models.Comment
	status := s.list(t, "/api/posts/p1/comments", "", &comments)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, comments, 2)
	assert.Equal(t, "nice post", comments[1].Text)
	assert.Equal(t, "bob", comments[1].AuthorId)

	require.Len(t, s.events.events, 2)
	assert.IsType(t, models.CommentEvent{}, s.events.events[0])
}

func TestUpdateMe(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")

	tests := []struct {
		name   string
		body   map[string]string
		status int
		err    string
	}{
		{"bio too long", map[string]string{"bio": strings.Repeat("b", 161)}, http.StatusBadRequest, ""},
		{"bad handle", map[string]string{"handle": "no spaces"}, http.StatusBadRequest, ""},
		{"handle taken", map[string]string{"handle": "bob"}, http.StatusConflict, "Username or handle already taken"},
		{"username taken", map[string]string{"username": "bob"}, http.StatusConflict, "Username or handle already taken"},
		{"longest bio", map[string]string{"bio": strings.Repeat("b", 160)}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, http.MethodPatch, "/api/users/me", alice, tt.body)
			assert.Equal(t, tt.status, status)
			if tt.err != "" {
				assert.Equal(t, tt.err, body["error"])
			}
		})
	}

	status, body := s.do(t, http.MethodPatch, "/api/users/me", alice, map[string]string{"handle": "alice_g", "bio": "gopher"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice_g", body["handle"])
	assert.Equal(t, "gopher", body["bio"])
	assert.NotContains(t, body, "email")
	assert.Equal(t, "alice_g", s.store.users["alice"].Handle)
}

func TestCommunityMembership(t *testing.T) {
	s := newTestServer(t)
	bob := s.token(t, "bob")

	tests := []struct {
		name    string
		method  string
		path    string
		status  int
		message string
		err     string
	}{
		{"leave before joining", http.MethodDelete, "/api/communities/c1/join", http.StatusNotFound, "", "Not a member"},
		{"join", http.MethodPost, "/api/communities/c1/join", http.StatusCreated, "Joined community", ""},
		{"join again", http.MethodPost, "/api/communities/c1/join", http.StatusOK, "Already a member", ""},
		{"unknown community", http.MethodPost, "/api/communities/nope/join", http.StatusNotFound, "", "Community not found"},
		{"leave", http.MethodDelete, "/api/communities/c1/join", http.StatusOK, "Left community", ""},
		{"leave again", http.MethodDelete, "/api/communities/c1/join", http.StatusNotFound, "", "Not a member"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, tt.method, tt.path, bob, nil)
			assert.Equal(t, tt.status, status)
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
			if tt.err != "" {
				assert.Equal(t, tt.err, body["error"])
			}
		})
	}
}

func TestNotifications(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice")

	var notifications []models.Notification
	status := s.list(t, "/api/notifications?page=3", alice, &notifications)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, notifications, 2)
	assert.False(t, notifications[0].Read)
	assert.Equal(t, [2]int{3, notificationPageSize}, s.store.lastPage)

	status, body := s.do(t, http.MethodPost, "/api/notifications/read", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Notifications marked as read", body["message"])

	status = s.list(t, "/api/notifications", alice, &notifications)
	require.Equal(t, http.StatusOK, status)
	for _, n := range notifications {
		assert.True(t, n.Read, n.Id)
	}
	assert.Equal(t, [2]int{1, notificationPageSize}, s.store.lastPage)

	status = s.list(t, "/api/notifications", "", &notifications)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestThreadMarksMessagesRead(t *testing.T) {
	s := newTestServer(t)

	var messages []models.Message
	status := s.list(t, "/api/messages/bob?page=2", s.token(t, "alice"), &messages)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, messages, 1)
	assert.Equal(t, "bob", messages[0].SenderId)
	assert.Equal(t, [2]int{2, messagePageSize}, s.store.lastPage)
	assert.Equal(t, []pair{{"alice", "bob"}}, s.store.readThreads)
}

func TestCloseNotificationStream(t *testing.T) {
	s := newTestServer(t)
	s.broadcaster.AddClient("alice-key", "alice", make(chan models.Notification, 1))

	tests := []struct {
		name   string
		user   string
		key    string
		status int
		err    string
	}{
		{"someone else's stream", "bob", "alice-key", http.StatusNotFound, "Stream not found"},
		{"unknown key", "alice", "other-key", http.StatusNotFound, "Stream not found"},
		{"own stream", "alice", "alice-key", http.StatusOK, ""},
		{"already closed", "alice", "alice-key", http.StatusNotFound, "Stream not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, http.MethodDelete, "/api/notifications/sse?key="+tt.key, s.token(t, tt.user), nil)
			assert.Equal(t, tt.status, status)
			if tt.err != "" {
				assert.Equal(t, tt.err, body["error"])
			}
		})
	}

	assert.Equal(t, 0, s.broadcaster.Count())
}

func TestAdsCacheSkipsSignedInCallers(t *testing.T) {
	s := newTestServerWithAdsCache(t, time.Minute)
	alice := s.token(t, "alice")

	for i := 0; i < 2; i++ {
		status, _ := s.do(t, http.MethodGet, "/api/ads", "", nil)
		require.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, 1, s.store.adsCalls)

	status, _ := s.do(t, http.MethodPost, "/api/ads", alice, map[string]string{"title": "Gophers", "content": "Buy one"})
	require.Equal(t, http.StatusCreated, status)

	for i := 0; i < 2; i++ {
		status, _ := s.do(t, http.MethodGet, "/api/ads", alice, nil)
		require.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, 3, s.store.adsCalls)
}
