package api

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"

	"github.com/cristhian-fs/slack-clone/internal/auth"
	"github.com/cristhian-fs/slack-clone/internal/database"
	"github.com/cristhian-fs/slack-clone/internal/models"
	redisclient "github.com/cristhian-fs/slack-clone/internal/redis"
	"github.com/cristhian-fs/slack-clone/internal/snowflake"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestContext(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func setAuthUser(c echo.Context, userID int64) {
	auth.SetUserID(c, userID)
}

func testSnowflake() *snowflake.Generator {
	sf, _ := snowflake.NewGenerator(1)
	return sf
}

func newTestRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := redisclient.NewClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("creating test redis client: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

// ---------------------------------------------------------------------------
// Mock gateway dispatcher
// ---------------------------------------------------------------------------

type dispatchedEvent struct {
	WorkspaceID int64
	UserID      int64
	Event       string
	Data        any
}

type mockGateway struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (m *mockGateway) DispatchToWorkspace(workspaceID int64, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{WorkspaceID: workspaceID, Event: event, Data: data})
}

func (m *mockGateway) DispatchToUser(userID int64, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{UserID: userID, Event: event, Data: data})
}

func (m *mockGateway) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Event
	}
	return out
}

// ---------------------------------------------------------------------------
// Mock repositories
// ---------------------------------------------------------------------------

// mockChannelRepo implements database.ChannelRepository.
type mockChannelRepo struct {
	CreateFn    func(ctx context.Context, channel *models.Channel) error
	GetByIDFn   func(ctx context.Context, id int64) (*models.Channel, error)
	GetByNameFn func(ctx context.Context, workspaceID int64, name string) (*models.Channel, error)
	DeleteFn    func(ctx context.Context, id int64) error
}

func (m *mockChannelRepo) Create(ctx context.Context, channel *models.Channel) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, channel)
	}
	return nil
}

func (m *mockChannelRepo) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockChannelRepo) GetByName(ctx context.Context, workspaceID int64, name string) (*models.Channel, error) {
	if m.GetByNameFn != nil {
		return m.GetByNameFn(ctx, workspaceID, name)
	}
	return nil, nil
}

func (m *mockChannelRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// mockConversationRepo implements database.ConversationRepository.
type mockConversationRepo struct {
	GetByIDFn      func(ctx context.Context, id int64) (*models.Conversation, error)
	GetOrCreateFn  func(ctx context.Context, workspaceID, memberA, memberB, newID int64) (*models.Conversation, error)
	ListByMemberFn func(ctx context.Context, memberID int64) ([]models.Conversation, error)
}

func (m *mockConversationRepo) GetByID(ctx context.Context, id int64) (*models.Conversation, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockConversationRepo) GetOrCreate(ctx context.Context, workspaceID, memberA, memberB, newID int64) (*models.Conversation, error) {
	if m.GetOrCreateFn != nil {
		return m.GetOrCreateFn(ctx, workspaceID, memberA, memberB, newID)
	}
	return nil, nil
}

func (m *mockConversationRepo) ListByMember(ctx context.Context, memberID int64) ([]models.Conversation, error) {
	if m.ListByMemberFn != nil {
		return m.ListByMemberFn(ctx, memberID)
	}
	return nil, nil
}

// mockMemberRepo implements database.MemberRepository.
type mockMemberRepo struct {
	CreateFn                func(ctx context.Context, member *models.Member) error
	GetByIDFn               func(ctx context.Context, id int64) (*models.Member, error)
	GetByWorkspaceAndUserFn func(ctx context.Context, workspaceID, userID int64) (*models.Member, error)
	GetWorkspaceIDsByUserFn func(ctx context.Context, userID int64) ([]int64, error)
	DeleteFn                func(ctx context.Context, id int64) error
}

func (m *mockMemberRepo) Create(ctx context.Context, member *models.Member) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, member)
	}
	return nil
}

func (m *mockMemberRepo) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMemberRepo) GetByWorkspaceAndUser(ctx context.Context, workspaceID, userID int64) (*models.Member, error) {
	if m.GetByWorkspaceAndUserFn != nil {
		return m.GetByWorkspaceAndUserFn(ctx, workspaceID, userID)
	}
	return nil, nil
}

func (m *mockMemberRepo) GetWorkspaceIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	if m.GetWorkspaceIDsByUserFn != nil {
		return m.GetWorkspaceIDsByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockMemberRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// mockMessageRepo implements database.MessageRepository.
type mockMessageRepo struct {
	CreateFn  func(ctx context.Context, msg *models.Message) error
	GetByIDFn func(ctx context.Context, id int64) (*models.MessageWithAuthor, error)
	ListFn    func(ctx context.Context, q database.MessageQuery) ([]models.MessageWithAuthor, error)
	UpdateFn  func(ctx context.Context, msg *models.Message) error
	DeleteFn  func(ctx context.Context, id int64) error
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id int64) (*models.MessageWithAuthor, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMessageRepo) List(ctx context.Context, q database.MessageQuery) ([]models.MessageWithAuthor, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, q)
	}
	return nil, nil
}

func (m *mockMessageRepo) Update(ctx context.Context, msg *models.Message) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// mockReactionRepo implements database.ReactionRepository.
type mockReactionRepo struct {
	AddFn              func(ctx context.Context, reaction *models.Reaction) error
	RemoveFn           func(ctx context.Context, messageID, memberID int64, emoji string) error
	ExistsFn           func(ctx context.Context, messageID, memberID int64, emoji string) (bool, error)
	GroupsByMessagesFn func(ctx context.Context, messageIDs []int64) (map[int64][]models.ReactionGroup, error)
}

func (m *mockReactionRepo) Add(ctx context.Context, reaction *models.Reaction) error {
	if m.AddFn != nil {
		return m.AddFn(ctx, reaction)
	}
	return nil
}

func (m *mockReactionRepo) Remove(ctx context.Context, messageID, memberID int64, emoji string) error {
	if m.RemoveFn != nil {
		return m.RemoveFn(ctx, messageID, memberID, emoji)
	}
	return nil
}

func (m *mockReactionRepo) Exists(ctx context.Context, messageID, memberID int64, emoji string) (bool, error) {
	if m.ExistsFn != nil {
		return m.ExistsFn(ctx, messageID, memberID, emoji)
	}
	return false, nil
}

func (m *mockReactionRepo) GroupsByMessages(ctx context.Context, messageIDs []int64) (map[int64][]models.ReactionGroup, error) {
	if m.GroupsByMessagesFn != nil {
		return m.GroupsByMessagesFn(ctx, messageIDs)
	}
	return map[int64][]models.ReactionGroup{}, nil
}

// mockUploadRepo implements database.UploadRepository.
type mockUploadRepo struct {
	CreateFn         func(ctx context.Context, upload *models.Upload) error
	GetByStorageIDFn func(ctx context.Context, storageID string) (*models.Upload, error)
}

func (m *mockUploadRepo) Create(ctx context.Context, upload *models.Upload) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, upload)
	}
	return nil
}

func (m *mockUploadRepo) GetByStorageID(ctx context.Context, storageID string) (*models.Upload, error) {
	if m.GetByStorageIDFn != nil {
		return m.GetByStorageIDFn(ctx, storageID)
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// Mock object storage
// ---------------------------------------------------------------------------

type storedObject struct {
	data        []byte
	contentType string
}

// mockStorage implements service.FileStorage in memory.
type mockStorage struct {
	mu      sync.Mutex
	objects map[string]storedObject
	PutErr  error
}

func newMockStorage() *mockStorage {
	return &mockStorage{objects: make(map[string]storedObject)}
}

func (m *mockStorage) Put(_ context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = storedObject{data: data, contentType: contentType}
	return nil
}

func (m *mockStorage) URL(key string) string {
	return "http://minio.test/attachments/" + key
}

func (m *mockStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *mockStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// ---------------------------------------------------------------------------
// Shared fixtures
// ---------------------------------------------------------------------------

const (
	testWorkspaceID int64 = 1000
	testChannelID   int64 = 2000
	testUserID      int64 = 3000
	testMemberID    int64 = 4000
	testMsgID       int64 = 5000
	testOtherUserID int64 = 3001

	testOtherMemberID   int64 = 4001
	testThirdUserID     int64 = 3002
	testThirdMemberID   int64 = 4002
	testConversationID  int64 = 6000
	testOtherWorkspace  int64 = 1001
	testForeignMemberID int64 = 4100
)

// channelMock returns a channel repo that knows only testChannelID.
func channelMock() *mockChannelRepo {
	return &mockChannelRepo{
		GetByIDFn: func(_ context.Context, id int64) (*models.Channel, error) {
			if id != testChannelID {
				return nil, nil
			}
			return &models.Channel{ID: testChannelID, WorkspaceID: testWorkspaceID, Name: "general"}, nil
		},
	}
}

// testConversation is the conversation between testUserID and
// testOtherUserID.
func testConversation() *models.Conversation {
	return &models.Conversation{
		ID:          testConversationID,
		WorkspaceID: testWorkspaceID,
		MemberOneID: testMemberID,
		MemberTwoID: testOtherMemberID,
		UserOneID:   testUserID,
		UserTwoID:   testOtherUserID,
		CreatedAt:   time.Now(),
	}
}

// conversationMock returns a conversation repo that knows only
// testConversationID.
func conversationMock() *mockConversationRepo {
	return &mockConversationRepo{
		GetByIDFn: func(_ context.Context, id int64) (*models.Conversation, error) {
			if id != testConversationID {
				return nil, nil
			}
			return testConversation(), nil
		},
	}
}

// workspaceMembers returns a member repo for a workspace of three users:
// testUserID, testOtherUserID and testThirdUserID. testForeignMemberID
// belongs to another workspace.
func workspaceMembers() *mockMemberRepo {
	members := []*models.Member{
		{ID: testMemberID, WorkspaceID: testWorkspaceID, UserID: testUserID, Role: models.RoleMember},
		{ID: testOtherMemberID, WorkspaceID: testWorkspaceID, UserID: testOtherUserID, Role: models.RoleMember},
		{ID: testThirdMemberID, WorkspaceID: testWorkspaceID, UserID: testThirdUserID, Role: models.RoleAdmin},
		{ID: testForeignMemberID, WorkspaceID: testOtherWorkspace, UserID: testThirdUserID, Role: models.RoleMember},
	}
	return &mockMemberRepo{
		GetByIDFn: func(_ context.Context, id int64) (*models.Member, error) {
			for _, m := range members {
				if m.ID == id {
					cp := *m
					return &cp, nil
				}
			}
			return nil, nil
		},
		GetByWorkspaceAndUserFn: func(_ context.Context, workspaceID, userID int64) (*models.Member, error) {
			for _, m := range members {
				if m.WorkspaceID == workspaceID && m.UserID == userID {
					cp := *m
					return &cp, nil
				}
			}
			return nil, nil
		},
	}
}

// memberMock returns a member repo where only testUserID belongs to the
// workspace, with the given role.
func memberMock(role models.MemberRole) *mockMemberRepo {
	return &mockMemberRepo{
		GetByWorkspaceAndUserFn: func(_ context.Context, workspaceID, userID int64) (*models.Member, error) {
			if workspaceID != testWorkspaceID || userID != testUserID {
				return nil, nil
			}
			return &models.Member{
				ID: testMemberID, WorkspaceID: workspaceID, UserID: userID, Role: role, JoinedAt: time.Now(),
			}, nil
		},
	}
}

// testMessage builds a message in testChannelID authored by memberID.
func testMessage(id, memberID int64, parentID *int64, createdAt time.Time) *models.MessageWithAuthor {
	return &models.MessageWithAuthor{
		Message: models.Message{
			ID:              id,
			WorkspaceID:     testWorkspaceID,
			ChannelID:       testChannelID,
			ParentMessageID: parentID,
			MemberID:        memberID,
			Body:            `{"ops":[{"insert":"hello\n"}]}`,
			CreatedAt:       createdAt,
		},
		AuthorName: "ana",
	}
}

// messageStore returns a message repo backed by msgs, keyed by id.
func messageStore(msgs ...*models.MessageWithAuthor) *mockMessageRepo {
	byID := make(map[int64]*models.MessageWithAuthor, len(msgs))
	for _, m := range msgs {
		byID[m.ID] = m
	}
	return &mockMessageRepo{
		GetByIDFn: func(_ context.Context, id int64) (*models.MessageWithAuthor, error) {
			m, ok := byID[id]
			if !ok {
				return nil, nil
			}
			cp := *m
			return &cp, nil
		},
	}
}
