package database

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

// testPool returns a pgxpool.Pool connected to the test database.
// It skips the test if DATABASE_URL is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	pool, err := NewPostgresPool(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// testIDCounter provides unique IDs across all tests in the package.
// Starts well above zero to avoid conflicts with any existing data.
var testIDCounter int64 = 100000

func nextID() int64 {
	return atomic.AddInt64(&testIDCounter, 1)
}

// fixture is a user who is a member of a workspace with one channel.
type fixture struct {
	user      *models.User
	workspace *models.Workspace
	member    *models.Member
	channel   *models.Channel
}

func newFixture(t *testing.T, pool *pgxpool.Pool) fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Truncate(time.Microsecond)

	f := fixture{}
	f.user = createTestUser(t, NewUserRepository(pool))

	f.workspace = &models.Workspace{ID: nextID(), Name: "acme", OwnerID: f.user.ID, CreatedAt: now}
	workspaces := NewWorkspaceRepository(pool)
	if err := workspaces.Create(ctx, f.workspace); err != nil {
		t.Fatalf("creating workspace: %v", err)
	}
	t.Cleanup(func() { _ = workspaces.Delete(ctx, f.workspace.ID) })

	f.member = createTestMember(t, NewMemberRepository(pool), f.workspace.ID, f.user.ID, models.RoleAdmin)

	f.channel = &models.Channel{ID: nextID(), WorkspaceID: f.workspace.ID, Name: "general", CreatedAt: now}
	channels := NewChannelRepository(pool)
	if err := channels.Create(ctx, f.channel); err != nil {
		t.Fatalf("creating channel: %v", err)
	}
	t.Cleanup(func() { _ = channels.Delete(ctx, f.channel.ID) })
	return f
}

func createTestUser(t *testing.T, repo UserRepository) *models.User {
	t.Helper()
	ctx := context.Background()
	id := nextID()
	u := &models.User{
		ID:        id,
		Name:      fmt.Sprintf("user%d", id),
		Email:     fmt.Sprintf("user%d@example.com", id),
		CreatedAt: time.Now().Truncate(time.Microsecond),
	}
	if err := repo.Upsert(ctx, u); err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, u.ID) })
	return u
}

func createTestMember(t *testing.T, repo MemberRepository, workspaceID, userID int64, role models.MemberRole) *models.Member {
	t.Helper()
	ctx := context.Background()
	m := &models.Member{
		ID:          nextID(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    time.Now().Truncate(time.Microsecond),
	}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("creating test member: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, m.ID) })
	return m
}

func createTestMessage(t *testing.T, repo MessageRepository, f fixture, parentID *int64, createdAt time.Time) *models.Message {
	t.Helper()
	ctx := context.Background()
	m := &models.Message{
		ID:              nextID(),
		WorkspaceID:     f.workspace.ID,
		ChannelID:       f.channel.ID,
		ParentMessageID: parentID,
		MemberID:        f.member.ID,
		Body:            `{"ops":[{"insert":"hello\n"}]}`,
		CreatedAt:       createdAt.Truncate(time.Microsecond),
	}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("creating test message: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, m.ID) })
	return m
}
