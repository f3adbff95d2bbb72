package database

import (
	"context"
	"testing"
	"time"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

func TestMessageRepo_GetByID(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	repo := NewMessageRepository(pool)
	ctx := context.Background()

	msg := createTestMessage(t, repo, f, nil, time.Now())

	got, err := repo.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil after Create")
	}
	if got.Body != msg.Body {
		t.Errorf("Body = %q, want %q", got.Body, msg.Body)
	}
	if got.AuthorName != f.user.Name {
		t.Errorf("AuthorName = %q, want %q", got.AuthorName, f.user.Name)
	}
	if got.Thread != nil {
		t.Errorf("Thread = %+v, want nil", got.Thread)
	}

	missing, err := repo.GetByID(ctx, 999999999)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil, got %+v", missing)
	}
}

func TestMessageRepo_ThreadSummary(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	repo := NewMessageRepository(pool)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	root := createTestMessage(t, repo, f, nil, base)
	createTestMessage(t, repo, f, &root.ID, base.Add(time.Minute))
	last := createTestMessage(t, repo, f, &root.ID, base.Add(2*time.Minute))

	got, err := repo.GetByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	summary, ok := got.Summary()
	if !ok {
		t.Fatal("expected a thread summary")
	}
	if summary.Count != 2 {
		t.Errorf("Count = %d, want 2", summary.Count)
	}
	if !summary.LastReplyAt.Equal(last.CreatedAt) {
		t.Errorf("LastReplyAt = %v, want %v", summary.LastReplyAt, last.CreatedAt)
	}
	if summary.LastName != f.user.Name {
		t.Errorf("LastName = %q, want %q", summary.LastName, f.user.Name)
	}
}

func TestMessageRepo_List(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	repo := NewMessageRepository(pool)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var top []int64
	for i := 0; i < 3; i++ {
		m := createTestMessage(t, repo, f, nil, base.Add(time.Duration(i)*time.Minute))
		top = append(top, m.ID)
	}
	reply := createTestMessage(t, repo, f, &top[0], base.Add(10*time.Minute))

	page, err := repo.List(ctx, MessageQuery{ChannelID: f.channel.ID, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 || page[0].ID != top[2] || page[1].ID != top[1] {
		t.Fatalf("first page = %v, want [%d %d]", messageIDs(page), top[2], top[1])
	}

	page, err = repo.List(ctx, MessageQuery{ChannelID: f.channel.ID, Before: &page[1].ID, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 1 || page[0].ID != top[0] {
		t.Fatalf("second page = %v, want [%d]", messageIDs(page), top[0])
	}

	replies, err := repo.List(ctx, MessageQuery{ChannelID: f.channel.ID, ParentID: &top[0], Limit: 10})
	if err != nil {
		t.Fatalf("List replies: %v", err)
	}
	if len(replies) != 1 || replies[0].ID != reply.ID {
		t.Fatalf("replies = %v, want [%d]", messageIDs(replies), reply.ID)
	}
}

func TestMessageRepo_UpdateAndCascade(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	repo := NewMessageRepository(pool)
	ctx := context.Background()

	root := createTestMessage(t, repo, f, nil, time.Now())
	reply := createTestMessage(t, repo, f, &root.ID, time.Now())

	edited := time.Now().Truncate(time.Microsecond)
	root.Body = `{"ops":[{"insert":"edited\n"}]}`
	root.UpdatedAt = &edited
	if err := repo.Update(ctx, root); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.GetByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Body != root.Body || got.UpdatedAt == nil {
		t.Errorf("after update got body %q updated_at %v", got.Body, got.UpdatedAt)
	}

	if err := repo.Delete(ctx, root.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gone, err := repo.GetByID(ctx, reply.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gone != nil {
		t.Error("reply survived deletion of its parent")
	}
}

func TestReactionRepo_Groups(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	messages := NewMessageRepository(pool)
	repo := NewReactionRepository(pool)
	ctx := context.Background()

	msg := createTestMessage(t, messages, f, nil, time.Now())
	other := createTestMember(t, NewMemberRepository(pool), f.workspace.ID, createTestUser(t, NewUserRepository(pool)).ID, models.RoleMember)

	for _, r := range []models.Reaction{
		{MessageID: msg.ID, MemberID: f.member.ID, WorkspaceID: f.workspace.ID, Emoji: "👍", CreatedAt: time.Now()},
		{MessageID: msg.ID, MemberID: other.ID, WorkspaceID: f.workspace.ID, Emoji: "👍", CreatedAt: time.Now()},
		{MessageID: msg.ID, MemberID: other.ID, WorkspaceID: f.workspace.ID, Emoji: "🎉", CreatedAt: time.Now()},
	} {
		r := r
		if err := repo.Add(ctx, &r); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	groups, err := repo.GroupsByMessages(ctx, []int64{msg.ID})
	if err != nil {
		t.Fatalf("GroupsByMessages: %v", err)
	}
	got := groups[msg.ID]
	if len(got) != 2 {
		t.Fatalf("groups = %+v, want 2", got)
	}
	if got[0].Emoji != "👍" || got[0].Count != 2 || !got[0].Has(other.ID) {
		t.Errorf("first group = %+v", got[0])
	}

	if err := repo.Remove(ctx, msg.ID, other.ID, "🎉"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	exists, err := repo.Exists(ctx, msg.ID, other.ID, "🎉")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("reaction still exists after Remove")
	}
}

func TestUploadRepo_RoundTrip(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	repo := NewUploadRepository(pool)
	ctx := context.Background()

	u := &models.Upload{
		StorageID:   "test-" + time.Now().Format("150405.000000"),
		UploaderID:  f.user.ID,
		ContentType: "image/png",
		Size:        3,
		StorageKey:  "uploads/test.png",
		CreatedAt:   time.Now().Truncate(time.Microsecond),
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _, _ = pool.Exec(ctx, `DELETE FROM uploads WHERE storage_id = $1`, u.StorageID) })

	got, err := repo.GetByStorageID(ctx, u.StorageID)
	if err != nil {
		t.Fatalf("GetByStorageID: %v", err)
	}
	if got == nil || got.StorageKey != u.StorageKey {
		t.Fatalf("upload = %+v, want key %q", got, u.StorageKey)
	}
}

func messageIDs(ms []models.MessageWithAuthor) []int64 {
	out := make([]int64, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}
