package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cristhian-fs/slack-clone/internal/auth"
	"github.com/cristhian-fs/slack-clone/internal/database"
	"github.com/cristhian-fs/slack-clone/internal/models"
	"github.com/cristhian-fs/slack-clone/internal/snowflake"
)

// delta wraps plain text in the rich-text document format the editor emits.
func delta(text string) string {
	return fmt.Sprintf(`{"ops":[{"insert":%q}]}`, text+"\n")
}

func runSeed() int {
	dbURL := requireEnv("DATABASE_URL")
	ctx := context.Background()

	fmt.Println("connecting to database...")
	pool, err := database.NewPostgresPool(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: database connection failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	sf, err := snowflake.NewGenerator(0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: snowflake init failed: %v\n", err)
		return 1
	}

	users := database.NewUserRepository(pool)
	workspaces := database.NewWorkspaceRepository(pool)
	members := database.NewMemberRepository(pool)
	channels := database.NewChannelRepository(pool)
	messages := database.NewMessageRepository(pool)
	conversations := database.NewConversationRepository(pool)

	now := time.Now().Truncate(time.Minute)
	yesterday := now.Add(-24 * time.Hour)

	// Users.
	fmt.Println("creating users...")
	alice := &models.User{ID: sf.Generate().Int64(), Name: "Alice", Email: "alice@example.com", CreatedAt: now}
	bob := &models.User{ID: sf.Generate().Int64(), Name: "Bob", Email: "bob@example.com", CreatedAt: now}
	for _, u := range []*models.User{alice, bob} {
		if err := users.Upsert(ctx, u); err != nil {
			fmt.Fprintf(os.Stderr, "error: creating user %s: %v\n", u.Name, err)
			return 1
		}
	}

	// Workspace.
	fmt.Println("creating workspace...")
	ws := &models.Workspace{ID: sf.Generate().Int64(), Name: "Demo Workspace", OwnerID: alice.ID, CreatedAt: now}
	if err := workspaces.Create(ctx, ws); err != nil {
		fmt.Fprintf(os.Stderr, "error: creating workspace: %v\n", err)
		return 1
	}

	// Members.
	fmt.Println("creating members...")
	aliceMember := &models.Member{ID: sf.Generate().Int64(), WorkspaceID: ws.ID, UserID: alice.ID, Role: models.RoleAdmin, JoinedAt: now}
	bobMember := &models.Member{ID: sf.Generate().Int64(), WorkspaceID: ws.ID, UserID: bob.ID, Role: models.RoleMember, JoinedAt: now}
	for _, m := range []*models.Member{aliceMember, bobMember} {
		if err := members.Create(ctx, m); err != nil {
			fmt.Fprintf(os.Stderr, "error: creating member: %v\n", err)
			return 1
		}
	}

	// Channel.
	fmt.Println("creating channel...")
	general := &models.Channel{ID: sf.Generate().Int64(), WorkspaceID: ws.ID, Name: "general", CreatedAt: now}
	if err := channels.Create(ctx, general); err != nil {
		fmt.Fprintf(os.Stderr, "error: creating channel: %v\n", err)
		return 1
	}

	// Messages. Replies are created in timestamp order so ids stay sortable.
	fmt.Println("creating messages...")
	root := &models.Message{
		ID: sf.Generate().Int64(), WorkspaceID: ws.ID, ChannelID: general.ID,
		MemberID: aliceMember.ID, Body: delta("Welcome to the Demo Workspace!"), CreatedAt: yesterday,
	}
	if err := messages.Create(ctx, root); err != nil {
		fmt.Fprintf(os.Stderr, "error: creating message: %v\n", err)
		return 1
	}

	replies := []struct {
		member *models.Member
		at     time.Time
		text   string
	}{
		{bobMember, yesterday.Add(10 * time.Minute), "Hey Alice, glad to be here!"},
		{bobMember, yesterday.Add(12 * time.Minute), "Is there a channel for off-topic?"},
		{aliceMember, yesterday.Add(40 * time.Minute), "Not yet, this one will do."},
		{aliceMember, now.Add(-time.Hour), "Morning! Any news?"},
		{bobMember, now.Add(-30 * time.Minute), "All quiet here."},
	}
	parentID := root.ID
	for _, r := range replies {
		reply := &models.Message{
			ID: sf.Generate().Int64(), WorkspaceID: ws.ID, ChannelID: general.ID, ParentMessageID: &parentID,
			MemberID: r.member.ID, Body: delta(r.text), CreatedAt: r.at,
		}
		if err := messages.Create(ctx, reply); err != nil {
			fmt.Fprintf(os.Stderr, "error: creating reply: %v\n", err)
			return 1
		}
	}

	// Direct conversation.
	fmt.Println("creating conversation...")
	dm, err := conversations.GetOrCreate(ctx, ws.ID, aliceMember.ID, bobMember.ID, sf.Generate().Int64())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: creating conversation: %v\n", err)
		return 1
	}
	note := &models.Message{
		ID: sf.Generate().Int64(), WorkspaceID: ws.ID, ConversationID: dm.ID,
		MemberID: bobMember.ID, Body: delta("Thanks for the invite!"), CreatedAt: now.Add(-20 * time.Minute),
	}
	if err := messages.Create(ctx, note); err != nil {
		fmt.Fprintf(os.Stderr, "error: creating direct message: %v\n", err)
		return 1
	}

	fmt.Println()
	fmt.Println("seed complete:")
	fmt.Printf("  users:     alice (%d), bob (%d)\n", alice.ID, bob.ID)
	fmt.Printf("  workspace: Demo Workspace (%d, owner: alice)\n", ws.ID)
	fmt.Printf("  channel:   #general (%d)\n", general.ID)
	fmt.Printf("  thread:    message %d with %d replies\n", root.ID, len(replies))
	fmt.Printf("  dm:        alice (member %d) and bob (member %d), conversation %d\n", aliceMember.ID, bobMember.ID, dm.ID)

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		tokens := auth.NewTokenService(secret, auth.WithAccessExpiry(24*time.Hour), auth.WithIssuer(os.Getenv("JWT_ISSUER")))
		fmt.Println()
		fmt.Println("access tokens (valid 24h):")
		for _, u := range []*models.User{alice, bob} {
			token, err := tokens.GenerateAccessToken(u.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: minting token: %v\n", err)
				return 1
			}
			fmt.Printf("  %s: %s\n", u.Name, token)
		}
		fmt.Println()
		fmt.Printf("try: API_TOKEN=<token> slack-clone-cli thread %d %d\n", general.ID, root.ID)
		fmt.Printf("     API_TOKEN=<alice token> slack-clone-cli dm %d %d\n", ws.ID, bobMember.ID)
	}
	return 0
}
