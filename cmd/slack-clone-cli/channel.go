package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/cristhian-fs/slack-clone/internal/client"
	"github.com/cristhian-fs/slack-clone/internal/thread"
)

func runChannel(channelArg string, follow bool) int {
	channelID, err := strconv.ParseInt(channelArg, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid channel id %q\n", channelArg)
		return 1
	}
	loc, ok := threadLocation()
	if !ok {
		return 1
	}

	c := client.New(envOr("SERVER_URL", "http://localhost:8080"), requireEnv("API_TOKEN"))

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan bool, 1)
	lookupErr := make(chan error, 1)
	go func() {
		defer close(found)
		channel, err := c.GetChannel(ctx, channelID)
		if err != nil {
			lookupErr <- err
			cancel()
			return
		}
		found <- channel != nil
	}()

	code := watch(ctx, cancel, c, listing{
		query:    client.Query{ChannelID: channelID},
		follow:   follow,
		loc:      loc,
		notFound: "channel not found",
		options:  []thread.Option{thread.WithAnchor(found)},
	})

	select {
	case err := <-lookupErr:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	default:
	}
	return code
}

func runConversation(workspaceArg, memberArg string, follow bool) int {
	workspaceID, err := strconv.ParseInt(workspaceArg, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid workspace id %q\n", workspaceArg)
		return 1
	}
	memberID, err := strconv.ParseInt(memberArg, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid member id %q\n", memberArg)
		return 1
	}
	loc, ok := threadLocation()
	if !ok {
		return 1
	}

	c := client.New(envOr("SERVER_URL", "http://localhost:8080"), requireEnv("API_TOKEN"))

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conv, err := c.OpenConversation(ctx, workspaceID, memberID)
	if errors.Is(err, client.ErrNotFound) {
		fmt.Fprintln(os.Stderr, "error: conversation not found")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return watch(ctx, cancel, c, listing{
		query:    client.Query{ConversationID: conv.ID},
		follow:   follow,
		loc:      loc,
		notFound: "conversation not found",
	})
}
