package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cristhian-fs/slack-clone/internal/client"
	"github.com/cristhian-fs/slack-clone/internal/models"
	"github.com/cristhian-fs/slack-clone/internal/thread"
)

// maxStalledLoads bounds retries of a page that keeps failing.
const maxStalledLoads = 3

func runThread(channelArg, messageArg string, follow bool) int {
	channelID, err := strconv.ParseInt(channelArg, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid channel id %q\n", channelArg)
		return 1
	}
	messageID, err := strconv.ParseInt(messageArg, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid message id %q\n", messageArg)
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

	roots := make(chan *models.MessageWithAuthor, 1)
	rootErr := make(chan error, 1)
	go func() {
		defer close(roots)
		root, err := c.GetMessage(ctx, messageID)
		if err != nil {
			rootErr <- err
			cancel()
			return
		}
		if root != nil {
			roots <- root
		}
	}()

	code := watch(ctx, cancel, c, listing{
		query:    client.Query{ChannelID: channelID, ParentMessageID: &messageID},
		follow:   follow,
		loc:      loc,
		notFound: "thread not found",
		options:  []thread.Option{thread.WithRoot(roots)},
	})

	select {
	case err := <-rootErr:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	default:
	}
	return code
}

// threadLocation reads THREAD_TZ, defaulting to the local zone.
func threadLocation() (*time.Location, bool) {
	tz := os.Getenv("THREAD_TZ")
	if tz == "" {
		return time.Local, true
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid THREAD_TZ: %v\n", err)
		return nil, false
	}
	return loc, true
}

// listing describes one message list printed by watch.
type listing struct {
	query    client.Query
	follow   bool
	loc      *time.Location
	notFound string
	options  []thread.Option
}

// watch loads every page of a message list and prints it, then keeps
// reprinting it on change when following. It returns the process exit code.
func watch(ctx context.Context, cancel context.CancelFunc, c *client.Client, l listing) int {
	var subOpts []client.SubscribeOption
	if l.follow {
		stream, err := c.Connect(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		defer stream.Close()
		subOpts = append(subOpts, client.WithEvents(stream.Events()))
	}

	sub := c.Subscribe(ctx, l.query, subOpts...)
	model := thread.NewModel(sub, append([]thread.Option{thread.WithLocation(l.loc)}, l.options...)...)

	code := 0
	loaded, stalled := -1, 0
	err := model.Run(ctx, func(v thread.View) {
		switch v.State {
		case thread.StateLoading:
			return
		case thread.StateNotFound:
			fmt.Fprintf(os.Stderr, "error: %s\n", l.notFound)
			code = 1
			cancel()
			return
		}

		// Act as a reader scrolled to the end of the list.
		if v.CanLoadMore {
			if n := countEntries(v); n == loaded {
				stalled++
			} else {
				loaded, stalled = n, 0
			}
			if stalled < maxStalledLoads {
				model.Intersect(true)
				return
			}
			fmt.Fprintln(os.Stderr, "warning: could not load older messages")
		}
		if v.LoadingMore {
			return
		}

		renderThread(os.Stdout, v, time.Now(), l.loc)
		if !l.follow {
			cancel()
			return
		}
		fmt.Println("--- waiting for updates (ctrl-c to quit) ---")
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return code
}

func countEntries(v thread.View) int {
	n := 0
	for _, g := range v.Groups {
		n += len(g.Entries)
	}
	return n
}

// renderThread prints the root message, if any, followed by the list, newest
// day first and oldest message first within a day.
func renderThread(w io.Writer, v thread.View, now time.Time, loc *time.Location) {
	if v.Root != nil {
		renderHeader(w, v.Root, now, loc)
		renderBody(w, v.Root)
		if s, ok := v.Root.Summary(); ok {
			fmt.Fprintf(w, "  %s, last %s\n", pluralReplies(s.Count), humanize.RelTime(s.LastReplyAt, now, "ago", "from now"))
		}
		fmt.Fprintln(w)
	}

	if len(v.Groups) == 0 {
		if v.Root != nil {
			fmt.Fprintln(w, "  (no replies)")
		} else {
			fmt.Fprintln(w, "  (no messages)")
		}
		return
	}
	for _, g := range v.Labeled(now) {
		fmt.Fprintf(w, "──── %s ────\n", g.Label)
		for _, e := range g.Entries {
			if !e.Compact {
				renderHeader(w, &e.Message, now, loc)
			}
			renderBody(w, &e.Message)
		}
	}
}

func renderHeader(w io.Writer, m *models.MessageWithAuthor, now time.Time, loc *time.Location) {
	fmt.Fprintf(w, "%s  %s (%s)", m.AuthorName, m.CreatedAt.In(loc).Format("15:04"), humanize.RelTime(m.CreatedAt, now, "ago", "from now"))
	if m.UpdatedAt != nil {
		fmt.Fprint(w, "  (edited)")
	}
	fmt.Fprintln(w)
}

func renderBody(w io.Writer, m *models.MessageWithAuthor) {
	for _, line := range strings.Split(strings.TrimRight(plainText(m.Body), "\n"), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if m.Image != nil {
		fmt.Fprintf(w, "  [image] %s\n", *m.Image)
	}
	if len(m.Reactions) > 0 {
		parts := make([]string, len(m.Reactions))
		for i, r := range m.Reactions {
			parts[i] = fmt.Sprintf("%s %d", r.Emoji, r.Count)
		}
		fmt.Fprintf(w, "  [%s]\n", strings.Join(parts, "] ["))
	}
}

// plainText extracts the text inserts of a rich-text document, falling back
// to the raw body when it is not one.
func plainText(body string) string {
	var doc struct {
		Ops []struct {
			Insert json.RawMessage `json:"insert"`
		} `json:"ops"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil || doc.Ops == nil {
		return body
	}
	var b strings.Builder
	for _, op := range doc.Ops {
		var s string
		if json.Unmarshal(op.Insert, &s) == nil {
			b.WriteString(s)
		}
	}
	return b.String()
}

func pluralReplies(n int) string {
	if n == 1 {
		return "1 reply"
	}
	return humanize.Comma(int64(n)) + " replies"
}
