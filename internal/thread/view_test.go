package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristhian-fs/slack-clone/internal/models"
)

func readySnapshot(status Status) Snapshot {
	return Snapshot{
		Results: []models.MessageWithAuthor{
			msg(3, 1, at(18, 9, 0)),
			msg(2, 1, at(17, 10, 3)),
		},
		Status: status,
	}
}

func TestBuild_RootLoading(t *testing.T) {
	v := Build(Input{Threaded: true, RootLoading: true, Snapshot: readySnapshot(StatusCanLoadMore), Location: saoPaulo})
	assert.Equal(t, StateLoading, v.State)
	assert.Nil(t, v.Groups)
	assert.Nil(t, v.Root)
}

func TestBuild_FirstPageLoading(t *testing.T) {
	root := msg(1, 1, at(17, 9, 0))
	v := Build(Input{Threaded: true, Root: &root, Snapshot: Snapshot{Status: StatusLoadingFirstPage}, Location: saoPaulo})
	assert.Equal(t, StateLoading, v.State)
	assert.Nil(t, v.Groups)
}

func TestBuild_RootNotFound(t *testing.T) {
	v := Build(Input{Threaded: true, Snapshot: readySnapshot(StatusExhausted), Location: saoPaulo})
	assert.Equal(t, StateNotFound, v.State)
	assert.Nil(t, v.Groups, "not-found must not render a partial list")
}

func TestBuild_Ready(t *testing.T) {
	root := msg(1, 1, at(17, 9, 58))
	v := Build(Input{Threaded: true, Root: &root, Snapshot: readySnapshot(StatusLoadingMore), Location: saoPaulo})

	require.Equal(t, StateReady, v.State)
	require.NotNil(t, v.Root)
	assert.Equal(t, int64(1), v.Root.ID)
	assert.True(t, v.LoadingMore)
	assert.False(t, v.CanLoadMore)
	require.Len(t, v.Groups, 2)
	for _, g := range v.Groups {
		assert.False(t, g.Entries[0].Compact)
	}
}

func TestBuild_RootIsCopied(t *testing.T) {
	root := msg(1, 1, at(17, 9, 0))
	v := Build(Input{Threaded: true, Root: &root, Snapshot: readySnapshot(StatusExhausted), Location: saoPaulo})
	root.Body = "changed"
	assert.NotEqual(t, "changed", v.Root.Body)
}

func TestBuild_ChannelView(t *testing.T) {
	v := Build(Input{Snapshot: readySnapshot(StatusCanLoadMore), Location: saoPaulo})
	assert.Equal(t, StateReady, v.State)
	assert.Nil(t, v.Root)
	assert.True(t, v.CanLoadMore)
	assert.Len(t, v.Groups, 2)
}

func TestBuild_ChannelMissing(t *testing.T) {
	v := Build(Input{Snapshot: Snapshot{Status: StatusExhausted, Missing: true}, Location: saoPaulo})
	assert.Equal(t, StateNotFound, v.State)
	assert.Nil(t, v.Groups, "not-found must not render a partial list")
	assert.False(t, v.CanLoadMore)
}

func TestBuild_Anchor(t *testing.T) {
	loading := Build(Input{Anchored: true, AnchorLoading: true, Snapshot: readySnapshot(StatusCanLoadMore), Location: saoPaulo})
	assert.Equal(t, StateLoading, loading.State)
	assert.Nil(t, loading.Groups)

	missing := Build(Input{Anchored: true, Snapshot: readySnapshot(StatusCanLoadMore), Location: saoPaulo})
	assert.Equal(t, StateNotFound, missing.State)
	assert.Nil(t, missing.Groups)
	assert.False(t, missing.CanLoadMore)

	found := Build(Input{Anchored: true, AnchorFound: true, Snapshot: readySnapshot(StatusCanLoadMore), Location: saoPaulo})
	assert.Equal(t, StateReady, found.State)
	assert.Len(t, found.Groups, 2)
}

func TestView_Labeled(t *testing.T) {
	v := Build(Input{Snapshot: readySnapshot(StatusExhausted), Location: saoPaulo})
	labeled := v.Labeled(at(18, 20, 0))
	require.Len(t, labeled, 2)
	assert.Equal(t, "Today", labeled[0].Label)
	assert.Equal(t, "Yesterday", labeled[1].Label)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "CanLoadMore", StatusCanLoadMore.String())
	assert.Equal(t, "Exhausted", StatusExhausted.String())
	assert.Equal(t, "ready", StateReady.String())
}
