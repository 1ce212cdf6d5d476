package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/curioai/internal/domain"
)

func TestNewDistiller(t *testing.T) {
	t.Run("static provider needs no client", func(t *testing.T) {
		d, err := NewDistiller(DistillProviderStatic, nil)
		require.NoError(t, err)
		assert.NotNil(t, d)
	})

	t.Run("openai provider requires a client", func(t *testing.T) {
		_, err := NewDistiller(DistillProviderOpenAI, nil)
		assert.Error(t, err)
	})

	t.Run("unknown provider is rejected", func(t *testing.T) {
		_, err := NewDistiller(DistillProvider("ollama"), nil)
		assert.Error(t, err)
	})
}

func TestStaticDistiller_Distill(t *testing.T) {
	d := &staticDistiller{}
	ctx := context.Background()

	t.Run("title is the first sentence without trailing punctuation", func(t *testing.T) {
		out, err := d.Distill(ctx, "Raft elects a single leader per term. Followers replicate its log.")
		require.NoError(t, err)
		assert.Equal(t, "Raft elects a single leader per term", out.Title)
	})

	t.Run("title caps at ten words", func(t *testing.T) {
		out, err := d.Distill(ctx, "one two three four five six seven eight nine ten eleven twelve")
		require.NoError(t, err)
		assert.Equal(t, "one two three four five six seven eight nine ten", out.Title)
	})

	t.Run("summary collapses whitespace", func(t *testing.T) {
		out, err := d.Distill(ctx, "Quorums  make\nwrites   durable.")
		require.NoError(t, err)
		assert.Equal(t, "Quorums make writes durable.", out.Summary)
	})

	t.Run("summary truncates long text with ellipsis", func(t *testing.T) {
		out, err := d.Distill(ctx, strings.Repeat("words and more words ", 40))
		require.NoError(t, err)
		assert.Len(t, out.Summary, staticSummaryMaxChars)
		assert.True(t, strings.HasSuffix(out.Summary, "..."))
	})

	t.Run("blank input is rejected", func(t *testing.T) {
		_, err := d.Distill(ctx, "   \n ")
		assert.ErrorIs(t, err, domain.ErrEmptySourceText)
	})
}

func TestStaticDistiller_NameMerge(t *testing.T) {
	d := &staticDistiller{}
	ctx := context.Background()

	t.Run("names from the first source", func(t *testing.T) {
		out, err := d.NameMerge(ctx, []string{
			"Leader election drives consensus. Terms fence stale leaders.",
			"Log replication follows the leader.",
		})
		require.NoError(t, err)
		assert.Equal(t, "Leader election drives consensus", out.Title)
	})

	t.Run("empty sources are rejected", func(t *testing.T) {
		_, err := d.NameMerge(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrEmptySourceText)
	})
}
