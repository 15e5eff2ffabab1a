package checker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsbackend "github.com/lifei6671/i18n-fsbackend"
)

func newFixtureBackend(t *testing.T, ext string) *fsbackend.Backend {
	t.Helper()
	ctx := context.Background()
	root := filepath.Join("..", "..", "..", "testdata", "locales")
	b, err := fsbackend.New(ctx,
		fsbackend.WithLoadPath(filepath.Join(root, "{{lng}}", "{{ns}}."+ext)),
		fsbackend.WithAddPath(filepath.Join(t.TempDir(), "{{lng}}", "{{ns}}.json")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(ctx) })
	return b
}

func TestCheckResources(t *testing.T) {
	ctx := context.Background()

	t.Run("CheckResources_Success", func(t *testing.T) {
		b := newFixtureBackend(t, "json")

		res, err := CheckResources(ctx, b, []string{"en", "de"}, []string{"common"}, ".")
		require.NoError(t, err)

		assert.Equal(t, []string{"de", "en"}, res.Languages)
		assert.Equal(t, []string{
			"common:legacy",
			"common:title",
			"common:user.login",
			"common:user.logout",
		}, res.AllKeys)
		assert.Equal(t, []string{"common:legacy"}, res.MissingKeys["en"])
		assert.Equal(t, []string{"common:user.logout"}, res.MissingKeys["de"])
		assert.Equal(t, []string{"common:legacy"}, res.RedundantKeys["de"])
		assert.Empty(t, res.RedundantKeys["en"])
		assert.True(t, res.HasIssues())
	})

	t.Run("CheckResources_NoIssues", func(t *testing.T) {
		b := newFixtureBackend(t, "json")

		res, err := CheckResources(ctx, b, []string{"en"}, []string{"common", "test"}, ".")
		require.NoError(t, err)
		assert.False(t, res.HasIssues())
		assert.Contains(t, res.AllKeys, "test:key")
	})

	t.Run("CheckResources_ReadErrors", func(t *testing.T) {
		b := newFixtureBackend(t, "cel")

		res, err := CheckResources(ctx, b, []string{"en"}, []string{"test", "bad"}, ".")
		require.NoError(t, err)

		assert.Equal(t, []string{"test:evaluated", "test:key"}, res.AllKeys)
		require.Contains(t, res.ReadErrors["en"], "bad")
		var evalErr *fsbackend.ResourceEvaluationError
		assert.ErrorAs(t, res.ReadErrors["en"]["bad"], &evalErr)
		assert.True(t, res.HasIssues())
	})

	t.Run("CheckResources_Fail", func(t *testing.T) {
		b := newFixtureBackend(t, "json")

		_, err := CheckResources(ctx, b, nil, []string{"common"}, ".")
		assert.Error(t, err)
		_, err = CheckResources(ctx, b, []string{"en"}, nil, ".")
		assert.Error(t, err)

		boom := errors.New("boom")
		_, err = CheckResources(ctx, readerFunc(func(context.Context, string, string) (fsbackend.Resource, error) {
			return nil, boom
		}), []string{"en"}, []string{"common"}, ".")
		assert.ErrorIs(t, err, boom)
	})
}

type readerFunc func(ctx context.Context, lng, ns string) (fsbackend.Resource, error)

func (f readerFunc) Read(ctx context.Context, lng, ns string) (fsbackend.Resource, error) {
	return f(ctx, lng, ns)
}
