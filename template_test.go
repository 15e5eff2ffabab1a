package fsbackend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlaceholder(t *testing.T) {
	t.Run("ParsePlaceholder_Success", func(t *testing.T) {
		node, err := parsePlaceholder(" lng | replace:-:_ | lower ")
		require.NoError(t, err)
		assert.Equal(t, "lng", node.Name)
		assert.Equal(t, []Formatter{{Name: "replace", Arg: "-:_"}, {Name: "lower"}}, node.Formatters)
	})
	t.Run("ParsePlaceholder_Fail", func(t *testing.T) {
		for _, expr := range []string{"", "  ", "| lower", "lng | ", "lng || lower"} {
			_, err := parsePlaceholder(expr)
			assert.Error(t, err, "expr %q", expr)
		}
	})
}

func TestRenderTemplate(t *testing.T) {
	vars := map[string]string{"lng": "zh-Hant-TW", "ns": "common"}

	t.Run("RenderTemplate_Success", func(t *testing.T) {
		out, err := RenderTemplate("/locales/{{lng}}/{{ns}}.json", vars)
		require.NoError(t, err)
		assert.Equal(t, "/locales/zh-Hant-TW/common.json", out)
	})
	t.Run("RenderTemplate_Repeated", func(t *testing.T) {
		out, err := RenderTemplate("/{{ns}}/{{lng}}.{{ns}}.json", vars)
		require.NoError(t, err)
		assert.Equal(t, "/common/zh-Hant-TW.common.json", out)
	})
	t.Run("RenderTemplate_Formatters", func(t *testing.T) {
		out, err := RenderTemplate("/locales/{{ lng | base }}/{{ns|upper}}.json", vars)
		require.NoError(t, err)
		assert.Equal(t, "/locales/zh/COMMON.json", out)

		out, err = RenderTemplate("/locales/{{lng | replace:-:_ | lower}}.json", vars)
		require.NoError(t, err)
		assert.Equal(t, "/locales/zh_hant_tw.json", out)
	})
	t.Run("RenderTemplate_Canonical", func(t *testing.T) {
		out, err := RenderTemplate("{{lng | canonical}}", map[string]string{"lng": "en-us"})
		require.NoError(t, err)
		assert.Equal(t, "en-US", out)
	})
	t.Run("RenderTemplate_NoPlaceholder", func(t *testing.T) {
		out, err := RenderTemplate("/locales/static.json", vars)
		require.NoError(t, err)
		assert.Equal(t, "/locales/static.json", out)
	})
	t.Run("RenderTemplate_Fail", func(t *testing.T) {
		_, err := RenderTemplate("/locales/{{lang}}.json", vars)
		assert.ErrorContains(t, err, "variable not found")

		_, err = RenderTemplate("/locales/{{lng}}/{{ns.json", vars)
		assert.ErrorContains(t, err, "unclosed placeholder")

		_, err = RenderTemplate("/locales/{{lng | base}}.json", map[string]string{"lng": "not a tag!"})
		assert.Error(t, err)
	})
}

func TestValidateTemplate(t *testing.T) {
	t.Run("ValidateTemplate_Success", func(t *testing.T) {
		assert.NoError(t, ValidateTemplate("/locales/{{lng | lower}}/{{ns}}.json", "lng", "ns"))
		assert.NoError(t, ValidateTemplate("/locales/all.json", "lng", "ns"))
	})
	t.Run("ValidateTemplate_Fail", func(t *testing.T) {
		assert.ErrorContains(t, ValidateTemplate("/{{lang}}.json", "lng", "ns"), "unknown variable")
		assert.ErrorContains(t, ValidateTemplate("/{{lng | shout}}.json", "lng", "ns"), "unknown formatter")
	})
	t.Run("ValidateTemplate_CustomFormatter", func(t *testing.T) {
		RegisterFormatter("test_reverse", func(v, _ string) (string, error) {
			r := []rune(v)
			for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
				r[i], r[j] = r[j], r[i]
			}
			return string(r), nil
		})
		require.NoError(t, ValidateTemplate("/{{ns | test_reverse}}.json", "ns"))

		out, err := RenderTemplate("/{{ns | test_reverse | upper}}.json", map[string]string{"ns": "abc"})
		require.NoError(t, err)
		assert.Equal(t, "/CBA.json", out)
	})
}

func TestTemplateAST_Variables(t *testing.T) {
	ast, err := ParseTemplate("/{{ns}}/{{ lng | lower }}/x{{ns}}")
	require.NoError(t, err)
	assert.Equal(t, []string{"ns", "lng", "ns"}, ast.Variables())
	assert.Len(t, ast, 6)
	assert.True(t, strings.HasPrefix(ast[0].(*TextNode).Text, "/"))
}
