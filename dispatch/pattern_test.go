package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathPattern(t *testing.T) {
	t.Run("compiles a static template", func(t *testing.T) {
		p, err := newPathPattern("/edit/", false)
		require.NoError(t, err)
		assert.True(t, p.match("/edit/"))
		assert.False(t, p.match("/edit"))
		assert.False(t, p.match("/edit/extra"))
	})

	t.Run("compiles variables with default pattern", func(t *testing.T) {
		p, err := newPathPattern("/users/{id}", false)
		require.NoError(t, err)
		assert.True(t, p.match("/users/42"))
		assert.False(t, p.match("/users/42/extra"))
		assert.Equal(t, []string{"id"}, p.varsN)
	})

	t.Run("compiles variables with explicit regexp", func(t *testing.T) {
		p, err := newPathPattern("/articles/{id:[0-9]+}", false)
		require.NoError(t, err)
		assert.True(t, p.match("/articles/7"))
		assert.False(t, p.match("/articles/seven"))
	})

	t.Run("rejects unbalanced braces", func(t *testing.T) {
		_, err := newPathPattern("/bad/{id", false)
		assert.Error(t, err)

		_, err = newPathPattern("/bad/id}", false)
		assert.Error(t, err)
	})

	t.Run("rejects empty variable name", func(t *testing.T) {
		_, err := newPathPattern("/bad/{}", false)
		assert.Error(t, err)
	})

	t.Run("rejects duplicated variable names", func(t *testing.T) {
		_, err := newPathPattern("/bad/{id}/{id}", false)
		assert.Error(t, err)
	})

	t.Run("rejects invalid variable regexp", func(t *testing.T) {
		_, err := newPathPattern("/bad/{id:[}", false)
		assert.Error(t, err)
	})
}

func TestPathPatternMacros(t *testing.T) {
	t.Run("username macro accepts word chars dots underscores hyphens", func(t *testing.T) {
		p, err := newPathPattern("/profile/{username:username}/", false)
		require.NoError(t, err)

		for _, ok := range []string{"ada", "ada.lovelace", "ada_lovelace", "ada-lovelace", "Ada42", "a.b-c_d"} {
			assert.True(t, p.match("/profile/"+ok+"/"), ok)
		}
	})

	t.Run("username macro rejects other characters", func(t *testing.T) {
		p, err := newPathPattern("/profile/{username:username}/", false)
		require.NoError(t, err)

		for _, bad := range []string{"ada lovelace", "ada@example", "ada!", "ada/lovelace", "", "adä"} {
			assert.False(t, p.match("/profile/"+bad+"/"), bad)
		}
	})

	t.Run("unknown macro name is treated as raw regexp", func(t *testing.T) {
		p, err := newPathPattern("/x/{v:[ab]+}", false)
		require.NoError(t, err)
		assert.True(t, p.match("/x/abba"))
		assert.False(t, p.match("/x/c"))
	})

	t.Run("int macro", func(t *testing.T) {
		p, err := newPathPattern("/page/{n:int}", false)
		require.NoError(t, err)
		assert.True(t, p.match("/page/3"))
		assert.False(t, p.match("/page/three"))
	})
}

func TestPathPatternStrictSlash(t *testing.T) {
	t.Run("matches both slash forms", func(t *testing.T) {
		p, err := newPathPattern("/edit/", true)
		require.NoError(t, err)
		assert.True(t, p.match("/edit/"))
		assert.True(t, p.match("/edit"))
	})

	t.Run("reverse build keeps the template form", func(t *testing.T) {
		p, err := newPathPattern("/profile/{username:username}/", true)
		require.NoError(t, err)
		got, err := p.build(map[string]string{"username": "ada"})
		require.NoError(t, err)
		assert.Equal(t, "/profile/ada/", got)
	})
}

func TestPathPatternBuild(t *testing.T) {
	t.Run("builds path from values", func(t *testing.T) {
		p, err := newPathPattern("/users/{id:int}/posts/{slug:slug}", false)
		require.NoError(t, err)
		got, err := p.build(map[string]string{"id": "42", "slug": "hello-world"})
		require.NoError(t, err)
		assert.Equal(t, "/users/42/posts/hello-world", got)
	})

	t.Run("errors on missing variable", func(t *testing.T) {
		p, err := newPathPattern("/users/{id}", false)
		require.NoError(t, err)
		_, err = p.build(map[string]string{})
		assert.Error(t, err)
	})

	t.Run("errors on value outside the pattern", func(t *testing.T) {
		p, err := newPathPattern("/users/{id:int}", false)
		require.NoError(t, err)
		_, err = p.build(map[string]string{"id": "forty-two"})
		assert.Error(t, err)
	})

	t.Run("escapes percent signs in literals", func(t *testing.T) {
		p, err := newPathPattern("/100%/{v}", false)
		require.NoError(t, err)
		got, err := p.build(map[string]string{"v": "x"})
		require.NoError(t, err)
		assert.Equal(t, "/100%/x", got)
	})
}

func TestPathPatternSetVars(t *testing.T) {
	t.Run("extracts named variables", func(t *testing.T) {
		p, err := newPathPattern("/profile/{username:username}/", false)
		require.NoError(t, err)

		vars := make(map[string]string)
		require.True(t, p.setVars("/profile/ada.lovelace/", vars))
		assert.Equal(t, "ada.lovelace", vars["username"])
	})

	t.Run("returns false without mutating on mismatch", func(t *testing.T) {
		p, err := newPathPattern("/profile/{username:username}/", false)
		require.NoError(t, err)

		vars := make(map[string]string)
		assert.False(t, p.setVars("/other/", vars))
		assert.Empty(t, vars)
	})
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/a/../b", "/b"},
		{"/a/./b/", "/a/b/"},
		{"a/b", "/a/b"},
		{"/a//b", "/a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanPath(tt.in))
		})
	}
}
