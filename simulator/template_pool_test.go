package simulator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestTemplatePool_AddRemove(t *testing.T) {
	require := require.New(t)

	pool := NewTemplatePool()

	var changes []TemplateChange
	remove := pool.AddHandler(func(c TemplateChange) { changes = append(changes, c) })

	s1f2 := mustTemplate(t, `S1F2 <L>.`)
	require.True(pool.Add("b", s1f2))
	require.True(pool.Add("a", mustTemplate(t, `S1F4 <L>.`)))
	require.True(pool.Add("c", mustTemplate(t, `S6F12 <B 0>.`)))
	require.False(pool.Add("b", mustTemplate(t, `S2F2 <L>.`)), "alias is not overwritten")

	require.Equal([]string{"b", "a", "c"}, pool.Aliases())
	require.Equal(3, pool.Len())

	tmpl, ok := pool.Get("b")
	require.True(ok)
	require.Same(s1f2, tmpl)
	_, ok = pool.Get("x")
	require.False(ok)

	require.True(pool.HasStream(1))
	require.True(pool.HasStream(6))
	require.False(pool.HasStream(2))
	require.True(pool.HasStreamFunction(1, 4))
	require.False(pool.HasStreamFunction(1, 6))

	require.True(pool.Remove("a"))
	require.False(pool.Remove("a"))
	require.False(pool.HasStreamFunction(1, 4))
	require.True(pool.HasStream(1))
	require.Equal([]string{"b", "c"}, pool.Aliases())

	require.True(pool.Remove("b"))
	require.False(pool.HasStream(1))

	require.Equal([]TemplateChange{
		{Event: TemplateAdded, Alias: "b"},
		{Event: TemplateAdded, Alias: "a"},
		{Event: TemplateAdded, Alias: "c"},
		{Event: TemplateRemoved, Alias: "a"},
		{Event: TemplateRemoved, Alias: "b"},
	}, changes)

	remove()
	require.True(pool.Add("d", s1f2))
	require.Len(changes, 5)
	require.Equal("added", TemplateAdded.String())
	require.Equal("removed", TemplateRemoved.String())
}

func TestTemplatePool_OnlyOneMatching(t *testing.T) {
	require := require.New(t)

	pool := NewTemplatePool()
	_, ok := pool.OnlyOneMatching(1, 2)
	require.False(ok)

	first := mustTemplate(t, `S1F2 <L <A "A">>.`)
	require.True(pool.Add("first", first))
	tmpl, ok := pool.OnlyOneMatching(1, 2)
	require.True(ok)
	require.Same(first, tmpl)

	require.True(pool.Add("second", mustTemplate(t, `S1F2 <L <A "B">>.`)))
	_, ok = pool.OnlyOneMatching(1, 2)
	require.False(ok, "ambiguous match")
	require.Equal([]string{"first", "second"}, pool.AliasesFor(1, 2))
	require.Empty(pool.AliasesFor(1, 4))

	require.True(pool.Remove("first"))
	tmpl, ok = pool.OnlyOneMatching(1, 2)
	require.True(ok)
	require.Equal("second", pool.AliasesFor(1, 2)[0])
	require.NotSame(first, tmpl)
}

func TestTemplatePool_AddSML(t *testing.T) {
	require := require.New(t)

	pool := NewTemplatePool()
	require.NoError(pool.AddSML("S1F2", `S1F2 <L>.`))
	require.ErrorIs(pool.AddSML("S1F2", `S1F2 <L>.`), ErrDuplicateAlias)
	require.ErrorIs(pool.AddSML("bad", `S1F2 <L>`), ErrParse)
	require.ErrorIs(pool.AddSML("two", `S1F2 <L>. S1F4 <L>.`), ErrParse)
	require.Equal([]string{"S1F2"}, pool.Aliases())
}

func TestTemplatePool_LoadFile(t *testing.T) {
	tests := []struct {
		description     string
		fileName        string
		content         string
		expectedAliases []string
		expectedErr     error
	}{
		{
			description:     "named messages",
			fileName:        "replies.sml",
			content:         "S1F2: S1F2 <L>.\nS6F12: S6F12 <B 0>.\n",
			expectedAliases: []string{"S1F2", "S6F12"},
		},
		{
			description:     "single unnamed message takes the file name",
			fileName:        "online.sml",
			content:         "S1F18 <B 0>.",
			expectedAliases: []string{"online"},
		},
		{
			description:     "several unnamed messages are numbered",
			fileName:        "events.sml",
			content:         "S6F11 W <L>.\nack: S6F12 <B 0>.\nS6F11 W <L <U4 1>>.",
			expectedAliases: []string{"events#1", "ack", "events#3"},
		},
		{
			description: "duplicate names in file",
			fileName:    "dup.sml",
			content:     "x: S1F2 <L>.\nx: S1F4 <L>.",
			expectedErr: ErrDuplicateAlias,
		},
		{
			description: "parse error",
			fileName:    "bad.sml",
			content:     "S1F2 <L>",
			expectedErr: ErrParse,
		},
	}

	require := require.New(t)

	for i, test := range tests {
		t.Logf("Test #%d: %s", i, test.description)

		pool := NewTemplatePool()
		aliases, err := pool.LoadFile(writeFile(t, test.fileName, test.content))
		if test.expectedErr != nil {
			require.ErrorIs(err, test.expectedErr)
			require.Zero(pool.Len(), "file is rejected as a whole")
			continue
		}

		require.NoError(err)
		require.Equal(test.expectedAliases, aliases)
		require.Equal(test.expectedAliases, pool.Aliases())
	}
}

func TestTemplatePool_LoadFileConflict(t *testing.T) {
	require := require.New(t)

	pool := NewTemplatePool()
	require.NoError(pool.AddSML("S1F4", `S1F4 <L>.`))

	_, err := pool.LoadFile(writeFile(t, "a.sml", "S1F2: S1F2 <L>.\nS1F4: S1F4 <L>."))
	require.ErrorIs(err, ErrDuplicateAlias)
	require.Equal([]string{"S1F4"}, pool.Aliases())

	_, err = pool.LoadFile(filepath.Join(t.TempDir(), "missing.sml"))
	require.ErrorIs(err, os.ErrNotExist)
}
