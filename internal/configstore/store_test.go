package configstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func segmentGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Za-z][A-Za-z0-9_]{0,6}`)
}

func keyGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		segments := rapid.SliceOfN(segmentGen(), 1, 3).Draw(t, "segments")
		return strings.Join(segments, ":")
	})
}

// distinctPriorities draws n distinct priorities in random order.
func distinctPriorities(t *rapid.T, n int) []int {
	base := make([]int, n)
	for i := range base {
		base[i] = i*3 - 4
	}
	return rapid.Permutation(base).Draw(t, "priorities")
}

func TestGetReturnsValueFromOnlyDefiningSource(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "sources")
		owner := rapid.IntRange(0, n-1).Draw(t, "owner")
		key := keyGen().Draw(t, "key")
		value := rapid.String().Draw(t, "value")
		priorities := distinctPriorities(t, n)

		sources := make([]Source, n)
		for i := range sources {
			entries := map[string]string{
				"Unrelated:" + strconv.Itoa(i): "noise",
			}
			if i == owner {
				entries[key] = value
			}
			sources[i] = Source{Name: "src" + strconv.Itoa(i), Priority: priorities[i], Entries: entries}
		}

		store, err := New(sources)
		require.NoError(t, err)

		rv, ok := store.Get(key)
		require.True(t, ok)
		assert.Equal(t, value, rv.Value)
		assert.Equal(t, "src"+strconv.Itoa(owner), rv.Source)
	})
}

func TestGetPrefersLowerPriorityNumber(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 6).Draw(t, "sources")
		priorities := distinctPriorities(t, n)
		key := keyGen().Draw(t, "key")

		first := rapid.IntRange(0, n-1).Draw(t, "first")
		second := rapid.IntRange(0, n-2).Draw(t, "second")
		if second >= first {
			second++
		}
		defines := map[int]bool{first: true, second: true}
		for i := 0; i < n; i++ {
			if rapid.Bool().Draw(t, "alsoDefines") {
				defines[i] = true
			}
		}

		sources := make([]Source, n)
		winner := -1
		for i := range sources {
			entries := map[string]string{}
			if defines[i] {
				entries[key] = "value-" + strconv.Itoa(i)
				if winner < 0 || priorities[i] < priorities[winner] {
					winner = i
				}
			}
			sources[i] = Source{Name: "src" + strconv.Itoa(i), Priority: priorities[i], Entries: entries}
		}

		store, err := New(sources)
		require.NoError(t, err)

		rv, ok := store.Get(key)
		require.True(t, ok)
		assert.Equal(t, "value-"+strconv.Itoa(winner), rv.Value)
		assert.Equal(t, priorities[winner], rv.Priority)
	})
}

func TestGetIgnoresCaseAndDelimiterStyle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		segments := rapid.SliceOfN(segmentGen(), 1, 4).Draw(t, "segments")
		value := rapid.String().Draw(t, "value")

		variant := make([]string, len(segments))
		for i, segment := range segments {
			if rapid.Bool().Draw(t, "upper") {
				variant[i] = strings.ToUpper(segment)
			} else {
				variant[i] = strings.ToLower(segment)
			}
		}
		var b strings.Builder
		for i, segment := range variant {
			if i > 0 {
				b.WriteString(rapid.SampledFrom([]string{":", "."}).Draw(t, "delimiter"))
			}
			b.WriteString(segment)
		}

		store, err := New([]Source{{Name: "base", Priority: 1, Entries: map[string]string{
			strings.Join(segments, ":"): value,
		}}})
		require.NoError(t, err)

		original, ok := store.Get(strings.Join(segments, ":"))
		require.True(t, ok)
		got, ok := store.Get(b.String())
		require.True(t, ok)
		assert.Equal(t, original, got)
	})
}

func TestGetJwtKeyDelimiterEquivalence(t *testing.T) {
	store, err := New([]Source{{Name: "base", Priority: 1, Entries: map[string]string{"Jwt:Key": "secret"}}})
	require.NoError(t, err)

	colon, ok := store.Get("Jwt:Key")
	require.True(t, ok)
	dotted, ok := store.Get("jwt.key")
	require.True(t, ok)
	assert.Equal(t, colon, dotted)
	assert.Equal(t, "Jwt:Key", dotted.Key)
}

func TestGetAbsentIsDistinctFromEmpty(t *testing.T) {
	store, err := New([]Source{{Name: "base", Priority: 1, Entries: map[string]string{"Jwt:Key": ""}}})
	require.NoError(t, err)

	rv, ok := store.Get("Jwt:Key")
	require.True(t, ok)
	assert.Empty(t, rv.Value)

	_, ok = store.Get("Jwt:Issuer")
	assert.False(t, ok)

	_, ok = store.Get("Jwt::Key")
	assert.False(t, ok, "malformed keys never match")
}

func TestEmptyStoreIsLegal(t *testing.T) {
	store, err := New(nil)
	require.NoError(t, err)

	_, ok := store.Get("anything")
	assert.False(t, ok)
	assert.Empty(t, store.GetSection("Jwt"))
	assert.Empty(t, store.Sources())
}

func TestNewRequireSources(t *testing.T) {
	_, err := New(nil, WithRequireSources())
	require.ErrorIs(t, err, ErrEmptySourceList)

	_, err = New([]Source{{Name: "base", Priority: 1}}, WithRequireSources())
	require.NoError(t, err)
}

func TestNewRejectsDuplicatePriority(t *testing.T) {
	_, err := New([]Source{
		{Name: "env", Priority: 1},
		{Name: "secrets", Priority: 1},
	})
	require.ErrorIs(t, err, ErrDuplicatePriority)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, KindDuplicatePriority, cfgErr.Kind)
	assert.Contains(t, err.Error(), `"env"`)

	_, err = New([]Source{
		{Name: "env", Priority: 1},
		{Name: "secrets", Priority: 2},
		{Name: "base", Priority: 3},
	})
	require.NoError(t, err)
}

func TestNewRejectsDuplicateNameAndInvalidKeys(t *testing.T) {
	_, err := New([]Source{
		{Name: "files", Priority: 1},
		{Name: "files", Priority: 2},
	})
	require.ErrorIs(t, err, ErrDuplicateSource)

	for _, key := range []string{"", ":Key", "Jwt:", "Jwt..Key"} {
		_, err := New([]Source{{Name: "base", Priority: 1, Entries: map[string]string{key: "v"}}})
		require.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestNewFoldedCollisionIsDeterministic(t *testing.T) {
	for i := 0; i < 20; i++ {
		store, err := New([]Source{{Name: "base", Priority: 1, Entries: map[string]string{
			"jwt:key": "lower",
			"Jwt.Key": "upper",
		}}})
		require.NoError(t, err)

		rv, ok := store.Get("JWT:KEY")
		require.True(t, ok)
		assert.Equal(t, "lower", rv.Value)
	}
}

func TestNewCopiesEntries(t *testing.T) {
	entries := map[string]string{"Jwt:Key": "abc"}
	store, err := New([]Source{{Name: "base", Priority: 1, Entries: entries}})
	require.NoError(t, err)

	entries["Jwt:Key"] = "mutated"
	v, err := store.GetRequired("Jwt:Key")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestGetRequired(t *testing.T) {
	store, err := New([]Source{{Name: "secrets", Priority: 2, Entries: map[string]string{"Jwt:Key": "abc"}}})
	require.NoError(t, err)

	v, err := store.GetRequired("jwt:key")
	require.NoError(t, err)
	rv, _ := store.Get("jwt:key")
	assert.Equal(t, rv.Value, v)

	_, err = store.GetRequired("Jwt:Audience")
	require.ErrorIs(t, err, ErrMissingKey)
	assert.Contains(t, err.Error(), "Jwt:Audience")
}

func TestErrorMessageForUnknownKind(t *testing.T) {
	var zero Error
	assert.Equal(t, "configuration error", zero.Error())

	err := &Error{Kind: Kind(99), Key: "Jwt:Key"}
	assert.Equal(t, `configuration error: key "Jwt:Key"`, err.Error())
	assert.False(t, errors.Is(err, ErrMissingKey))
}

func TestGetSectionMergesPerKey(t *testing.T) {
	store, err := New([]Source{
		{Name: "base", Priority: 4, Entries: map[string]string{"Jwt:Key": "", "Jwt:Issuer": "X", "Logging:LogLevel:Default": "Information"}},
		{Name: "secrets", Priority: 2, Entries: map[string]string{"Jwt:Key": "abc"}},
	})
	require.NoError(t, err)

	section := store.GetSection("Jwt")
	assert.Equal(t, map[string]string{"Key": "abc", "Issuer": "X"}, section.Values())
	assert.Equal(t, "secrets", section["Key"].Source)
	assert.Equal(t, "base", section["Issuer"].Source)
	assert.Equal(t, "Jwt:Key", section["Key"].Key)

	rv, ok := section.Lookup("issuer")
	require.True(t, ok)
	assert.Equal(t, "X", rv.Value)

	assert.Equal(t, section, store.GetSection("jwt:"))
}

func TestGetSectionNested(t *testing.T) {
	store, err := New([]Source{
		{Name: "base", Priority: 3, Entries: map[string]string{
			"Logging:LogLevel:Default":              "Information",
			"Logging:LogLevel:Microsoft.AspNetCore": "Warning",
			"LoggingExtra":                          "not a child",
		}},
		{Name: "dev", Priority: 2, Entries: map[string]string{"logging.loglevel.default": "Debug"}},
	})
	require.NoError(t, err)

	// The winning source's spelling names the key.
	assert.Equal(t, map[string]string{
		"loglevel:default":              "Debug",
		"LogLevel:Microsoft:AspNetCore": "Warning",
	}, store.GetSection("Logging").Values())

	assert.Equal(t, map[string]string{
		"default":              "Debug",
		"Microsoft:AspNetCore": "Warning",
	}, store.GetSection("Logging.LogLevel").Values())

	assert.Empty(t, store.GetSection("Jwt"))
	assert.Empty(t, store.GetSection("Logging::x"))
	assert.Empty(t, store.GetSection("Logging::"))
	assert.Empty(t, store.GetSection("::"))
	assert.Empty(t, store.GetSection(":"))
	assert.Len(t, store.GetSection("Logging."), 2)
	assert.Len(t, store.GetSection(""), 3)
}

func TestExplainListsShadowedValues(t *testing.T) {
	store, err := New([]Source{
		{Name: "base", Priority: 3, Entries: map[string]string{"Jwt:Issuer": "base"}},
		{Name: "env", Priority: 1, Entries: map[string]string{"JWT:ISSUER": "env"}},
		{Name: "secrets", Priority: 2, Entries: map[string]string{"Other": "x"}},
	})
	require.NoError(t, err)

	chain := store.Explain("jwt.issuer")
	require.Len(t, chain, 2)
	assert.Equal(t, "env", chain[0].Source)
	assert.Equal(t, "base", chain[1].Source)
	assert.Nil(t, store.Explain("missing"))
}

func TestReloadSource(t *testing.T) {
	store, err := New([]Source{
		{Name: "secrets", Priority: 2, Entries: map[string]string{"Jwt:Key": "old"}},
		{Name: "base", Priority: 3, Entries: map[string]string{"Jwt:Key": "base", "Jwt:Issuer": "X"}},
	})
	require.NoError(t, err)

	require.NoError(t, store.ReloadSource("secrets", map[string]string{"Jwt:Issuer": "Y"}))

	key, _ := store.Get("Jwt:Key")
	assert.Equal(t, "base", key.Value, "reload replaces the entry set wholesale")
	issuer, _ := store.Get("Jwt:Issuer")
	assert.Equal(t, "Y", issuer.Value)

	infos := store.Sources()
	require.Len(t, infos, 2)
	assert.Equal(t, SourceInfo{Name: "secrets", Priority: 2, Entries: 1, Revision: 1}, infos[0])
	assert.Equal(t, uint64(0), infos[1].Revision)

	err = store.ReloadSource("missing", nil)
	require.ErrorIs(t, err, ErrUnknownSource)

	err = store.ReloadSource("secrets", map[string]string{"bad..key": "v"})
	require.ErrorIs(t, err, ErrInvalidKey)
	issuer, _ = store.Get("Jwt:Issuer")
	assert.Equal(t, "Y", issuer.Value, "failed reload keeps the published entries")
}

func TestReloadSourceIsAtomicUnderConcurrentReaders(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.IntRange(1, 16).Draw(t, "keys")
		reloads := rapid.IntRange(1, 40).Draw(t, "reloads")

		generation := func(g int) map[string]string {
			entries := make(map[string]string, keys)
			for i := 0; i < keys; i++ {
				entries[fmt.Sprintf("Gen:K%d", i)] = strconv.Itoa(g)
			}
			return entries
		}

		store, err := New([]Source{
			{Name: "secrets", Priority: 1, Entries: generation(0)},
			{Name: "base", Priority: 2, Entries: map[string]string{"Gen:K0": "base"}},
		})
		require.NoError(t, err)

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			mixed []string
		)
		stop := make(chan struct{})
		for r := 0; r < 4; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					section := store.GetSection("Gen")
					first := section["K0"].Value
					for i := 1; i < keys; i++ {
						if got := section[fmt.Sprintf("K%d", i)].Value; got != first {
							mu.Lock()
							mixed = append(mixed, fmt.Sprintf("K0=%s K%d=%s", first, i, got))
							mu.Unlock()
							return
						}
					}
				}
			}()
		}

		for g := 1; g <= reloads; g++ {
			if err := store.ReloadSource("secrets", generation(g)); err != nil {
				close(stop)
				wg.Wait()
				t.Fatalf("reload %d: %v", g, err)
			}
		}
		close(stop)
		wg.Wait()

		if len(mixed) > 0 {
			t.Fatalf("observed mixed generations: %v", mixed)
		}
		rv, ok := store.Get("gen.k0")
		if !ok || rv.Value != strconv.Itoa(reloads) {
			t.Fatalf("expected final generation %d, got %+v", reloads, rv)
		}
	})
}

func TestEnvironmentNameScenario(t *testing.T) {
	store, err := New([]Source{
		{Name: "basefile", Priority: 3, Entries: map[string]string{"ASPNETCORE_ENVIRONMENT": "Development From AppSettings"}},
		{Name: "env", Priority: 1, Entries: map[string]string{"ASPNETCORE_ENVIRONMENT": "Development"}},
		{Name: "devfile", Priority: 2, Entries: map[string]string{"ASPNETCORE_ENVIRONMENT": "Development From AppSettings.Dev"}},
	})
	require.NoError(t, err)

	rv, ok := store.Get("ASPNETCORE_ENVIRONMENT")
	require.True(t, ok)
	assert.Equal(t, "Development", rv.Value)
	assert.Equal(t, "env", rv.Source)
}
