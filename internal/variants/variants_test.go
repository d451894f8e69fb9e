package variants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_OriginalAlwaysFirst(t *testing.T) {
	for _, q := range []string{"кабель", "cable", "ВА47-29", "x", "  spaced  "} {
		got := Generate(q)
		require.NotEmpty(t, got)
		assert.Equal(t, q, got[0], "query %q", q)
	}
}

func TestGenerate_NoDuplicates(t *testing.T) {
	for _, q := range []string{"кабель", "rf,tkm", "abc123", "щит"} {
		got := Generate(q)
		seen := make(map[string]struct{}, len(got))
		for _, v := range got {
			_, dup := seen[v]
			assert.False(t, dup, "duplicate variant %q for query %q", v, q)
			seen[v] = struct{}{}
		}
	}
}

func TestGenerate_NoEmptyVariants(t *testing.T) {
	for _, v := range Generate("кабель")[1:] {
		assert.NotEmpty(t, v)
	}
}

func TestSwitchLayout_RecoversIntendedSpelling(t *testing.T) {
	// "кабель" typed with the Latin layout active.
	assert.Equal(t, "кабель", SwitchLayout("rf,tkm"))
	// "hello" typed with the Cyrillic layout active.
	assert.Equal(t, "hello", SwitchLayout("руддщ"))
}

func TestSwitchLayout_ApproximateInverse(t *testing.T) {
	// A string drawn purely from one layout converts into runes of the
	// other; converting the result maps back onto the first alphabet.
	converted := SwitchLayout("qwerty")
	require.NotEmpty(t, converted)
	for _, r := range converted {
		assert.Contains(t, cyrillicLayout, string(r))
	}
	back := SwitchLayout(converted)
	require.NotEmpty(t, back)
	for _, r := range back {
		assert.Contains(t, latinLayout, string(r))
	}
}

func TestSwitchLayout_IdentityReturnsEmpty(t *testing.T) {
	// Digits and punctuation are in neither alphabet, so nothing changes.
	assert.Equal(t, "", SwitchLayout("12345"))
}

func TestTransliterate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"кабель", "kabel"},
		{"Щит", "shchit"},
		{"журнал", "zhurnal"},
		{"провод 3х2.5", "provod 3h2.5"},
		{"cable", "cable"}, // Latin passes through
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Transliterate(tt.in), "input %q", tt.in)
	}
}

func TestReverseTransliterate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kabel", "кабел"},
		{"Lampa", "лампа"},
		{"shchit", "схцхит"}, // lossy: digraphs are not reconstructed
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReverseTransliterate(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ВА47-29", "ВА4729"},
		{"ВА 47 29", "ВА4729"},
		{"abc-123.X", "abc123X"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCode(tt.in), "input %q", tt.in)
	}
}

func TestGenerate_LayoutVariantIncluded(t *testing.T) {
	got := Generate("rf,tkm")
	assert.Contains(t, got, "кабель")
}
