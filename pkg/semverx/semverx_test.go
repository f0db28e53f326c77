package semverx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseDiff_Classification(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want ReleaseType
		ok   bool
	}{
		{name: "major jump", from: "1.2.3", to: "2.0.0", want: ReleaseMajor, ok: true},
		{name: "minor jump", from: "1.2.3", to: "1.3.0", want: ReleaseMinor, ok: true},
		{name: "patch jump", from: "1.2.3", to: "1.2.4", want: ReleasePatch, ok: true},
		{name: "prerelease jump", from: "1.2.3-rc.1", to: "1.2.3-rc.2", want: ReleasePrerelease, ok: true},
		{name: "downgrade still classified", from: "2.0.0", to: "1.9.9", want: ReleaseMajor, ok: true},
		{name: "equal versions", from: "1.2.3", to: "1.2.3", ok: false},
		{name: "metadata only", from: "1.2.3+build.1", to: "1.2.3+build.2", ok: false},
		{name: "unparseable from", from: "not-a-version", to: "1.0.0", ok: false},
		{name: "unparseable to", from: "1.0.0", to: "latest", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReleaseDiff(tt.from, tt.to)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMinSatisfying_CommonRanges(t *testing.T) {
	tests := []struct {
		selector string
		want     string
	}{
		{selector: "^1.2.3", want: "1.2.3"},
		{selector: "~2.4.0", want: "2.4.0"},
		{selector: "1.2.3", want: "1.2.3"},
		{selector: "=1.2.3", want: "1.2.3"},
		{selector: ">=3.0.0", want: "3.0.0"},
		{selector: ">1.2.3", want: "1.2.4"},
		{selector: "*", want: "0.0.0"},
		{selector: "", want: "0.0.0"},
		{selector: "1.x", want: "1.0.0"},
		{selector: "1.2.x", want: "1.2.0"},
		{selector: ">=1.2.3 <2.0.0", want: "1.2.3"},
		{selector: "^0.4.1 || ^1.0.0", want: "0.4.1"},
		{selector: "^1.2.3-rc.1", want: "1.2.3-rc.1"},
		// Tags containing an x must not be mistaken for placeholder segments.
		{selector: "^1.0.0-next.1", want: "1.0.0-next.1"},
		{selector: "^2.0.0-experimental.3", want: "2.0.0-experimental.3"},
		{selector: "2.1.0-next.4", want: "2.1.0-next.4"},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got, err := MinSatisfying(tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestMinSatisfying_Invalid(t *testing.T) {
	_, err := MinSatisfying("not a range at all %%")
	assert.Error(t, err)
}

func TestMaxSatisfying_PicksHighestInRange(t *testing.T) {
	versions := []string{"1.0.0", "1.4.2", "1.9.0", "2.0.0", "2.1.0-beta.1", "junk"}

	tests := []struct {
		name     string
		selector string
		want     string
		found    bool
	}{
		{name: "caret stays below next major", selector: "^1.0.0", want: "1.9.0", found: true},
		{name: "tilde stays within minor", selector: "~1.4.0", want: "1.4.2", found: true},
		{name: "star takes highest stable", selector: "*", want: "2.0.0", found: true},
		{name: "prerelease excluded from plain range", selector: ">=2.0.0", want: "2.0.0", found: true},
		{name: "nothing in range", selector: "^3.0.0", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MaxSatisfying(versions, tt.selector)
			require.NoError(t, err)
			if !tt.found {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestHighest_PrefersStable(t *testing.T) {
	got, ok := Highest([]string{"1.0.0", "2.0.0-rc.1", "1.5.0"})
	require.True(t, ok)
	assert.Equal(t, "1.5.0", got.String())
}

func TestHighest_AllPrerelease(t *testing.T) {
	got, ok := Highest([]string{"1.0.0-alpha.1", "1.0.0-alpha.2"})
	require.True(t, ok)
	assert.Equal(t, "1.0.0-alpha.2", got.String())
}

func TestHighest_NothingParses(t *testing.T) {
	_, ok := Highest([]string{"latest", "next"})
	assert.False(t, ok)
}

func TestValidRange(t *testing.T) {
	assert.True(t, ValidRange("^1.2.3"))
	assert.True(t, ValidRange("1.x"))
	assert.True(t, ValidRange(">=1.0.0 <2.0.0"))
	assert.True(t, ValidRange("*"))

	assert.False(t, ValidRange("latest"))
	assert.False(t, ValidRange("lodash@^4.0.0"))
}

func TestModifier_RangeStyles(t *testing.T) {
	tests := []struct {
		selector string
		want     string
	}{
		{selector: "^1.2.3", want: "^"},
		{selector: "~1.2.3", want: "~"},
		{selector: ">=1.2.3", want: ">="},
		{selector: "1.2.3", want: ""},
		{selector: ">=1.0.0 <2.0.0", want: ""},
		{selector: "1.2.3 - 2.0.0", want: ""},
		{selector: " ^2.0.0 ", want: "^"},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			assert.Equal(t, tt.want, Modifier(tt.selector))
		})
	}
}

func TestApplyModifier_FormsSelector(t *testing.T) {
	v, err := MinSatisfying("3.1.4")
	require.NoError(t, err)

	assert.Equal(t, "^3.1.4", ApplyModifier("^", v))
	assert.Equal(t, "~3.1.4", ApplyModifier("~", v))
	assert.Equal(t, "3.1.4", ApplyModifier("", v))
}
