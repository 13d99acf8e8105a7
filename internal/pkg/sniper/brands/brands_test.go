package brands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

const sampleBrands = `{
	"Raf Simons": {"variants": ["raf simons", "ラフシモンズ", "raf"]},
	"Rick Owens": {"variants": ["rick owens", "リックオウエンス", "drkshdw"]},
	"Undercoverism": {"variants": ["undercoverism"]},
	"Undercover": {"variants": ["undercover", "アンダーカバー"]}
}`

func TestParseKeepsOrderAndExcludes(t *testing.T) {
	c, err := Parse([]byte(sampleBrands))
	require.NoError(t, err)

	names := make([]string, 0, c.Len())
	for _, b := range c.Brands() {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"Raf Simons", "Rick Owens", "Undercover"}, names)

	b, ok := c.Lookup("rick owens")
	require.True(t, ok)
	assert.Equal(t, "rick owens", b.PrimaryVariant())
}

func TestParseRejectsNonObject(t *testing.T) {
	_, err := Parse([]byte(`["Raf Simons"]`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"Raf Simons": {"variants": 3}}`))
	assert.Error(t, err)
}

func TestDetect(t *testing.T) {
	c, err := Parse([]byte(sampleBrands))
	require.NoError(t, err)

	tests := []struct {
		title, want string
	}{
		{"RAF SIMONS 02AW riot bomber", "Raf Simons"},
		{"DRKSHDW ramones sneakers", "Rick Owens"},
		{"アンダーカバー 85 ジャケット", "Undercover"},
		{"undercoverism cargo pants", "Undercover"},
		{"plain white tee", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Detect(tt.title), tt.title)
	}
}

func TestKeywords(t *testing.T) {
	b := Brand{Name: "Rick Owens", Variants: []string{"rick owens"}}

	assert.Nil(t, Keywords(b, 0))
	assert.Equal(t, []string{"rick owens"}, Keywords(b, 1))
	assert.Equal(t, []string{"rick owens", "rick owens fw", "rick owens ss"}, Keywords(b, 3))
	assert.Equal(t, []string{"rick owens", "rick owens fw", "rick owens ss", "rick owens jacket"}, Keywords(b, 4))
	assert.Len(t, Keywords(b, 10), 5)

	noVariants := Brand{Name: "Celine"}
	assert.Equal(t, []string{"Celine"}, Keywords(noVariants, 1))
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brands.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleBrands), 0o644))

	w, err := NewWatcher(path, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, w.Catalog().Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"Prada": {"variants": ["prada"]}}`), 0o644))

	assert.Eventually(t, func() bool {
		_, ok := w.Catalog().Lookup("prada")
		return ok
	}, 3*time.Second, 20*time.Millisecond)
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brands.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleBrands), 0o644))

	w, err := NewWatcher(path, logger.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))
	assert.Error(t, w.Reload())
	assert.Equal(t, 3, w.Catalog().Len())
}

func TestNewWatcherMissingFile(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing.json"), logger.NewNop())
	assert.Error(t, err)
}
