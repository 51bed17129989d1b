package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/CommentGender/internal/classify"
	"github.com/TobiSchelling/CommentGender/internal/youtube"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain name.csv", "plain name.csv"},
		{`a\b/c:d*e?f"g<h>i|j`, "a_b_c_d_e_f_g_h_i_j"},
		{"  padded  ", "padded"},
		{"Ünïcødé 🎸", "Ünïcødé 🎸"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestFilename(t *testing.T) {
	v := youtube.Video{ID: "abc123", Title: "What? A/B tests: explained", ChannelTitle: "Data|Chan"}
	assert.Equal(t, "Data_Chan - What_ A_B tests_ explained - abc123.csv", Filename(v))
}

func sampleResult() *classify.Result {
	return &classify.Result{Entries: []classify.Entry{
		{Username: "alice", Gender: classify.Female},
		{Username: "bob", Gender: classify.Male},
		{Username: "Smith, J", Gender: classify.Unknown},
	}}
}

func TestCSV(t *testing.T) {
	data, err := CSV(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, "username,gender\nalice,F\nbob,M\n\"Smith, J\",U\n", string(data))
}

func TestCSVEmptyResult(t *testing.T) {
	data, err := CSV(&classify.Result{})
	require.NoError(t, err)
	assert.Equal(t, "username,gender\n", string(data))
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	path, err := WriteFile(dir, "result.csv", sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want, _ := CSV(sampleResult())
	assert.Equal(t, want, data)
}
