package envutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsers(t *testing.T) {
	t.Setenv("CF_INT", "12")
	t.Setenv("CF_BAD_INT", "x")
	t.Setenv("CF_BOOL", "true")
	t.Setenv("CF_DUR", "45")
	t.Setenv("CF_DUR2", "2m")
	t.Setenv("CF_STR", " v ")

	assert.Equal(t, 12, Int("CF_INT", 1))
	assert.Equal(t, 1, Int("CF_BAD_INT", 1))
	assert.True(t, Bool("CF_BOOL", false))
	assert.False(t, Bool("CF_MISSING", false))
	assert.Equal(t, 45*time.Second, Duration("CF_DUR", time.Second))
	assert.Equal(t, 2*time.Minute, Duration("CF_DUR2", time.Second))
	assert.Equal(t, "v", String("CF_STR", "d", nil))
	assert.Equal(t, "d", String("CF_MISSING", "d", nil))
	t.Setenv("CF_FLOAT", "0.25")
	assert.InDelta(t, 0.25, Float("CF_FLOAT", 1), 1e-9)
	assert.InDelta(t, 1.0, Float("CF_MISSING", 1), 1e-9)
}

func TestList(t *testing.T) {
	def := []string{"http://localhost:5173"}
	t.Setenv("CASEFILE_TEST_LIST", " , ")
	assert.Equal(t, def, List("CASEFILE_TEST_LIST", def))

	t.Setenv("CASEFILE_TEST_LIST", "https://a.example, ,https://b.example ")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, List("CASEFILE_TEST_LIST", def))
}
