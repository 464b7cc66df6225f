package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeID_TimeOrdered(t *testing.T) {
	prev := NewNodeID()
	for i := 0; i < 100; i++ {
		next := NewNodeID()
		assert.Less(t, string(prev), string(next), "ids must sort in creation order")
		prev = next
	}
}

func TestIDFromContent_Deterministic(t *testing.T) {
	a := IDFromContent([]byte("hello world"))
	b := IDFromContent([]byte("hello world"))
	c := IDFromContent([]byte("hello worlds"))

	assert.Equal(t, a, b, "same content must produce the same id")
	assert.NotEqual(t, a, c, "different content must produce different ids")
}

func TestItemFingerprint_CoversAllContent(t *testing.T) {
	base := Item{Key: "doc.pdf", Data: []byte("raw"), Text: "text"}

	same := base.Clone()
	assert.Equal(t, base.Fingerprint(), same.Fingerprint())

	keyed := base.Clone()
	keyed.Key = "other.pdf"
	assert.NotEqual(t, base.Fingerprint(), keyed.Fingerprint())

	texted := base.Clone()
	texted.Text = "different"
	assert.NotEqual(t, base.Fingerprint(), texted.Fingerprint())
}

func TestItemClone_Independent(t *testing.T) {
	orig := Item{
		Key:      "doc",
		Data:     []byte("payload"),
		Vector:   []float32{1, 2, 3},
		Metadata: map[string]string{"lang": "en"},
	}

	clone := orig.Clone()
	clone.Data[0] = 'X'
	clone.Vector[0] = 9
	clone.Metadata["lang"] = "de"

	assert.Equal(t, byte('p'), orig.Data[0])
	assert.Equal(t, float32(1), orig.Vector[0])
	assert.Equal(t, "en", orig.Metadata["lang"])
}

func TestCloneItems(t *testing.T) {
	items := []Item{{Key: "a"}, {Key: "b"}}
	cloned := CloneItems(items)
	require.Len(t, cloned, 2)
	cloned[0].Key = "changed"
	assert.Equal(t, "a", items[0].Key)
}
