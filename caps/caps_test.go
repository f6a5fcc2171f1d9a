package caps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalOrdersIdentitiesAndFeatures(t *testing.T) {
	s := New(
		[]Identity{{Category: "client", Type: "bot", Name: "x"}},
		[]string{"b", "a", "c"},
	)
	assert.Equal(t, "client/bot//x<a<b<c<", s.Canonical())
}

func TestVerAndHashAreStableAndDistinct(t *testing.T) {
	s := New([]Identity{{Category: "client", Type: "bot", Name: "x"}}, []string{"a"})

	ver1 := s.Ver()
	ver2 := s.Ver()
	assert.Equal(t, ver1, ver2)

	hash1 := s.HashSHA256()
	assert.Equal(t, hash1, s.HashSHA256())
	assert.NotEqual(t, ver1, hash1)
}

func TestDefaultSetIsStable(t *testing.T) {
	assert.Equal(t, Default.Ver(), Default.Ver())
	assert.NotEmpty(t, Default.Canonical())
}
