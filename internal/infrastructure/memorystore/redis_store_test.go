package memorystore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicEmbeddings_Embed_Deterministic(t *testing.T) {
	e := NewDeterministicEmbeddings()

	v1, err := e.Embed(nil, []string{"Fed raises rates"})
	assert.NoError(t, err)
	v2, err := e.Embed(nil, []string{"Fed raises rates"})
	assert.NoError(t, err)

	assert.Equal(t, v1, v2)
}

func TestDeterministicEmbeddings_Embed_DifferentTextsDiffer(t *testing.T) {
	e := NewDeterministicEmbeddings()

	v1, err := e.Embed(nil, []string{"Fed raises rates"})
	assert.NoError(t, err)
	v2, err := e.Embed(nil, []string{"Bakery wins award"})
	assert.NoError(t, err)

	assert.NotEqual(t, v1, v2)
}

func TestCosineSimilarity_IdenticalVectors(t *testing.T) {
	v := []float64{1, 2, 3}
	assert.InDelta(t, 1.0, cosineSimilarity(v, v), 0.0001)
}

func TestCosineSimilarity_OrthogonalVectors(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	assert.InDelta(t, 0.0, cosineSimilarity(a, b), 0.0001)
}

func TestCosineSimilarity_MismatchedLength(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{1, 2}
	assert.Equal(t, 0.0, cosineSimilarity(a, b))
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	a := []float64{0, 0, 0}
	b := []float64{1, 2, 3}
	assert.Equal(t, 0.0, cosineSimilarity(a, b))
}
