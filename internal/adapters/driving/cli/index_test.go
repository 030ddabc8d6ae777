package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

func TestIndexStatusCmd_Current(t *testing.T) {
	svc := &mockSimilarityService{status: domain.IndexStatus{
		IndexMeta:       domain.IndexMeta{Generation: 7, Bits: 3, Count: 250},
		StoreGeneration: 7,
	}}
	setServices(t, &Services{Similarity: svc})

	out, err := execute(t, "index", "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Embeddings:  250")
	assert.Contains(t, out, "Bucket bits: 3")
	assert.Contains(t, out, "Generation:  7 (store 7)")
	assert.Contains(t, out, "current")
}

func TestIndexStatusCmd_Stale(t *testing.T) {
	svc := &mockSimilarityService{status: domain.IndexStatus{
		IndexMeta:       domain.IndexMeta{Generation: 4},
		StoreGeneration: 9,
		Stale:           true,
	}}
	setServices(t, &Services{Similarity: svc})

	out, err := execute(t, "index", "status")

	require.NoError(t, err)
	assert.Contains(t, out, "stale")
}

func TestIndexRebuildCmd(t *testing.T) {
	svc := &mockSimilarityService{status: domain.IndexStatus{
		IndexMeta: domain.IndexMeta{Generation: 2, Bits: 2, Count: 42},
	}}
	setServices(t, &Services{Similarity: svc})

	out, err := execute(t, "index", "rebuild")

	require.NoError(t, err)
	assert.Equal(t, 1, svc.rebuilds)
	assert.Contains(t, out, "Index rebuilt: 42 embeddings in 2-bit buckets.")
}

func TestIndexRebuildCmd_Error(t *testing.T) {
	svc := &mockSimilarityService{err: domain.ErrStorageIO}
	setServices(t, &Services{Similarity: svc})

	_, err := execute(t, "index", "rebuild")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageIO)
}

func TestIndexCmd_NotConfigured(t *testing.T) {
	setServices(t, &Services{})

	_, err := execute(t, "index", "status")
	assert.Error(t, err)

	_, err = execute(t, "index", "rebuild")
	assert.Error(t, err)
}
