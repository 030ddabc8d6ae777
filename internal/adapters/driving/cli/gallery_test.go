package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

func galleryFixture() *mockGalleryService {
	at := func(y int, m time.Month) time.Time { return time.Date(y, m, 10, 12, 0, 0, 0, time.UTC) }
	return &mockGalleryService{assets: []domain.Asset{
		{ID: "a", URI: "file:///a.jpg", CreationTime: at(2024, time.March)},
		{ID: "b", URI: "file:///b.jpg", CreationTime: at(2024, time.March)},
		{ID: "c", URI: "file:///c.jpg", CreationTime: at(2023, time.July)},
	}}
}

func TestGalleryMonthsCmd(t *testing.T) {
	setServices(t, &Services{Gallery: galleryFixture()})

	out, err := execute(t, "gallery", "months")

	require.NoError(t, err)
	assert.Contains(t, out, "Mar 2024")
	assert.Contains(t, out, "Jul 2023")
}

func TestGalleryYearsCmd(t *testing.T) {
	setServices(t, &Services{Gallery: galleryFixture()})

	out, err := execute(t, "gallery", "years")

	require.NoError(t, err)
	assert.Contains(t, out, "2024")
	assert.Contains(t, out, "2023")
}

func TestGalleryYearsCmd_JSON(t *testing.T) {
	setServices(t, &Services{Gallery: galleryFixture()})

	out, err := execute(t, "gallery", "years", "--json")
	require.NoError(t, err)

	var groups []domain.YearGroup
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	assert.Len(t, groups, 2)
}

func TestGalleryCmd_Empty(t *testing.T) {
	setServices(t, &Services{Gallery: &mockGalleryService{}})

	out, err := execute(t, "gallery", "months")

	require.NoError(t, err)
	assert.Contains(t, out, "pixdex sync")
}

func TestGalleryCmd_NotConfigured(t *testing.T) {
	setServices(t, &Services{})

	_, err := execute(t, "gallery", "months")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gallery service not configured")
}
