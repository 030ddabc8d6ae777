package services

import (
	"context"
	"fmt"
	"strconv"
	stdsync "sync"
	"time"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
)

// --- Shared mock implementations for service tests ---

// mockLibrary implements driven.MediaLibrary over a fixed asset slice.
// Cursors are decimal offsets into the slice.
type mockLibrary struct {
	mu            stdsync.Mutex
	assets        []domain.Asset
	permission    domain.Permission
	requestResult domain.Permission
	requested     int
	reportedTotal int
	missing       map[string]bool
	pageErrAfter  int
	pageErr       error
	pagesServed   int
}

func newMockLibrary(n int) *mockLibrary {
	lib := &mockLibrary{
		permission:    domain.PermissionGranted,
		requestResult: domain.PermissionGranted,
		reportedTotal: -1,
		missing:       make(map[string]bool),
		pageErrAfter:  -1,
	}
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		lib.assets = append(lib.assets, mockAsset(fmt.Sprintf("asset-%03d", i), base.Add(-time.Duration(i)*time.Hour)))
	}
	return lib
}

func mockAsset(id string, created time.Time) domain.Asset {
	return domain.Asset{
		ID:           id,
		URI:          "file:///photos/" + id + ".jpg",
		Filename:     id + ".jpg",
		CreationTime: created,
	}
}

func (l *mockLibrary) Permission(_ context.Context) (domain.Permission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.permission, nil
}

func (l *mockLibrary) RequestPermission(_ context.Context) (domain.Permission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requested++
	l.permission = l.requestResult
	return l.permission, nil
}

func (l *mockLibrary) Remediation() string {
	return "grant access in settings"
}

func (l *mockLibrary) ListPage(_ context.Context, pageSize int, after string) (*domain.Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pageErrAfter >= 0 && l.pagesServed >= l.pageErrAfter {
		return nil, l.pageErr
	}
	l.pagesServed++

	start := 0
	if after != "" {
		var err error
		if start, err = strconv.Atoi(after); err != nil {
			return nil, domain.ErrInvalidInput
		}
	}
	end := min(start+pageSize, len(l.assets))
	start = min(start, end)

	total := len(l.assets)
	if l.reportedTotal >= 0 {
		total = l.reportedTotal
	}
	return &domain.Page{
		Assets:      append([]domain.Asset(nil), l.assets[start:end]...),
		TotalCount:  total,
		EndCursor:   strconv.Itoa(end),
		HasNextPage: end < len(l.assets),
	}, nil
}

func (l *mockLibrary) LocalContent(_ context.Context, asset domain.Asset) (*domain.ImagePayload, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.missing[asset.URI] {
		return nil, domain.ErrContentUnavailable
	}
	return &domain.ImagePayload{
		URI:         asset.URI,
		Filename:    asset.Filename,
		ContentType: "image/jpeg",
		Data:        []byte(asset.ID),
	}, nil
}

// mockTransport implements driven.ExtractionTransport.
// By default every image gets the embedding {1, 1} and the keyword "photo".
type mockTransport struct {
	mu      stdsync.Mutex
	calls   int
	sent    []string
	extract func(ctx context.Context, images []domain.ImagePayload) ([]driven.ExtractionResult, error)
}

func (m *mockTransport) Extract(ctx context.Context, images []domain.ImagePayload) ([]driven.ExtractionResult, error) {
	m.mu.Lock()
	m.calls++
	for _, img := range images {
		m.sent = append(m.sent, img.URI)
	}
	fn := m.extract
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, images)
	}
	results := make([]driven.ExtractionResult, len(images))
	for i := range images {
		results[i] = driven.ExtractionResult{Keywords: []string{"Photo"}, Embedding: []float32{1, 1}}
	}
	return results, nil
}

func (m *mockTransport) Ping(_ context.Context) error { return nil }

func (m *mockTransport) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockTransport) sentURIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}
