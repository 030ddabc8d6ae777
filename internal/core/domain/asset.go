package domain

import (
	"sort"
	"time"
)

// Asset is a single photo in the device media library.
// Assets are owned by the device and never mutated by pixdex.
type Asset struct {
	// ID is the stable library identifier.
	ID string `json:"id"`

	// URI locates the asset and is the primary key of stored records.
	URI string `json:"uri"`

	// Filename is the display name of the asset.
	Filename string `json:"filename,omitempty"`

	// Width and Height are the pixel dimensions, when known.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// CreationTime is when the photo was taken or created.
	CreationTime time.Time `json:"creationTime"`

	// AlbumID is the optional album the asset belongs to.
	AlbumID string `json:"albumId,omitempty"`
}

// Page is one slice of the media library in descending creation order.
type Page struct {
	// Assets are the assets in this page.
	Assets []Asset

	// TotalCount is the library size reported at fetch time.
	TotalCount int

	// EndCursor continues listing after the last asset of this page.
	EndCursor string

	// HasNextPage reports whether the library has more assets after EndCursor.
	HasNextPage bool
}

// Permission is the media library access state.
type Permission int

const (
	// PermissionUndetermined means the user has not been asked yet.
	PermissionUndetermined Permission = iota

	// PermissionGranted allows the library to be read.
	PermissionGranted

	// PermissionDenied refuses library access.
	PermissionDenied
)

// String returns the permission name.
func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

// MonthGroup is the assets created in one calendar month.
type MonthGroup struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Assets []Asset    `json:"assets"`
}

// Label returns a short label such as "Mar 2024".
func (g MonthGroup) Label() string {
	return time.Date(g.Year, g.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// YearGroup is the assets created in one calendar year.
type YearGroup struct {
	Year   int     `json:"year"`
	Assets []Asset `json:"assets"`
}

// GroupByMonth buckets assets by UTC creation month, newest month first.
// Assets keep their input order inside each group.
func GroupByMonth(assets []Asset) []MonthGroup {
	index := make(map[[2]int]int)
	var groups []MonthGroup
	for _, a := range assets {
		t := a.CreationTime.UTC()
		key := [2]int{t.Year(), int(t.Month())}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, MonthGroup{Year: t.Year(), Month: t.Month()})
		}
		groups[i].Assets = append(groups[i].Assets, a)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Year != groups[j].Year {
			return groups[i].Year > groups[j].Year
		}
		return groups[i].Month > groups[j].Month
	})
	return groups
}

// GroupByYear buckets assets by UTC creation year, newest year first.
func GroupByYear(assets []Asset) []YearGroup {
	index := make(map[int]int)
	var groups []YearGroup
	for _, a := range assets {
		year := a.CreationTime.UTC().Year()
		i, ok := index[year]
		if !ok {
			i = len(groups)
			index[year] = i
			groups = append(groups, YearGroup{Year: year})
		}
		groups[i].Assets = append(groups[i].Assets, a)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Year > groups[j].Year
	})
	return groups
}
