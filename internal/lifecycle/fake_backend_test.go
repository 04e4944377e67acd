package lifecycle

import (
	"context"
	"sync"

	"github.com/farm2consumer/backend/internal/session"
)

type fakeBackend struct {
	mu sync.Mutex

	listings    []Listing
	recommended []Listing
	fetchErr    error

	deleteErr  error
	notifyErr  error
	uncacheErr error

	// release, when set, holds DeleteListing until it is closed.
	release chan struct{}

	deleted  []string
	notices  []Notice
	uncached []string
}

func (f *fakeBackend) FetchListings(ctx context.Context, sess session.Session) ([]Listing, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]Listing(nil), f.listings...), nil
}

func (f *fakeBackend) FetchRecommendedListings(ctx context.Context, sess session.Session) ([]Listing, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]Listing(nil), f.recommended...), nil
}

func (f *fakeBackend) DeleteListing(ctx context.Context, listingID string) error {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, listingID)
	return nil
}

func (f *fakeBackend) CreateNotification(ctx context.Context, notice Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.notices = append(f.notices, notice)
	return nil
}

func (f *fakeBackend) RemoveFromRecommendationCache(ctx context.Context, listingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uncacheErr != nil {
		return f.uncacheErr
	}
	f.uncached = append(f.uncached, listingID)
	return nil
}

func (f *fakeBackend) snapshot() (deleted []string, notices []Notice, uncached []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...), append([]Notice(nil), f.notices...), append([]string(nil), f.uncached...)
}

type recordingObserver struct {
	ch chan Retirement
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{ch: make(chan Retirement, 32)}
}

func (o *recordingObserver) ObserveRetirement(r Retirement) {
	o.ch <- r
}

// explodingBackend panics on delete.
type explodingBackend struct {
	fakeBackend
}

func (b *explodingBackend) DeleteListing(ctx context.Context, listingID string) error {
	panic("delete exploded")
}
