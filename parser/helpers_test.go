package parser

import (
	"context"
	"fmt"
	"time"
)

// fakeSession serves canned pages by URL
type fakeSession struct {
	pages   map[string]string
	current string
	visits  []string
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	page, ok := s.pages[url]
	if !ok {
		return fmt.Errorf("no route to %s", url)
	}
	s.visits = append(s.visits, url)
	s.current = page
	return nil
}

func (s *fakeSession) HTML(context.Context) (string, error) { return s.current, nil }

func (s *fakeSession) Close() error { return nil }

// fakeFetcher serves canned pages by URL; unknown URLs fail at transport level
type fakeFetcher struct {
	pages  map[string]string
	visits []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.visits = append(f.visits, url)
	page, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("connection refused: %s", url)
	}
	return page, nil
}

var fixedTime = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newEnv(sessionPages, fetchPages map[string]string) (*Env, *fakeSession, *fakeFetcher) {
	s := &fakeSession{pages: sessionPages}
	f := &fakeFetcher{pages: fetchPages}
	return &Env{Session: s, Fetcher: f, Now: func() time.Time { return fixedTime }}, s, f
}
