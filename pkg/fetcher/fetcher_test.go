package fetcher

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/perceforge/dotafetch/pkg/cache"
	"github.com/perceforge/dotafetch/pkg/provider"
	"github.com/perceforge/dotafetch/pkg/ratelimit"
)

// fakeCache is an in-memory Cache with call counting.
type fakeCache struct {
	mu       sync.Mutex
	store    map[string][]byte
	ttls     map[string]time.Duration
	getCalls int
	setCalls int
	deleted  []string
	patterns []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *fakeCache) Get(_ context.Context, key cache.Key, dest any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls++
	data, ok := c.store[key.String()]
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (c *fakeCache) Set(_ context.Context, key cache.Key, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.store[key.String()] = data
	c.ttls[key.String()] = ttl
}

func (c *fakeCache) Delete(_ context.Context, key cache.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, key.String())
	delete(c.store, key.String())
}

func (c *fakeCache) DeletePattern(_ context.Context, pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
}

// fakeLimiter returns a configurable result per resource and records checks.
type fakeLimiter struct {
	mu      sync.Mutex
	deny    map[string]bool
	checks  map[string]int
	offline bool
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{deny: make(map[string]bool), checks: make(map[string]int)}
}

func (l *fakeLimiter) Check(_ context.Context, resource string, limit int, _ time.Duration) ratelimit.Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checks[resource]++
	if l.offline {
		return ratelimit.Result{Allowed: true, Remaining: limit, StoreReachable: false}
	}
	if l.deny[resource] {
		return ratelimit.Result{Allowed: false, RetryAfter: 30 * time.Second, StoreReachable: true}
	}
	return ratelimit.Result{Allowed: true, Remaining: limit - 1, StoreReachable: true}
}

func (l *fakeLimiter) checkCount(resource string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checks[resource]
}

// fakePool yields one configured token and records cooldowns.
type fakePool struct {
	mu        sync.Mutex
	token     string
	exhausted bool
	nextCalls int
	cooled    []string
	cooldown  time.Duration
}

func (p *fakePool) Next() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextCalls++
	if p.token == "" || p.exhausted {
		return "", false
	}
	return p.token, true
}

func (p *fakePool) Cooldown(key string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cooled = append(p.cooled, key)
	p.cooldown = d
}

func (p *fakePool) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token == ""
}

// fakePrimary and fakeSecondary stub the adapters with call counting.
type fakePrimary struct {
	mu      sync.Mutex
	calls   int
	tokens  []string
	match   *provider.MatchRecord
	profile *provider.Profile
	history []provider.HistoryEntry
	err     error
	delay   time.Duration
}

func (p *fakePrimary) called(token string) {
	p.mu.Lock()
	p.calls++
	p.tokens = append(p.tokens, token)
	p.mu.Unlock()
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
}

func (p *fakePrimary) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakePrimary) LastMatch(_ context.Context, token, _ string) (*provider.MatchRecord, error) {
	p.called(token)
	return p.match, p.err
}

func (p *fakePrimary) Profile(_ context.Context, token, _ string) (*provider.Profile, error) {
	p.called(token)
	return p.profile, p.err
}

func (p *fakePrimary) History(_ context.Context, token, _ string, _ int) ([]provider.HistoryEntry, error) {
	p.called(token)
	return p.history, p.err
}

type fakeSecondary struct {
	mu      sync.Mutex
	calls   int
	match   *provider.MatchRecord
	profile *provider.Profile
	history []provider.HistoryEntry
	err     error
}

func (s *fakeSecondary) called() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *fakeSecondary) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeSecondary) LastMatch(_ context.Context, _ string) (*provider.MatchRecord, error) {
	s.called()
	return s.match, s.err
}

func (s *fakeSecondary) Profile(_ context.Context, _ string) (*provider.Profile, error) {
	s.called()
	return s.profile, s.err
}

func (s *fakeSecondary) History(_ context.Context, _ string, _ int) ([]provider.HistoryEntry, error) {
	s.called()
	return s.history, s.err
}

const testSubject = "115431346"

func primaryMatch() *provider.MatchRecord {
	return &provider.MatchRecord{MatchID: 7891234567, HeroID: 14, Kills: 11, Deaths: 2, Assists: 19, Won: true}
}

func secondaryMatch() *provider.MatchRecord {
	return &provider.MatchRecord{MatchID: 7891234567, HeroID: 14, Kills: 11, Deaths: 2, Assists: 19, Won: true, GoldPerMin: 512}
}

type deps struct {
	cache     *fakeCache
	limiter   *fakeLimiter
	pool      *fakePool
	primary   *fakePrimary
	secondary *fakeSecondary
}

func newDeps() deps {
	return deps{
		cache:     newFakeCache(),
		limiter:   newFakeLimiter(),
		pool:      &fakePool{token: "token-1"},
		primary:   &fakePrimary{match: primaryMatch()},
		secondary: &fakeSecondary{match: secondaryMatch()},
	}
}

func newFetcher(t *testing.T, d deps) *Fetcher {
	t.Helper()
	f, err := New(Config{
		Cache:     d.cache,
		Limiter:   d.limiter,
		Keys:      d.pool,
		Primary:   d.primary,
		Secondary: d.secondary,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return f
}

func TestNew_Validation(t *testing.T) {
	d := newDeps()

	tests := []struct {
		name   string
		config Config
	}{
		{"missing cache", Config{Limiter: d.limiter, Keys: d.pool, Primary: d.primary, Secondary: d.secondary}},
		{"missing limiter", Config{Cache: d.cache, Keys: d.pool, Primary: d.primary, Secondary: d.secondary}},
		{"missing key pool", Config{Cache: d.cache, Limiter: d.limiter, Primary: d.primary, Secondary: d.secondary}},
		{"missing primary", Config{Cache: d.cache, Limiter: d.limiter, Keys: d.pool, Secondary: d.secondary}},
		{"missing secondary", Config{Cache: d.cache, Limiter: d.limiter, Keys: d.pool, Primary: d.primary}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.config); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLastMatch_CacheHit(t *testing.T) {
	d := newDeps()
	want := primaryMatch()
	data, _ := json.Marshal(want)
	d.cache.store["last_match:"+testSubject] = data

	f := newFetcher(t, d)

	got, err := f.LastMatch(context.Background(), testSubject)
	if err != nil {
		t.Fatalf("LastMatch failed: %v", err)
	}
	if got.MatchID != want.MatchID || got.Won != want.Won {
		t.Errorf("LastMatch = %+v, want %+v", got, want)
	}

	// A warm cache must not touch providers, limiter or key pool.
	if d.primary.callCount() != 0 {
		t.Errorf("primary called %d times, want 0", d.primary.callCount())
	}
	if d.secondary.callCount() != 0 {
		t.Errorf("secondary called %d times, want 0", d.secondary.callCount())
	}
	if n := d.limiter.checkCount(ResourcePrimary); n != 0 {
		t.Errorf("primary rate limiter checked %d times, want 0", n)
	}
	if d.pool.nextCalls != 0 {
		t.Errorf("key pool consulted %d times, want 0", d.pool.nextCalls)
	}
}

func TestLastMatch_PrimarySuccess(t *testing.T) {
	d := newDeps()
	f := newFetcher(t, d)

	got, err := f.LastMatch(context.Background(), testSubject)
	if err != nil {
		t.Fatalf("LastMatch failed: %v", err)
	}
	if got.MatchID != primaryMatch().MatchID {
		t.Errorf("MatchID = %d, want %d", got.MatchID, primaryMatch().MatchID)
	}

	if d.primary.callCount() != 1 {
		t.Errorf("primary called %d times, want 1", d.primary.callCount())
	}
	if d.secondary.callCount() != 0 {
		t.Errorf("secondary called %d times, want 0", d.secondary.callCount())
	}
	if len(d.primary.tokens) != 1 || d.primary.tokens[0] != "token-1" {
		t.Errorf("primary tokens = %v, want [token-1]", d.primary.tokens)
	}

	// Result cached under the composite key with the 24h match TTL.
	if _, ok := d.cache.store["last_match:"+testSubject]; !ok {
		t.Error("result not cached under last_match:115431346")
	}
	if ttl := d.cache.ttls["last_match:"+testSubject]; ttl != 86400*time.Second {
		t.Errorf("cache TTL = %v, want 86400s", ttl)
	}
}

func TestLastMatch_QuotaCascade(t *testing.T) {
	d := newDeps()
	d.primary.err = &provider.Error{Kind: provider.KindQuota, Provider: "stratz", StatusCode: 429, Message: "quota exceeded"}
	f := newFetcher(t, d)

	got, err := f.LastMatch(context.Background(), testSubject)
	if err != nil {
		t.Fatalf("LastMatch failed: %v", err)
	}

	// Secondary called exactly once, its normalized result returned.
	if d.secondary.callCount() != 1 {
		t.Errorf("secondary called %d times, want 1", d.secondary.callCount())
	}
	if got.GoldPerMin != secondaryMatch().GoldPerMin {
		t.Errorf("result = %+v, want the secondary's output", got)
	}

	// The used key went on cooldown for the default 10 minutes.
	if len(d.pool.cooled) != 1 || d.pool.cooled[0] != "token-1" {
		t.Errorf("cooled keys = %v, want [token-1]", d.pool.cooled)
	}
	if d.pool.cooldown != 600000*time.Millisecond {
		t.Errorf("cooldown duration = %v, want 600000ms", d.pool.cooldown)
	}

	// The secondary's result is what got cached.
	var cached provider.MatchRecord
	if err := json.Unmarshal(d.cache.store["last_match:"+testSubject], &cached); err != nil {
		t.Fatalf("cached payload corrupt: %v", err)
	}
	if cached.GoldPerMin != secondaryMatch().GoldPerMin {
		t.Errorf("cached = %+v, want the secondary's output", cached)
	}
}

func TestLastMatch_RateLimitedCascade(t *testing.T) {
	d := newDeps()
	d.limiter.deny[ResourcePrimary] = true
	f := newFetcher(t, d)

	if _, err := f.LastMatch(context.Background(), testSubject); err != nil {
		t.Fatalf("LastMatch failed: %v", err)
	}

	// Denied primary budget cascades without touching the primary or its keys.
	if d.primary.callCount() != 0 {
		t.Errorf("primary called %d times, want 0", d.primary.callCount())
	}
	if d.pool.nextCalls != 0 {
		t.Errorf("key pool consulted %d times, want 0", d.pool.nextCalls)
	}
	if d.secondary.callCount() != 1 {
		t.Errorf("secondary called %d times, want 1", d.secondary.callCount())
	}
}

func TestLastMatch_PrimaryDisabled(t *testing.T) {
	d := newDeps()
	d.pool.token = "" // empty pool: provider disabled at construction
	f := newFetcher(t, d)

	if _, err := f.LastMatch(context.Background(), testSubject); err != nil {
		t.Fatalf("LastMatch failed: %v", err)
	}

	// Disabled primary short-circuits: no primary rate check, no key lookup.
	if n := d.limiter.checkCount(ResourcePrimary); n != 0 {
		t.Errorf("primary rate limiter checked %d times, want 0", n)
	}
	if d.pool.nextCalls != 0 {
		t.Errorf("key pool consulted %d times, want 0", d.pool.nextCalls)
	}
	if d.primary.callCount() != 0 {
		t.Errorf("primary called %d times, want 0", d.primary.callCount())
	}
	if d.secondary.callCount() != 1 {
		t.Errorf("secondary called %d times, want 1", d.secondary.callCount())
	}
}

func TestLastMatch_AllKeysCooling(t *testing.T) {
	d := newDeps()
	d.pool.exhausted = true
	f := newFetcher(t, d)

	if _, err := f.LastMatch(context.Background(), testSubject); err != nil {
		t.Fatalf("LastMatch failed: %v", err)
	}

	if d.primary.callCount() != 0 {
		t.Errorf("primary called %d times, want 0", d.primary.callCount())
	}
	if d.secondary.callCount() != 1 {
		t.Errorf("secondary called %d times, want 1", d.secondary.callCount())
	}
}

func TestLastMatch_NotFoundStillCascades(t *testing.T) {
	// Current behavior, pinned: a not-found from the primary still tries
	// the secondary, since the providers' data pipelines are independent.
	d := newDeps()
	d.primary.err = &provider.Error{Kind: provider.KindNotFound, Provider: "stratz", Message: "no matches for player"}
	f := newFetcher(t, d)

	got, err := f.LastMatch(context.Background(), testSubject)
	if err != nil {
		t.Fatalf("LastMatch failed: %v", err)
	}
	if d.secondary.callCount() != 1 {
		t.Errorf("secondary called %d times, want 1", d.secondary.callCount())
	}
	if got.MatchID != secondaryMatch().MatchID {
		t.Errorf("result = %+v, want the secondary's output", got)
	}

	// Not-found is not a quota signal: the key must not cool down.
	if len(d.pool.cooled) != 0 {
		t.Errorf("cooled keys = %v, want none", d.pool.cooled)
	}
}

func TestLastMatch_BothProvidersFail(t *testing.T) {
	d := newDeps()
	d.primary.err = &provider.Error{Kind: provider.KindTransient, Provider: "stratz", StatusCode: 502, Message: "bad gateway"}
	d.secondary.err = &provider.Error{Kind: provider.KindNotFound, Provider: "opendota", Message: "player not found"}
	f := newFetcher(t, d)

	_, err := f.LastMatch(context.Background(), testSubject)
	if err == nil {
		t.Fatal("expected an error when both providers fail")
	}

	// The final (secondary) provider's error surfaces, distinguishable by kind.
	if !provider.IsNotFound(err) {
		t.Errorf("error kind = %v, want not_found from the secondary", provider.KindOf(err))
	}
}

func TestLastMatch_SecondaryDenialDoesNotBlock(t *testing.T) {
	d := newDeps()
	d.pool.token = ""
	d.limiter.deny[ResourceSecondary] = true
	f := newFetcher(t, d)

	got, err := f.LastMatch(context.Background(), testSubject)
	if err != nil {
		t.Fatalf("LastMatch failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a result")
	}

	// The denial is recorded but the fallback call proceeds regardless.
	if n := d.limiter.checkCount(ResourceSecondary); n != 1 {
		t.Errorf("secondary rate limiter checked %d times, want 1", n)
	}
	if d.secondary.callCount() != 1 {
		t.Errorf("secondary called %d times, want 1", d.secondary.callCount())
	}
}

func TestLastMatch_LimiterStoreDownFailsOpen(t *testing.T) {
	d := newDeps()
	d.limiter.offline = true
	f := newFetcher(t, d)

	if _, err := f.LastMatch(context.Background(), testSubject); err != nil {
		t.Fatalf("LastMatch must not surface limiter store failures: %v", err)
	}
	if d.primary.callCount() != 1 {
		t.Errorf("primary called %d times, want 1 (fail-open)", d.primary.callCount())
	}
}

func TestLastMatch_ConcurrentMissesCollapse(t *testing.T) {
	d := newDeps()
	d.primary.delay = 100 * time.Millisecond
	f := newFetcher(t, d)

	var wg sync.WaitGroup
	results := make([]*provider.MatchRecord, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := f.LastMatch(context.Background(), testSubject)
			if err != nil {
				t.Errorf("LastMatch failed: %v", err)
				return
			}
			results[i] = got
		}(i)
	}
	wg.Wait()

	// Both callers share one upstream call and one result.
	if d.primary.callCount() != 1 {
		t.Errorf("primary called %d times, want 1 (singleflight)", d.primary.callCount())
	}
	if results[0] == nil || results[0] != results[1] {
		t.Error("concurrent callers should share the in-flight result")
	}
}

func TestProfile_UsesProfileTTL(t *testing.T) {
	d := newDeps()
	d.primary.profile = &provider.Profile{SteamID: testSubject, Name: "tester", Wins: 10, Losses: 5}
	f := newFetcher(t, d)

	got, err := f.Profile(context.Background(), testSubject)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if got.Wins != 10 {
		t.Errorf("Wins = %d, want 10", got.Wins)
	}
	if ttl := d.cache.ttls["profile:"+testSubject]; ttl != 1*time.Hour {
		t.Errorf("profile TTL = %v, want 1h", ttl)
	}
}

func TestHistory_KeyIncludesLimit(t *testing.T) {
	d := newDeps()
	d.primary.history = []provider.HistoryEntry{{MatchID: 1, Won: true}, {MatchID: 2}}
	f := newFetcher(t, d)

	got, err := f.History(context.Background(), testSubject, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(history) = %d, want 2", len(got))
	}
	if _, ok := d.cache.store["history:"+testSubject+":10"]; !ok {
		t.Error("history not cached under history:115431346:10")
	}
	if ttl := d.cache.ttls["history:"+testSubject+":10"]; ttl != 30*time.Minute {
		t.Errorf("history TTL = %v, want 30m", ttl)
	}
}

func TestHistory_DefaultLimit(t *testing.T) {
	d := newDeps()
	d.primary.history = []provider.HistoryEntry{{MatchID: 1}}
	f := newFetcher(t, d)

	if _, err := f.History(context.Background(), testSubject, 0); err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if _, ok := d.cache.store["history:"+testSubject+":25"]; !ok {
		t.Error("limit <= 0 should fall back to the default history limit of 25")
	}
}

func TestInvalidate(t *testing.T) {
	d := newDeps()
	f := newFetcher(t, d)

	f.Invalidate(context.Background(), testSubject)

	wantDeleted := map[string]bool{
		"last_match:" + testSubject: true,
		"profile:" + testSubject:    true,
	}
	for _, k := range d.cache.deleted {
		delete(wantDeleted, k)
	}
	if len(wantDeleted) != 0 {
		t.Errorf("missing deletes: %v", wantDeleted)
	}

	if len(d.cache.patterns) != 1 || d.cache.patterns[0] != "history:"+testSubject+":*" {
		t.Errorf("pattern deletes = %v, want [history:115431346:*]", d.cache.patterns)
	}
}
