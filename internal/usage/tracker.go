// Package usage tracks sessions and search activity for the dashboard and
// analytics endpoints. The tracker is an explicit dependency injected into the
// API layer, and every collection it holds is bounded: recent searches live in
// a fixed-capacity ring buffer and per-entity counters evict their smallest
// key once the cap is reached.
package usage

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultRecentSearches = 256
	DefaultMaxEntities    = 500
	DefaultMaxSessions    = 1000

	// retainedDays bounds the daily usage buckets.
	retainedDays = 30

	// sessionActiveWindow is how recently a session must have been used to
	// count as active.
	sessionActiveWindow = time.Hour
)

// SearchRecord is one tracked search operation.
type SearchRecord struct {
	SessionID string    `json:"session_id"`
	Entity    string    `json:"entity"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// EntityCount pairs an entity with its search count.
type EntityCount struct {
	Name     string `json:"name"`
	Searches int    `json:"searches"`
}

// Dashboard is the point-in-time metrics snapshot.
type Dashboard struct {
	Overview struct {
		TotalSessions             int     `json:"total_sessions"`
		ActiveSessions            int     `json:"active_sessions"`
		TotalSearches             int     `json:"total_searches"`
		SuccessRate               float64 `json:"success_rate"`
		AverageSearchesPerSession float64 `json:"average_searches_per_session"`
	} `json:"overview"`
	Activity struct {
		HourlyUsage map[string]int `json:"hourly_usage"`
		DailyUsage  map[string]int `json:"daily_usage"`
	} `json:"activity"`
	TopEntities    []EntityCount  `json:"top_entities"`
	RecentSearches []SearchRecord `json:"recent_searches"`
}

// Analytics summarizes search activity over a trailing window.
type Analytics struct {
	Period             string         `json:"period"`
	TotalSearches      int            `json:"total_searches"`
	SuccessfulSearches int            `json:"successful_searches"`
	UniqueEntities     int            `json:"unique_entities"`
	SearchesByDay      map[string]int `json:"searches_by_day"`
}

type session struct {
	userID       string
	startTime    time.Time
	searchCount  int
	lastActivity time.Time
}

// Config bounds the tracker's collections. Zero values take defaults.
type Config struct {
	RecentSearches int
	MaxEntities    int
	MaxSessions    int
}

// Tracker is a bounded, concurrency-safe usage store.
type Tracker struct {
	mu sync.Mutex

	maxEntities int
	maxSessions int

	sessions map[string]*session

	// ring buffer of recent searches
	recent []SearchRecord
	head   int
	filled bool

	totalSearches      int
	successfulSearches int
	entities           map[string]int
	hourly             map[string]int
	daily              map[string]int

	now func() time.Time
}

// NewTracker creates a tracker with the given bounds.
func NewTracker(cfg Config) *Tracker {
	if cfg.RecentSearches <= 0 {
		cfg.RecentSearches = DefaultRecentSearches
	}
	if cfg.MaxEntities <= 0 {
		cfg.MaxEntities = DefaultMaxEntities
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}

	return &Tracker{
		maxEntities: cfg.MaxEntities,
		maxSessions: cfg.MaxSessions,
		sessions:    make(map[string]*session),
		recent:      make([]SearchRecord, cfg.RecentSearches),
		entities:    make(map[string]int),
		hourly:      make(map[string]int),
		daily:       make(map[string]int),
		now:         time.Now,
	}
}

// StartSession registers a new session and returns its ID.
func (t *Tracker) StartSession(userID string) string {
	if userID == "" {
		userID = "anonymous"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.sessions) >= t.maxSessions {
		t.evictOldestSessionLocked()
	}

	id := uuid.NewString()
	now := t.now()
	t.sessions[id] = &session{
		userID:       userID,
		startTime:    now,
		lastActivity: now,
	}
	return id
}

// TrackSearch records one search operation. Unknown session IDs are ignored,
// matching the original contract of the tracking layer.
func (t *Tracker) TrackSearch(sessionID, entity string, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[sessionID]
	if !ok {
		return
	}

	now := t.now()
	sess.searchCount++
	sess.lastActivity = now

	t.recent[t.head] = SearchRecord{
		SessionID: sessionID,
		Entity:    entity,
		Success:   success,
		Timestamp: now,
	}
	t.head++
	if t.head == len(t.recent) {
		t.head = 0
		t.filled = true
	}

	t.totalSearches++
	if success {
		t.successfulSearches++
	}

	t.bumpEntityLocked(entity)
	t.hourly[now.Format("15:00")]++
	t.daily[now.Format("2006-01-02")]++
	t.pruneDailyLocked(now)
}

// DashboardMetrics returns the current metrics snapshot.
func (t *Tracker) DashboardMetrics() Dashboard {
	t.mu.Lock()
	defer t.mu.Unlock()

	var d Dashboard
	now := t.now()

	d.Overview.TotalSessions = len(t.sessions)
	for _, sess := range t.sessions {
		if now.Sub(sess.lastActivity) < sessionActiveWindow {
			d.Overview.ActiveSessions++
		}
	}
	d.Overview.TotalSearches = t.totalSearches
	if t.totalSearches > 0 {
		d.Overview.SuccessRate = float64(t.successfulSearches) / float64(t.totalSearches) * 100
	}
	sessions := len(t.sessions)
	if sessions == 0 {
		sessions = 1
	}
	d.Overview.AverageSearchesPerSession = float64(t.totalSearches) / float64(sessions)

	d.Activity.HourlyUsage = copyCounts(t.hourly)
	d.Activity.DailyUsage = copyCounts(t.daily)
	d.TopEntities = t.topEntitiesLocked(10)
	d.RecentSearches = t.recentLocked(10)

	return d
}

// AnalyticsReport summarizes activity over the trailing number of days.
func (t *Tracker) AnalyticsReport(days int) Analytics {
	if days <= 0 {
		days = 7
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().AddDate(0, 0, -days)
	byDay := make(map[string]int)
	entities := make(map[string]bool)
	total := 0
	successful := 0

	for _, record := range t.recentLocked(len(t.recent)) {
		if record.Timestamp.Before(cutoff) {
			continue
		}
		total++
		if record.Success {
			successful++
		}
		entities[record.Entity] = true
		byDay[record.Timestamp.Format("2006-01-02")]++
	}

	return Analytics{
		Period:             formatPeriod(days),
		TotalSearches:      total,
		SuccessfulSearches: successful,
		UniqueEntities:     len(entities),
		SearchesByDay:      byDay,
	}
}

// bumpEntityLocked increments an entity counter, evicting the smallest
// counter when the cap would be exceeded by a new key.
func (t *Tracker) bumpEntityLocked(entity string) {
	if _, ok := t.entities[entity]; !ok && len(t.entities) >= t.maxEntities {
		smallest := ""
		smallestCount := 0
		for name, count := range t.entities {
			if smallest == "" || count < smallestCount {
				smallest = name
				smallestCount = count
			}
		}
		delete(t.entities, smallest)
	}
	t.entities[entity]++
}

func (t *Tracker) evictOldestSessionLocked() {
	oldest := ""
	var oldestTime time.Time
	for id, sess := range t.sessions {
		if oldest == "" || sess.lastActivity.Before(oldestTime) {
			oldest = id
			oldestTime = sess.lastActivity
		}
	}
	if oldest != "" {
		delete(t.sessions, oldest)
	}
}

func (t *Tracker) pruneDailyLocked(now time.Time) {
	cutoff := now.AddDate(0, 0, -retainedDays).Format("2006-01-02")
	for day := range t.daily {
		if day < cutoff {
			delete(t.daily, day)
		}
	}
}

// recentLocked returns up to limit records, newest last.
func (t *Tracker) recentLocked(limit int) []SearchRecord {
	size := t.head
	if t.filled {
		size = len(t.recent)
	}
	if size == 0 {
		return []SearchRecord{}
	}

	records := make([]SearchRecord, 0, size)
	start := 0
	if t.filled {
		start = t.head
	}
	for i := 0; i < size; i++ {
		records = append(records, t.recent[(start+i)%len(t.recent)])
	}

	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records
}

func (t *Tracker) topEntitiesLocked(limit int) []EntityCount {
	counts := make([]EntityCount, 0, len(t.entities))
	for name, searches := range t.entities {
		counts = append(counts, EntityCount{Name: name, Searches: searches})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Searches != counts[j].Searches {
			return counts[i].Searches > counts[j].Searches
		}
		return counts[i].Name < counts[j].Name
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

func copyCounts(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func formatPeriod(days int) string {
	if days == 1 {
		return "Last 1 day"
	}
	return "Last " + strconv.Itoa(days) + " days"
}
