package jobs

import (
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LeaseStatus describes who currently holds the sync lease
type LeaseStatus struct {
	Held       bool       `json:"held"`
	Holder     string     `json:"holder,omitempty"`
	AcquiredAt *time.Time `json:"acquired_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// SyncLease allows one sync pass at a time. A lease that is never released lapses after
// its TTL so a crashed pass cannot block syncing forever.
type SyncLease struct {
	mu         sync.Mutex
	ttl        time.Duration
	token      uuid.UUID
	holder     string
	acquiredAt time.Time
	expiresAt  time.Time
	now        func() time.Time
}

func NewSyncLease(ttl time.Duration) *SyncLease {
	if ttl <= 0 {
		ttl = 45 * time.Minute
	}
	return &SyncLease{ttl: ttl, now: time.Now}
}

// TryAcquire hands out a fresh token. While another holder's lease is live it returns a conflict
// ServiceError wrapping shared.ErrSyncInProgress, with the lease status as details.
func (l *SyncLease) TryAcquire(holder string) (uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.token != uuid.Nil {
		if now.Before(l.expiresAt) {
			acquiredAt, expiresAt := l.acquiredAt, l.expiresAt
			return uuid.Nil, shared.NewServiceError(shared.ErrorCategoryConflict, "SYNC_IN_PROGRESS",
				"sync lease held by "+l.holder, "SyncLease", "TryAcquire", true, shared.ErrSyncInProgress).
				WithDetails(LeaseStatus{Held: true, Holder: l.holder, AcquiredAt: &acquiredAt, ExpiresAt: &expiresAt})
		}
		logrus.WithFields(logrus.Fields{
			"component":   "SyncLease",
			"holder":      l.holder,
			"acquired_at": l.acquiredAt,
		}).Warn("Sync lease expired without release, taking over")
	}

	l.token = uuid.New()
	l.holder = holder
	l.acquiredAt = now
	l.expiresAt = now.Add(l.ttl)
	return l.token, nil
}

// Release frees the lease if token still owns it. A stale token is ignored.
func (l *SyncLease) Release(token uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if token == uuid.Nil || token != l.token {
		return false
	}
	l.token = uuid.Nil
	l.holder = ""
	return true
}

func (l *SyncLease) Status() LeaseStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token == uuid.Nil || !l.now().Before(l.expiresAt) {
		return LeaseStatus{}
	}
	acquiredAt, expiresAt := l.acquiredAt, l.expiresAt
	return LeaseStatus{
		Held:       true,
		Holder:     l.holder,
		AcquiredAt: &acquiredAt,
		ExpiresAt:  &expiresAt,
	}
}
