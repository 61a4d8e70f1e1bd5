package inmemdb

import (
	"context"
	"sort"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/study"
)

type studyRepository struct {
	db *sessionTable
}

var _ study.Repository = (*studyRepository)(nil) // interface compliance check

func NewStudyRepository(db *DB) study.Repository {
	return &studyRepository{db: db.session}
}

func (repo *studyRepository) CreateSession(_ context.Context, s study.Session, _ ...core.DBExecutor) (study.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *studyRepository) GetSession(_ context.Context, ownerID, id string, _ ...core.DBExecutor) (study.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok && s.OwnerID == ownerID {
		return *s, nil
	}
	return study.Session{}, study.ErrNotFound
}

func (repo *studyRepository) GetActiveSession(_ context.Context, ownerID string, _ ...core.DBExecutor) (study.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.table {
		if s.OwnerID == ownerID && s.Active() {
			return *s, nil
		}
	}
	return study.Session{}, study.ErrNotFound
}

func (repo *studyRepository) SaveSession(_ context.Context, s study.Session, _ ...core.DBExecutor) (study.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[s.ID]
	if !ok || orig.OwnerID != s.OwnerID {
		return study.Session{}, study.ErrNotFound
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *studyRepository) QuerySessions(_ context.Context, ownerID string, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]study.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sessions []study.Session
	for _, s := range repo.db.table {
		if s.OwnerID == ownerID {
			sessions = append(sessions, *s)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "started_at", Ascending: false}}
	}
	sortSessions(sessions, ordering)
	return sessions, nil
}

func sortSessions(sessions []study.Session, ordering []core.DBOrdering) {
	sort.SliceStable(sessions, func(i, j int) bool {
		// later terms break ties, matching a multi-column ORDER BY
		for _, ord := range ordering {
			a, b := sessions[i], sessions[j]
			if !ord.Ascending {
				a, b = b, a
			}
			var less, more bool
			switch ord.Field {
			case "ended_at":
				less, more = a.EndedAt.Before(b.EndedAt), b.EndedAt.Before(a.EndedAt)
			default: // started_at
				less, more = a.StartedAt.Before(b.StartedAt), b.StartedAt.Before(a.StartedAt)
			}
			if less {
				return true
			}
			if more {
				return false
			}
		}
		return false
	})
}
