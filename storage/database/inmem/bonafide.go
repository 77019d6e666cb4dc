package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/chuo/core/bonafide"
)

type bonafideRepository struct {
	db *bonafideTable
}

var _ bonafide.Repository = (*bonafideRepository)(nil) // interface compliance check

func NewBonafideRepository(db *DB) *bonafideRepository {
	return &bonafideRepository{db: db.bonafides}
}

func (repo *bonafideRepository) CreateRequest(ctx context.Context, req bonafide.Request) (bonafide.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[req.ID] = &req
	return req, nil
}

func (repo *bonafideRepository) GetRequestByID(ctx context.Context, id string) (bonafide.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if req, ok := repo.db.table[id]; ok {
		out := *req
		out.Status = bonafide.NormalizeStatus(string(out.Status))
		return out, nil
	}
	return bonafide.Request{}, bonafide.ErrNotFound
}

func (repo *bonafideRepository) QueryRequests(ctx context.Context, filter bonafide.QueryFilter) ([]bonafide.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var spellings map[string]struct{}
	if len(filter.Statuses) > 0 {
		spellings = make(map[string]struct{})
		for _, status := range filter.Statuses {
			for _, s := range bonafide.StoredSpellings(status) {
				spellings[s] = struct{}{}
			}
		}
	}

	reqs := make([]bonafide.Request, 0)
	for _, req := range repo.db.table {
		if filter.StudentRoll != "" && req.StudentRoll != filter.StudentRoll {
			continue
		}
		if spellings != nil {
			if _, ok := spellings[string(req.Status)]; !ok {
				continue
			}
		}
		out := *req
		out.Status = bonafide.NormalizeStatus(string(out.Status))
		reqs = append(reqs, out)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.Before(reqs[j].CreatedAt) })
	return reqs, nil
}

func (repo *bonafideRepository) CountRequestsSince(ctx context.Context, roll string, since time.Time) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, req := range repo.db.table {
		if req.StudentRoll == roll && !req.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (repo *bonafideRepository) UpdateRequest(ctx context.Context, req bonafide.Request) (bonafide.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[req.ID]
	if !ok {
		return bonafide.Request{}, bonafide.ErrNotFound
	}
	req.CreatedAt = orig.CreatedAt // immutable
	repo.db.table[req.ID] = &req
	return req, nil
}
