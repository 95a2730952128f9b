package restoration

import (
	"sync"

	"github.com/dmitrijs2005/photorestore/internal/client/models"
)

const defaultHistorySize = 50

// History keeps the most recent attempts, newest first.
type History struct {
	mu    sync.Mutex
	limit int
	jobs  []models.RestorationAttempt
}

// NewHistory returns a history holding at most limit attempts. A limit of
// zero or less selects the default.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = defaultHistorySize
	}
	return &History{limit: limit}
}

func (h *History) Add(a models.RestorationAttempt) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.jobs = append([]models.RestorationAttempt{a}, h.jobs...)
	if len(h.jobs) > h.limit {
		h.jobs = h.jobs[:h.limit]
	}
}

// Update applies fn to the attempt with the given id and reports whether it
// was found.
func (h *History) Update(id string, fn func(a *models.RestorationAttempt)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.jobs {
		if h.jobs[i].ID == id {
			fn(&h.jobs[i])
			return true
		}
	}
	return false
}

func (h *History) Get(id string) (models.RestorationAttempt, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, a := range h.jobs {
		if a.ID == id {
			return a, true
		}
	}
	return models.RestorationAttempt{}, false
}

func (h *History) List() []models.RestorationAttempt {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.RestorationAttempt, len(h.jobs))
	copy(out, h.jobs)
	return out
}

func (h *History) Clear() {
	h.mu.Lock()
	h.jobs = nil
	h.mu.Unlock()
}
