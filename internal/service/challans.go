// Package service holds the portal's application logic: the challan list
// workflow and the challan form workflow, both sitting between the web
// handlers and the backend client.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/automan-solutions/challandesk/internal/domain"
	"github.com/automan-solutions/challandesk/internal/domain/challan"
	"github.com/automan-solutions/challandesk/internal/domain/session"
)

// ListState is the challan list as one browser session sees it: the full
// loaded collection, the filtered view, and the selection set. It lives
// in the session store between requests.
type ListState struct {
	Challans []challan.Challan `json:"challans"`
	Filtered []challan.Challan `json:"filtered"`
	Filter   challan.Filter    `json:"filter"`
	Selected map[string]bool   `json:"selected"`
	Loaded   bool              `json:"loaded"`
}

// BulkResult summarizes a bulk delete: every requested ID lands in either
// Succeeded or Failed.
type BulkResult struct {
	Requested int
	Succeeded []string
	Failed    []string
}

// ChallanLister is the slice of the backend client the list service uses.
type ChallanLister interface {
	ListChallans(ctx context.Context, token string) ([]challan.Challan, error)
	DeleteChallan(ctx context.Context, token, id string) error
	SendOTP(ctx context.Context, token, id string) error
	VerifyOTP(ctx context.Context, token, id, otp string) (string, error)
	ResendPDF(ctx context.Context, token, id string) error
}

// ListService drives the challan list workflow.
type ListService struct {
	backend ChallanLister
	log     *slog.Logger
}

// NewListService creates the list service.
func NewListService(backend ChallanLister, log *slog.Logger) *ListService {
	return &ListService{backend: backend, log: log}
}

// Load fetches the tenant's challans and resets the view: the filter is
// cleared, the filtered view mirrors the full list, and the selection is
// emptied. An empty backend result is a valid state, not an error.
func (s *ListService) Load(ctx context.Context, token string) (*ListState, error) {
	list, err := s.backend.ListChallans(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrGateway) {
			return nil, fmt.Errorf("challan service unavailable: %w", err)
		}
		return nil, fmt.Errorf("load challans: %w", err)
	}
	if list == nil {
		list = []challan.Challan{}
	}
	return &ListState{
		Challans: list,
		Filtered: list,
		Selected: map[string]bool{},
		Loaded:   true,
	}, nil
}

// EmptyListState returns a loaded, empty view. Reload failures land
// here: stale rows must never be shown as if they were current.
func EmptyListState() *ListState {
	return &ListState{
		Challans: []challan.Challan{},
		Filtered: []challan.Challan{},
		Selected: map[string]bool{},
		Loaded:   true,
	}
}

// ApplyFilter recomputes the filtered view over the already loaded
// collection. No backend round trip happens here. The selection is
// cleared: it described rows of the previous view.
func (s *ListService) ApplyFilter(st *ListState, f challan.Filter) {
	st.Filter = f
	st.Filtered = challan.Apply(st.Challans, f)
	st.Selected = map[string]bool{}
}

// ResetFilter restores the unfiltered view and clears the selection.
func (s *ListService) ResetFilter(st *ListState) {
	st.Filter = challan.Filter{}
	st.Filtered = st.Challans
	st.Selected = map[string]bool{}
}

// ToggleSelect flips one row's membership in the selection set.
func (s *ListService) ToggleSelect(st *ListState, id string) {
	if st.Selected == nil {
		st.Selected = map[string]bool{}
	}
	if st.Selected[id] {
		delete(st.Selected, id)
	} else {
		st.Selected[id] = true
	}
}

// ToggleSelectAll operates on the filtered view only: when every visible
// row is already selected the selection clears, otherwise every visible
// row becomes selected.
func (s *ListService) ToggleSelectAll(st *ListState) {
	if st.Selected == nil {
		st.Selected = map[string]bool{}
	}
	allSelected := len(st.Filtered) > 0
	for _, c := range st.Filtered {
		if !st.Selected[c.ChallanNo] {
			allSelected = false
			break
		}
	}
	if allSelected {
		st.Selected = map[string]bool{}
		return
	}
	for _, c := range st.Filtered {
		st.Selected[c.ChallanNo] = true
	}
}

// SelectedIDs returns the selection as a slice.
func (st *ListState) SelectedIDs() []string {
	ids := make([]string, 0, len(st.Selected))
	for id, on := range st.Selected {
		if on {
			ids = append(ids, id)
		}
	}
	return ids
}

// BulkDelete deletes the given challans concurrently. Every delete runs
// regardless of its siblings' outcomes; the result records both sets.
// Only tenant roles may delete.
func (s *ListService) BulkDelete(ctx context.Context, sess *session.Session, ids []string) (*BulkResult, error) {
	if !sess.Allowed(session.RoleAdmin, session.RoleStaff) {
		return nil, fmt.Errorf("%w: bulk delete", domain.ErrForbidden)
	}
	res := &BulkResult{Requested: len(ids)}
	if len(ids) == 0 {
		return res, nil
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := s.backend.DeleteChallan(ctx, sess.Token, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn("bulk delete item failed", "challan", id, "error", err)
				res.Failed = append(res.Failed, id)
				return
			}
			res.Succeeded = append(res.Succeeded, id)
		}(id)
	}
	wg.Wait()
	sort.Strings(res.Succeeded)
	sort.Strings(res.Failed)
	return res, nil
}

// DeleteOne removes a single challan.
func (s *ListService) DeleteOne(ctx context.Context, sess *session.Session, id string) error {
	if !sess.Allowed(session.RoleAdmin, session.RoleStaff) {
		return fmt.Errorf("%w: delete challan", domain.ErrForbidden)
	}
	return s.backend.DeleteChallan(ctx, sess.Token, id)
}

// SendOTP triggers delivery-OTP dispatch for a challan.
func (s *ListService) SendOTP(ctx context.Context, token, id string) error {
	return s.backend.SendOTP(ctx, token, id)
}

// VerifyOTP confirms delivery with the customer's OTP.
func (s *ListService) VerifyOTP(ctx context.Context, token, id, otp string) (string, error) {
	return s.backend.VerifyOTP(ctx, token, id, otp)
}

// ResendPDF asks the backend to regenerate and re-send the challan PDF.
func (s *ListService) ResendPDF(ctx context.Context, token, id string) error {
	return s.backend.ResendPDF(ctx, token, id)
}
