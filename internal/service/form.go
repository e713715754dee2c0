package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/automan-solutions/challandesk/internal/adapter/backend"
	"github.com/automan-solutions/challandesk/internal/adapter/templatecache"
	"github.com/automan-solutions/challandesk/internal/domain"
	"github.com/automan-solutions/challandesk/internal/domain/branding"
	"github.com/automan-solutions/challandesk/internal/domain/challan"
)

// FormBackend is the slice of the backend client the form service uses.
type FormBackend interface {
	Design(ctx context.Context, token string) (*branding.Template, error)
	GetChallan(ctx context.Context, token, id string) (*challan.Challan, error)
	CreateChallan(ctx context.Context, token string, form challan.Form, images []backend.Image) (*challan.Challan, error)
	UpdateChallan(ctx context.Context, token, id string, form challan.Form, images []backend.Image) (*challan.Challan, error)
}

// FormService drives the challan form workflow: concurrent initialization
// of the branding template and (in edit mode) the record, plus submission.
type FormService struct {
	backend FormBackend
	cache   *templatecache.Cache
	log     *slog.Logger
}

// NewFormService creates the form service.
func NewFormService(b FormBackend, cache *templatecache.Cache, log *slog.Logger) *FormService {
	return &FormService{backend: b, cache: cache, log: log}
}

// FormView is the assembled state the form page renders from.
type FormView struct {
	Form     challan.Form
	Design   branding.Template
	EditID   string // empty in create mode
	Original *challan.Challan
}

// Initialize assembles the form page state. The design fetch and, when
// editing, the challan fetch run concurrently. A fresh design refreshes
// both the session copy and the tenant cache; when the fetch fails the
// session copy is used, then the cache, and only when every source is
// empty does initialization fail with ErrNoTemplate. A failed challan
// fetch in edit mode always fails initialization.
func (s *FormService) Initialize(ctx context.Context, token, tenantID string, sessionDesign *branding.Template, editID string) (*FormView, error) {
	var (
		design *branding.Template
		record *challan.Challan
		dErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		design, dErr = s.backend.Design(gctx, token)
		// Design failure is survivable; keep the group alive.
		return nil
	})
	if editID != "" {
		g.Go(func() error {
			var err error
			record, err = s.backend.GetChallan(gctx, token, editID)
			if err != nil {
				return fmt.Errorf("load challan %s: %w", editID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := &FormView{EditID: editID}

	switch {
	case dErr == nil && design != nil:
		view.Design = *design
		s.cache.Put(tenantID, *design)
	case sessionDesign != nil:
		s.log.Warn("design fetch failed, using session copy", "error", dErr)
		view.Design = *sessionDesign
	default:
		cached, ok := s.cache.Get(tenantID)
		if !ok {
			return nil, fmt.Errorf("%w: no design available", domain.ErrNoTemplate)
		}
		s.log.Warn("design fetch failed, using cached template", "error", dErr)
		view.Design = cached
	}

	if record != nil {
		view.Original = record
		view.Form = challan.FormFromChallan(*record)
	} else {
		view.Form = challan.NewForm()
	}
	return view, nil
}

// Submit creates or updates a challan. editID empty means create. Images
// accompany the form as additional multipart parts.
func (s *FormService) Submit(ctx context.Context, token string, form challan.Form, images []backend.Image, editID string) (*challan.Challan, error) {
	if editID == "" {
		c, err := s.backend.CreateChallan(ctx, token, form, images)
		if err != nil {
			return nil, fmt.Errorf("create challan: %w", err)
		}
		return c, nil
	}
	c, err := s.backend.UpdateChallan(ctx, token, editID, form, images)
	if err != nil {
		return nil, fmt.Errorf("update challan %s: %w", editID, err)
	}
	return c, nil
}
