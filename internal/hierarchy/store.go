// Package hierarchy owns the authoring view of a course: modules and their
// mixed material/evaluation lists, each mutation paired with a remote write.
//
// Renames, deletes and additions are applied locally only after the remote
// confirms them. Reorders are applied locally first and then persisted; a
// failed persist leaves the new order in place, notifies, and returns a
// *course.TransportError. Resync re-sends the full current order.
package hierarchy

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/logger"
	"github.com/mind-engage/mindengage-courseware/internal/ordering"
)

// Remote is the persistence collaborator. internal/api/client implements it.
type Remote interface {
	ListModules(ctx context.Context, courseID string) ([]course.Module, error)
	CreateModule(ctx context.Context, courseID, title string) (course.Module, error)
	RenameModule(ctx context.Context, courseID, moduleID, title string) (course.Module, error)
	DeleteModule(ctx context.Context, courseID, moduleID string) error
	ReorderModules(ctx context.Context, courseID string, ids []string) error

	ListModuleContent(ctx context.Context, moduleID string) ([]course.ContentItem, error)
	ReorderModuleContent(ctx context.Context, moduleID string, entries []course.OrderEntry) error
	AddMaterial(ctx context.Context, moduleID string, item course.ContentItem) (course.ContentItem, error)
	AddEvaluation(ctx context.Context, moduleID string, ev course.Evaluation) (course.ContentItem, error)
	RenameItem(ctx context.Context, moduleID string, ref course.OrderEntry, title string) (course.ContentItem, error)
	DeleteItem(ctx context.Context, moduleID string, ref course.OrderEntry) error
}

// Notifier receives the transient "couldn't save" messages.
type Notifier interface {
	Notify(op string, err error)
}

type NotifierFunc func(op string, err error)

func (f NotifierFunc) Notify(op string, err error) { f(op, err) }

type Option func(*Store)

func WithLogger(l *logger.Logger) Option { return func(s *Store) { s.log = logger.OrNop(l) } }

func WithNotifier(n Notifier) Option { return func(s *Store) { s.notify = n } }

// WithLoadConcurrency bounds the per-module content fetches of Load.
func WithLoadConcurrency(n int) Option { return func(s *Store) { s.loadLimit = n } }

type Store struct {
	courseID  string
	remote    Remote
	log       *logger.Logger
	notify    Notifier
	loadLimit int

	mu      sync.Mutex
	modules []course.Module
	gen     uint64 // bumped by Load and by every local edit
	closed  bool
}

func New(courseID string, remote Remote, opts ...Option) *Store {
	s := &Store{courseID: courseID, remote: remote, log: logger.Nop(), loadLimit: 4}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("service", "HierarchyStore", "course_id", courseID)
	return s
}

func (s *Store) CourseID() string { return s.courseID }

// Load replaces the tree with a fresh fetch. A Load overtaken by a newer
// Load or by a local edit returns course.ErrStale and changes nothing.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return course.ErrClosed
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	mods, err := s.remote.ListModules(ctx, s.courseID)
	if err != nil {
		return transport("list modules", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.loadLimit)
	for i := range mods {
		i := i
		g.Go(func() error {
			items, err := s.remote.ListModuleContent(gctx, mods[i].ID)
			if err != nil {
				return transport("list module content "+mods[i].ID, err)
			}
			for j := range items {
				items[j].ModuleID = mods[i].ID
				if !items[j].Kind.Valid() {
					items[j].Kind = course.KindMaterial
				}
			}
			mods[i].Items = ordering.Normalize(items)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.ErrClosed
	}
	if gen != s.gen {
		return course.ErrStale
	}
	s.modules = ordering.Normalize(mods)
	s.log.Debug("hierarchy loaded", "modules", len(s.modules))
	return nil
}

// Close detaches the store; responses arriving afterwards are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Modules returns a deep copy of the tree.
func (s *Store) Modules() []course.Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]course.Module, len(s.modules))
	for i, m := range s.modules {
		m.Items = append([]course.ContentItem(nil), m.Items...)
		out[i] = m
	}
	return out
}

func (s *Store) Module(id string) (course.Module, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.moduleIndexLocked(id)
	if i < 0 {
		return course.Module{}, false
	}
	m := s.modules[i]
	m.Items = append([]course.ContentItem(nil), m.Items...)
	return m, true
}

func (s *Store) CreateModule(ctx context.Context, title string) (course.Module, error) {
	if err := course.ValidateTitle(title); err != nil {
		return course.Module{}, err
	}
	if err := s.alive(); err != nil {
		return course.Module{}, err
	}
	m, err := s.remote.CreateModule(ctx, s.courseID, title)
	if err != nil {
		return course.Module{}, transport("create module", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.Module{}, course.ErrClosed
	}
	m.CourseID = s.courseID
	m.OrderIndex = len(s.modules)
	m.Items = nil
	s.modules = append(s.modules, m)
	s.gen++
	return m, nil
}

func (s *Store) RenameModule(ctx context.Context, moduleID, title string) error {
	if err := course.ValidateTitle(title); err != nil {
		return err
	}
	if _, err := s.lookupModule(moduleID); err != nil {
		return err
	}
	if _, err := s.remote.RenameModule(ctx, s.courseID, moduleID, title); err != nil {
		return transport("rename module", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.ErrClosed
	}
	if i := s.moduleIndexLocked(moduleID); i >= 0 {
		s.modules[i].Title = title
		s.gen++
	}
	return nil
}

// DeleteModule removes a module and everything in it.
func (s *Store) DeleteModule(ctx context.Context, moduleID string) error {
	if _, err := s.lookupModule(moduleID); err != nil {
		return err
	}
	if err := s.remote.DeleteModule(ctx, s.courseID, moduleID); err != nil {
		return transport("delete module", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.ErrClosed
	}
	if i := s.moduleIndexLocked(moduleID); i >= 0 {
		rest := append(append([]course.Module(nil), s.modules[:i]...), s.modules[i+1:]...)
		s.modules = ordering.Reindex(rest)
		s.gen++
	}
	return nil
}

func (s *Store) AddMaterial(ctx context.Context, moduleID string, item course.ContentItem) (course.ContentItem, error) {
	item.Kind = course.KindMaterial
	item.MediaType = course.ParseMediaType(string(item.MediaType))
	if err := course.ValidateMaterial(item); err != nil {
		return course.ContentItem{}, err
	}
	if _, err := s.lookupModule(moduleID); err != nil {
		return course.ContentItem{}, err
	}
	created, err := s.remote.AddMaterial(ctx, moduleID, item)
	if err != nil {
		return course.ContentItem{}, transport("add material", err)
	}
	created.Kind = course.KindMaterial
	return s.appendItem(moduleID, created)
}

func (s *Store) AddEvaluation(ctx context.Context, moduleID string, ev course.Evaluation) (course.ContentItem, error) {
	if err := course.ValidateEvaluation(ev); err != nil {
		return course.ContentItem{}, err
	}
	if _, err := s.lookupModule(moduleID); err != nil {
		return course.ContentItem{}, err
	}
	created, err := s.remote.AddEvaluation(ctx, moduleID, ev)
	if err != nil {
		return course.ContentItem{}, transport("add evaluation", err)
	}
	created.Kind = course.KindEvaluation
	return s.appendItem(moduleID, created)
}

func (s *Store) appendItem(moduleID string, item course.ContentItem) (course.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.ContentItem{}, course.ErrClosed
	}
	i := s.moduleIndexLocked(moduleID)
	if i < 0 {
		return course.ContentItem{}, course.NotFound("module", moduleID)
	}
	item.ModuleID = moduleID
	item.OrderIndex = len(s.modules[i].Items)
	s.modules[i].Items = append(s.modules[i].Items, item)
	s.gen++
	return item, nil
}

// RenameItem renames a material or evaluation. The kind is taken from the
// local tree so the remote call reaches the right resource.
func (s *Store) RenameItem(ctx context.Context, moduleID, itemID, title string) error {
	if err := course.ValidateTitle(title); err != nil {
		return err
	}
	item, err := s.lookupItem(moduleID, itemID)
	if err != nil {
		return err
	}
	ref := course.OrderEntry{ID: item.ID, Kind: item.Kind}
	if _, err := s.remote.RenameItem(ctx, moduleID, ref, title); err != nil {
		return transport("rename "+string(item.Kind), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.ErrClosed
	}
	if mi, ii := s.itemIndexLocked(moduleID, itemID); ii >= 0 {
		s.modules[mi].Items[ii].Title = title
		s.gen++
	}
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, moduleID, itemID string) error {
	item, err := s.lookupItem(moduleID, itemID)
	if err != nil {
		return err
	}
	ref := course.OrderEntry{ID: item.ID, Kind: item.Kind}
	if err := s.remote.DeleteItem(ctx, moduleID, ref); err != nil {
		return transport("delete "+string(item.Kind), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.ErrClosed
	}
	if mi, ii := s.itemIndexLocked(moduleID, itemID); ii >= 0 {
		items := s.modules[mi].Items
		rest := append(append([]course.ContentItem(nil), items[:ii]...), items[ii+1:]...)
		s.modules[mi].Items = ordering.Reindex(rest)
		s.gen++
	}
	return nil
}

// MoveModule is the drag-and-drop entry point for the module list.
func (s *Store) MoveModule(ctx context.Context, from, to int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return course.ErrClosed
	}
	moved, err := ordering.MoveTo(s.modules, from, to)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if from == to {
		s.mu.Unlock()
		return nil
	}
	s.modules = moved
	s.gen++
	ids := ordering.Keys(moved)
	s.mu.Unlock()

	return s.persistModules(ctx, ids)
}

// ReorderModules applies a full id order. Every current module must appear
// exactly once.
func (s *Store) ReorderModules(ctx context.Context, ids []string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return course.ErrClosed
	}
	arranged, err := ordering.Arrange(s.modules, ids, "module")
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.modules = arranged
	s.gen++
	keys := ordering.Keys(arranged)
	s.mu.Unlock()

	return s.persistModules(ctx, keys)
}

// MoveItem moves one entry inside a module's mixed list.
func (s *Store) MoveItem(ctx context.Context, moduleID string, from, to int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return course.ErrClosed
	}
	mi := s.moduleIndexLocked(moduleID)
	if mi < 0 {
		s.mu.Unlock()
		return course.NotFound("module", moduleID)
	}
	moved, err := ordering.MoveTo(s.modules[mi].Items, from, to)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if from == to {
		s.mu.Unlock()
		return nil
	}
	s.modules[mi].Items = moved
	s.gen++
	entries := ordering.Entries(moved)
	s.mu.Unlock()

	return s.persistItems(ctx, moduleID, entries)
}

// ReorderItems applies a full kind-tagged order to a module's list. An entry
// whose kind disagrees with the local item is rejected.
func (s *Store) ReorderItems(ctx context.Context, moduleID string, entries []course.OrderEntry) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return course.ErrClosed
	}
	mi := s.moduleIndexLocked(moduleID)
	if mi < 0 {
		s.mu.Unlock()
		return course.NotFound("module", moduleID)
	}
	items := s.modules[mi].Items
	arranged, err := ordering.Arrange(items, ordering.EntryKeys(entries), "content item")
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for i, e := range entries {
		if e.Kind != "" && e.Kind != arranged[i].Kind {
			s.mu.Unlock()
			return course.Invalid("kind", "entry "+e.ID+" is "+string(arranged[i].Kind)+", not "+string(e.Kind))
		}
	}
	s.modules[mi].Items = arranged
	s.gen++
	out := ordering.Entries(arranged)
	s.mu.Unlock()

	return s.persistItems(ctx, moduleID, out)
}

// Resync re-sends the current module order and every module's item order.
// It is the retry path after a failed reorder.
func (s *Store) Resync(ctx context.Context) error {
	mods := s.Modules()
	if err := s.alive(); err != nil {
		return err
	}
	if err := s.persistModules(ctx, ordering.Keys(mods)); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.loadLimit)
	for _, m := range mods {
		m := m
		if len(m.Items) == 0 {
			continue
		}
		g.Go(func() error { return s.persistItems(gctx, m.ID, ordering.Entries(m.Items)) })
	}
	return g.Wait()
}

func (s *Store) persistModules(ctx context.Context, ids []string) error {
	if err := s.remote.ReorderModules(ctx, s.courseID, ids); err != nil {
		return s.persistFailed("reorder modules", err)
	}
	return nil
}

func (s *Store) persistItems(ctx context.Context, moduleID string, entries []course.OrderEntry) error {
	if err := s.remote.ReorderModuleContent(ctx, moduleID, entries); err != nil {
		return s.persistFailed("reorder content", err)
	}
	return nil
}

// persistFailed keeps the optimistic order and reports the failure.
func (s *Store) persistFailed(op string, err error) error {
	if errors.Is(err, context.Canceled) || s.alive() != nil {
		return err
	}
	terr := transport(op, err)
	s.log.Warn("persist failed, keeping local order", "op", op, "error", err)
	if s.notify != nil {
		s.notify.Notify(op, terr)
	}
	return terr
}

func (s *Store) alive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.ErrClosed
	}
	return nil
}

func (s *Store) lookupModule(id string) (course.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.Module{}, course.ErrClosed
	}
	i := s.moduleIndexLocked(id)
	if i < 0 {
		return course.Module{}, course.NotFound("module", id)
	}
	return s.modules[i], nil
}

func (s *Store) lookupItem(moduleID, itemID string) (course.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.ContentItem{}, course.ErrClosed
	}
	mi, ii := s.itemIndexLocked(moduleID, itemID)
	if mi < 0 {
		return course.ContentItem{}, course.NotFound("module", moduleID)
	}
	if ii < 0 {
		return course.ContentItem{}, course.NotFound("content item", itemID)
	}
	return s.modules[mi].Items[ii], nil
}

func (s *Store) moduleIndexLocked(id string) int {
	for i := range s.modules {
		if s.modules[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) itemIndexLocked(moduleID, itemID string) (int, int) {
	mi := s.moduleIndexLocked(moduleID)
	if mi < 0 {
		return -1, -1
	}
	for i := range s.modules[mi].Items {
		if s.modules[mi].Items[i].ID == itemID {
			return mi, i
		}
	}
	return mi, -1
}

// transport passes through errors the remote already classified and wraps
// everything else as a TransportError.
func transport(op string, err error) error {
	if course.IsTransport(err) || course.IsNotFound(err) || course.IsValidation(err) {
		return err
	}
	return &course.TransportError{Op: op, Err: err}
}
