// Package file implements the store interfaces over plain CSV files in a
// data directory, the way the system has historically kept its records. All
// state lives in memory; writes are staged on a copy and flushed to disk with
// temp-file renames, so a failed transaction leaves both memory and disk at
// the pre-operation state.
package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"stocktrack/internal/domain"
	"stocktrack/internal/store"
)

const (
	productsFile       = "products.txt"
	counterpartiesFile = "counterparties.txt"
	titlesFile         = "titles.txt"
	movementsFile      = "movements.txt"
)

type Store struct {
	dir string
	log *zap.Logger

	mu    sync.RWMutex
	state *state
}

type state struct {
	products       map[string]domain.Product
	counterparties map[string]domain.Counterparty
	titles         map[string]domain.Title
	movements      []domain.Movement
}

func newState() *state {
	return &state{
		products:       map[string]domain.Product{},
		counterparties: map[string]domain.Counterparty{},
		titles:         map[string]domain.Title{},
	}
}

func (st *state) clone() *state {
	next := &state{
		products:       make(map[string]domain.Product, len(st.products)),
		counterparties: make(map[string]domain.Counterparty, len(st.counterparties)),
		titles:         make(map[string]domain.Title, len(st.titles)),
		movements:      make([]domain.Movement, len(st.movements)),
	}
	for id, p := range st.products {
		next.products[id] = p
	}
	for id, c := range st.counterparties {
		next.counterparties[id] = c
	}
	for id, t := range st.titles {
		next.titles[id] = t
	}
	copy(next.movements, st.movements)
	return next
}

// Open loads the data directory, creating it if needed. Rows that fail to
// parse are skipped with a warning; one bad line must not take the whole
// store down.
func Open(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	s := &Store{dir: dir, log: log, state: newState()}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	skipped := 0

	err := s.readTable(productsFile, false, func(fields []string) error {
		p, err := parseProduct(fields)
		if err != nil {
			return err
		}
		s.state.products[p.ID] = p
		return nil
	}, &skipped)
	if err != nil {
		return err
	}

	err = s.readTable(counterpartiesFile, false, func(fields []string) error {
		c, err := parseCounterparty(fields)
		if err != nil {
			return err
		}
		s.state.counterparties[c.ID] = c
		return nil
	}, &skipped)
	if err != nil {
		return err
	}

	err = s.readTable(titlesFile, false, func(fields []string) error {
		t, err := parseTitle(fields)
		if err != nil {
			return err
		}
		s.state.titles[t.ID] = t
		return nil
	}, &skipped)
	if err != nil {
		return err
	}

	err = s.readTable(movementsFile, true, func(fields []string) error {
		m, err := parseMovement(fields)
		if err != nil {
			return err
		}
		s.state.movements = append(s.state.movements, m)
		return nil
	}, &skipped)
	if err != nil {
		return err
	}

	if skipped > 0 {
		s.log.Warn("skipped unparseable rows while loading data dir",
			zap.String("dir", s.dir), zap.Int("rows", skipped))
	}
	return nil
}

func (s *Store) readTable(name string, hasHeader bool, apply func([]string) error, skipped *int) error {
	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for i, row := range rows {
		if hasHeader && i == 0 {
			continue
		}
		if err := apply(row); err != nil {
			s.log.Warn("skipping row", zap.String("file", name), zap.Int("line", i+1), zap.Error(err))
			*skipped++
		}
	}
	return nil
}

func (s *Store) Close() {}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{st: s.state})
}

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staging := s.state.clone()
	t := &tx{st: staging, writable: true, dirty: map[string]bool{}}
	if err := fn(t); err != nil {
		return err
	}
	if err := s.flush(staging, t.dirty); err != nil {
		return fmt.Errorf("persist transaction: %w", err)
	}
	s.state = staging
	return nil
}

// flush writes every dirty table to a temp file, then renames them all.
// Renames are the commit point; a write error before the first rename leaves
// the directory untouched.
func (s *Store) flush(st *state, dirty map[string]bool) error {
	type pending struct{ tmp, final string }
	var renames []pending

	writeTable := func(name, header string, rows [][]string) error {
		final := filepath.Join(s.dir, name)
		tmp := final + ".tmp"
		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("create %s: %w", tmp, err)
		}
		w := csv.NewWriter(f)
		if header != "" {
			if _, err := fmt.Fprintln(f, header); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", tmp, err)
			}
		}
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", tmp, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", tmp, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", tmp, err)
		}
		renames = append(renames, pending{tmp: tmp, final: final})
		return nil
	}

	cleanup := func() {
		for _, p := range renames {
			_ = os.Remove(p.tmp)
		}
	}

	if dirty["products"] {
		rows := make([][]string, 0, len(st.products))
		for _, p := range sortedProducts(st.products) {
			rows = append(rows, productFields(p))
		}
		if err := writeTable(productsFile, "", rows); err != nil {
			cleanup()
			return err
		}
	}
	if dirty["counterparties"] {
		rows := make([][]string, 0, len(st.counterparties))
		for _, c := range sortedCounterparties(st.counterparties) {
			rows = append(rows, counterpartyFields(c))
		}
		if err := writeTable(counterpartiesFile, "", rows); err != nil {
			cleanup()
			return err
		}
	}
	if dirty["titles"] {
		rows := make([][]string, 0, len(st.titles))
		for _, t := range sortedTitles(st.titles) {
			rows = append(rows, titleFields(t))
		}
		if err := writeTable(titlesFile, "", rows); err != nil {
			cleanup()
			return err
		}
	}
	if dirty["movements"] {
		rows := make([][]string, 0, len(st.movements))
		for _, m := range st.movements {
			rows = append(rows, movementFields(m))
		}
		if err := writeTable(movementsFile, movementHeader, rows); err != nil {
			cleanup()
			return err
		}
	}

	for _, p := range renames {
		if err := os.Rename(p.tmp, p.final); err != nil {
			return fmt.Errorf("rename %s: %w", p.tmp, err)
		}
	}
	return nil
}

type tx struct {
	st       *state
	writable bool
	dirty    map[string]bool
}

func (t *tx) mark(table string) error {
	if !t.writable {
		return fmt.Errorf("write inside read-only transaction")
	}
	t.dirty[table] = true
	return nil
}

func (t *tx) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (t *tx) ListProducts(_ context.Context) ([]domain.Product, error) {
	return sortedProducts(t.st.products), nil
}

func (t *tx) PutProduct(_ context.Context, p domain.Product) error {
	if err := t.mark("products"); err != nil {
		return err
	}
	t.st.products[p.ID] = p
	return nil
}

func (t *tx) DeleteProduct(_ context.Context, id string) error {
	if err := t.mark("products"); err != nil {
		return err
	}
	if _, ok := t.st.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.st.products, id)
	return nil
}

func (t *tx) GetCounterparty(_ context.Context, id string) (*domain.Counterparty, error) {
	c, ok := t.st.counterparties[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (t *tx) ListCounterparties(_ context.Context) ([]domain.Counterparty, error) {
	return sortedCounterparties(t.st.counterparties), nil
}

func (t *tx) PutCounterparty(_ context.Context, c domain.Counterparty) error {
	if err := t.mark("counterparties"); err != nil {
		return err
	}
	t.st.counterparties[c.ID] = c
	return nil
}

func (t *tx) DeleteCounterparty(_ context.Context, id string) error {
	if err := t.mark("counterparties"); err != nil {
		return err
	}
	if _, ok := t.st.counterparties[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.st.counterparties, id)
	return nil
}

func (t *tx) GetTitle(_ context.Context, id string) (*domain.Title, error) {
	title, ok := t.st.titles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &title, nil
}

func (t *tx) ListTitles(_ context.Context, openOnly bool) ([]domain.Title, error) {
	titles := make([]domain.Title, 0, len(t.st.titles))
	for _, title := range t.st.titles {
		if openOnly && title.Paid {
			continue
		}
		titles = append(titles, title)
	}
	sort.Slice(titles, func(i, j int) bool {
		if !titles[i].CreatedAt.Equal(titles[j].CreatedAt) {
			return titles[i].CreatedAt.Before(titles[j].CreatedAt)
		}
		return titles[i].ID < titles[j].ID
	})
	return titles, nil
}

func (t *tx) PutTitle(_ context.Context, title domain.Title) error {
	if err := t.mark("titles"); err != nil {
		return err
	}
	t.st.titles[title.ID] = title
	return nil
}

func (t *tx) AppendMovement(_ context.Context, m domain.Movement) error {
	if err := t.mark("movements"); err != nil {
		return err
	}
	t.st.movements = append(t.st.movements, m)
	return nil
}

func (t *tx) ListMovements(_ context.Context, filter store.MovementFilter) ([]domain.Movement, error) {
	out := make([]domain.Movement, 0, len(t.st.movements))
	for _, m := range t.st.movements {
		if filter.Matches(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func sortedProducts(m map[string]domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedCounterparties(m map[string]domain.Counterparty) []domain.Counterparty {
	out := make([]domain.Counterparty, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedTitles(m map[string]domain.Title) []domain.Title {
	out := make([]domain.Title, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
