// Package cache keeps the tiles needed to draw the current view resident.
//
// Tiles are read and built by a bounded pool of workers. Built tiles are only
// inserted by Update, which runs on the caller's goroutine and applies the
// level of detail rules: tiles leaving the view are evicted first, a coarser
// tile stays until all of its required children are in, and an inserted tile
// supersedes any finer tiles below it.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"sync"

	"github.com/eak1mov/go-vectiles/geometry"
	"github.com/eak1mov/go-vectiles/mvt"
	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/eak1mov/go-vectiles/vt"
	"golang.org/x/sync/errgroup"
)

// LevelTrace is below Debug; tiles that are not ready yet are logged at it.
const LevelTrace = slog.LevelDebug - 4

// Margins of the required sets, in tiles.
const (
	DefaultMargin         = 1
	DefaultPreviousMargin = 2
)

// Styler registers features while tiles are built and resolves styles for a
// zoom once per update cycle.
type Styler interface {
	vt.Styler
	LoadStyles(zoom float64)
}

type result struct {
	id   tile.ID
	tile *vt.Tile
	err  error
}

// Cache is safe for concurrent use, but Update and FetchTiles are meant to be
// driven by a single goroutine.
type Cache struct {
	src    tile.Reader
	logger *slog.Logger

	margin, previousMargin int
	buildOpts              []vt.Option

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu       sync.RWMutex
	resident map[tile.ID]*vt.Tile
	ready    map[tile.ID]*vt.Tile
	pending  map[tile.ID]vt.Styler
	queued   []tile.ID
	failed   tile.Set
	required tile.Set

	doneMu sync.Mutex
	done   []result
}

type config struct {
	Workers        int
	Logger         *slog.Logger
	Margin         int
	PreviousMargin int
	BuildOptions   []vt.Option
}

type Option func(*config)

// WithWorkers bounds the number of tiles read and built concurrently.
func WithWorkers(n int) Option {
	return func(c *config) { c.Workers = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// WithMargins sets how many tiles around the view are kept at the current and
// at the previous level.
func WithMargins(margin, previous int) Option {
	return func(c *config) {
		c.Margin = margin
		c.PreviousMargin = previous
	}
}

// WithBuildOptions passes options to vt.Build.
func WithBuildOptions(opts ...vt.Option) Option {
	return func(c *config) { c.BuildOptions = append(c.BuildOptions, opts...) }
}

func New(src tile.Reader, opts ...Option) *Cache {
	c := config{
		Workers:        runtime.GOMAXPROCS(0),
		Logger:         slog.New(slog.DiscardHandler),
		Margin:         DefaultMargin,
		PreviousMargin: DefaultPreviousMargin,
	}
	for _, opt := range opts {
		opt(&c)
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(max(c.Workers, 1))

	return &Cache{
		src:            src,
		logger:         c.Logger,
		margin:         c.Margin,
		previousMargin: c.PreviousMargin,
		buildOpts:      append(c.BuildOptions, vt.WithLogger(c.Logger)),
		ctx:            ctx,
		cancel:         cancel,
		group:          group,
		resident:       make(map[tile.ID]*vt.Tile),
		ready:          make(map[tile.ID]*vt.Tile),
		pending:        make(map[tile.ID]vt.Styler),
		failed:         tile.NewSet(),
		required:       tile.NewSet(),
	}
}

// Close stops the workers, waits for them and drops all tiles.
func (c *Cache) Close() error {
	c.cancel()
	err := c.group.Wait()
	c.Clear()
	return err
}

// Clear drops every resident and built tile, for example after the style
// sheet changed. Loads in flight are discarded when they finish.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.resident)
	clear(c.ready)
	clear(c.failed)
	for _, id := range c.queued {
		delete(c.pending, id)
	}
	c.queued = nil
	for id := range c.pending {
		c.pending[id] = nil
	}
}

// RequestTile schedules a load of id unless it is cached, loading or failed.
// Only tiles with malformed data are marked failed; read errors are retried.
// It never blocks: when all workers are busy the load is queued and started
// by a later FetchTiles.
func (c *Cache) RequestTile(id tile.ID, styles vt.Styler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.resident[id]; ok {
		return
	}
	if _, ok := c.ready[id]; ok {
		return
	}
	if _, ok := c.pending[id]; ok || c.failed.Contains(id) {
		return
	}
	c.pending[id] = styles
	if !c.start(id, styles) {
		c.queued = append(c.queued, id)
	}
}

// start runs a worker for id if one is free. The caller holds mu.
func (c *Cache) start(id tile.ID, styles vt.Styler) bool {
	if c.ctx.Err() != nil {
		return false
	}
	return c.group.TryGo(func() error {
		r := result{id: id}
		if c.ctx.Err() == nil {
			r.tile, r.err = c.load(id, styles)
		}
		c.doneMu.Lock()
		c.done = append(c.done, r)
		c.doneMu.Unlock()
		return nil
	})
}

func (c *Cache) load(id tile.ID, styles vt.Styler) (*vt.Tile, error) {
	data, err := c.src.ReadTile(id)
	if err != nil {
		return nil, err
	}
	return vt.Build(id, data, styles, c.buildOpts...)
}

// malformed reports whether err comes from tile data that will never build.
func malformed(err error) bool {
	return errors.Is(err, mvt.ErrInvalidTile) || errors.Is(err, geometry.ErrMalformed)
}

// FetchTiles collects finished loads and starts queued ones. Results for
// tiles no longer required are discarded.
func (c *Cache) FetchTiles() {
	c.doneMu.Lock()
	done := c.done
	c.done = nil
	c.doneMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range done {
		styles, ok := c.pending[r.id]
		delete(c.pending, r.id)
		switch {
		case !ok || styles == nil || (r.tile == nil && r.err == nil):
			// Cleared or cancelled while loading.
		case malformed(r.err):
			c.logger.Error("vectiles: tile load failed", "tile", r.id, "error", r.err)
			c.failed.Add(r.id)
		case r.err != nil:
			// The next request for the tile retries it.
			c.logger.Warn("vectiles: tile read failed", "tile", r.id, "error", r.err)
		case !c.required.Contains(r.id):
			c.logger.Debug("vectiles: late tile discarded", "tile", r.id)
		default:
			c.ready[r.id] = r.tile
		}
	}

	queued := c.queued
	c.queued = nil
	for i, id := range queued {
		styles, ok := c.pending[id]
		if !ok || styles == nil || !c.required.Contains(id) {
			delete(c.pending, id)
			continue
		}
		if !c.start(id, styles) {
			c.queued = append(c.queued, queued[i:]...)
			break
		}
	}
}

// TryGetTile returns a resident or built tile without waiting. ok is false
// when the tile is not loaded yet or the cache is being updated.
func (c *Cache) TryGetTile(id tile.ID) (t *vt.Tile, ok bool) {
	if !c.mu.TryRLock() {
		return nil, false
	}
	defer c.mu.RUnlock()
	if t, ok = c.resident[id]; ok {
		return t, true
	}
	t, ok = c.ready[id]
	return t, ok
}

// Resident returns the resident tile ids in (z, x, y) order.
func (c *Cache) Resident() []tile.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.SortedFunc(maps.Keys(c.resident), tile.ID.Compare)
}

// Tiles returns the resident tiles in (z, x, y) order.
func (c *Cache) Tiles() []*vt.Tile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := slices.SortedFunc(maps.Keys(c.resident), tile.ID.Compare)
	tiles := make([]*vt.Tile, len(ids))
	for i, id := range ids {
		tiles[i] = c.resident[id]
	}
	return tiles
}

// Pending returns the number of loads started or queued.
func (c *Cache) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}

// Scheduled reports whether a load of id is running or queued.
func (c *Cache) Scheduled(id tile.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.pending[id]
	return ok
}

// Stats describes one update cycle.
type Stats struct {
	Required int
	Resident int
	Pending  int
	Inserted int
	Evicted  int
}

// Update runs one cycle for the view: evict, collect loads, request missing
// tiles, insert what is ready, then resolve styles for zoom.
func (c *Cache) Update(screen *viewport.Screen, zoom float64, styles Styler) Stats {
	required := tile.NewSet(screen.TileBoundaries(zoom, c.margin)...)
	previous := tile.NewSet(screen.TileBoundaries(zoom-1, c.previousMargin)...)
	previousZ := viewport.Level(zoom - 1)
	stats := Stats{Required: len(required)}

	c.mu.Lock()
	for _, id := range StaleTiles(maps.Keys(c.resident), required, previous, previousZ) {
		delete(c.resident, id)
		stats.Evicted++
	}
	for id := range c.ready {
		if !required.Contains(id) {
			delete(c.ready, id)
		}
	}
	c.required = required
	c.mu.Unlock()

	c.FetchTiles()

	for _, id := range required.Sorted() {
		c.mu.RLock()
		_, ok := c.resident[id]
		c.mu.RUnlock()
		if ok {
			continue
		}

		c.RequestTile(id, styles)
		stats.Inserted += c.insert(id, required, &stats.Evicted)
	}

	styles.LoadStyles(zoom)

	c.mu.RLock()
	stats.Resident = len(c.resident)
	stats.Pending = len(c.pending)
	c.mu.RUnlock()
	return stats
}

// insert promotes a built tile to resident and applies parent replacement and
// child cleanup. It returns the number of inserted tiles.
func (c *Cache) insert(id tile.ID, required tile.Set, evicted *int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.ready[id]
	if !ok {
		c.logger.Log(c.ctx, LevelTrace, "vectiles: tile not ready", "tile", id)
		return 0
	}
	delete(c.ready, id)
	c.resident[id] = t

	isResident := func(id tile.ID) bool {
		_, ok := c.resident[id]
		return ok
	}
	if parent, ok := SupersededParent(id, required, isResident); ok && isResident(parent) {
		delete(c.resident, parent)
		*evicted++
	}
	for _, child := range StaleChildren(id) {
		if isResident(child) {
			delete(c.resident, child)
			*evicted++
		}
	}
	return 1
}
