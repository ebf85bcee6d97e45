package tri3

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

func (bs BoolSet) HasTrue() bool {
	return bs&BoolTrue != 0
}

func (bs BoolSet) HasFalse() bool {
	return bs&BoolFalse != 0
}

// Contains reports whether b is a member of this set.
func (bs BoolSet) Contains(b bool) bool {
	if b {
		return bs.HasTrue()
	}
	return bs.HasFalse()
}

func (bs BoolSet) String() string {
	switch bs {
	case BoolTrue:
		return "true"
	case BoolFalse:
		return "false"
	case BoolBoth:
		return "both"
	}
	return "none"
}

// ParseBoolSet reads the forms written by BoolSet.String, plus the usual yes/no spellings.
func ParseBoolSet(str string) (BoolSet, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "true", "yes", "y", "1":
		return BoolTrue, nil
	case "false", "no", "n", "0":
		return BoolFalse, nil
	case "both", "any", "":
		return BoolBoth, nil
	case "none":
		return BoolNone, nil
	}
	return BoolNone, errors.Wrapf(ErrBadBoolSet, "unrecognised value %q", str)
}

// SelectsTri is a convenience function used to see if a TriState is selected according to a TriSelector.
func (sel *TriSelector) SelectsTri(X TriState) bool {
	info := X.Info()
	if info.NumTets < sel.MinTets || (sel.MaxTets > 0 && info.NumTets > sel.MaxTets) {
		return false
	}
	if sel.OrientableOnly && !info.Orientable {
		return false
	}
	return true
}

func NewCatalogContext() CatalogContext {
	ctx := &catalogContext{
		openCatalogs: make(map[Catalog]struct{}),
		closing:      make(chan struct{}),
		closed:       make(chan struct{}),
	}
	ctx.openCount.Add(1)
	go func() {
		<-ctx.Closing()
		ctx.openCount.Done()
		ctx.openCount.Wait()
		close(ctx.closed)
	}()
	return ctx
}

type catalogContext struct {
	mu           sync.Mutex
	openCount    sync.WaitGroup
	openCatalogs map[Catalog]struct{}
	closing      chan struct{}
	closed       chan struct{}
}

func (ctx *catalogContext) AttachCatalog(cat Catalog) {
	ctx.openCount.Add(1)
	ctx.mu.Lock()
	ctx.openCatalogs[cat] = struct{}{}
	ctx.mu.Unlock()
}

func (ctx *catalogContext) DetachCatalog(cat Catalog) {
	ctx.mu.Lock()
	if _, exists := ctx.openCatalogs[cat]; exists {
		delete(ctx.openCatalogs, cat)
		ctx.openCount.Done()
	}
	ctx.mu.Unlock()
}

func (ctx *catalogContext) Closing() <-chan struct{} {
	return ctx.closing
}

func (ctx *catalogContext) Done() <-chan struct{} {
	return ctx.closed
}

func (ctx *catalogContext) Close() {
	close(ctx.closing)
	ctx.mu.Lock()
	for cat := range ctx.openCatalogs {
		go cat.Close()
	}
	ctx.mu.Unlock()
}
