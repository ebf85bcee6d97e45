package catalog

import (
	"runtime"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/fine-structures/tricensus/libtri/triang"
	"github.com/fine-structures/tricensus/tri3"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

/***

Catalog database format:

	gCatalogStateKey => catalogState (varints)

	NumTets (byte), IsoSig => triRecord (varints)
		UserMeta holds the flag* bits so that selection can skip entries without decoding them.

Since every iso sig of a connected triangulation starts with its tet count, keys sort by tet count
and then by signature, so Select is a single forward scan.

***/

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
)

const (
	stateMajorVers = 2026
	stateMinorVers = 1
)

// UserMeta bits
const (
	flagOrientable byte = 1 << iota
	flagFinite
	flagClosed
)

// catalog is a badger wrapper for a census of triangulations
type catalog struct {
	ctx        tri3.CatalogContext
	readOnly   bool
	mu         sync.Mutex
	stateDirty bool
	state      catalogState
	db         *badger.DB
}

func OpenCatalog(ctx tri3.CatalogContext, opts tri3.CatalogOpts) (tri3.Catalog, error) {
	cat := &catalog{
		ctx:      ctx,
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(tri3.ErrBadCatalogParam, "DbPathName must be specified for read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, errors.Wrapf(tri3.ErrBadCatalogParam, "opening %q: %v", opts.DbPathName, err)
	}

	// Once the db is open, the catalog ctx is blocked until the catalog closes
	ctx.AttachCatalog(cat)

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = !cat.readOnly
		cat.state = catalogState{
			MajorVers: stateMajorVers,
			MinorVers: stateMinorVers,
			NumTris:   make([]uint64, tri3.MaxTets+1),
		}
	}

	if err == nil && (cat.state.MajorVers != stateMajorVers || cat.state.MinorVers != stateMinorVers) {
		err = errors.Wrapf(tri3.ErrBadCatalogParam, "catalog version %d.%d is incompatible", cat.state.MajorVers, cat.state.MinorVers)
	}
	if err != nil {
		cat.Close()
		return nil, err
	}

	klog.V(2).Infof("catalog %q open, %d triangulations", opts.DbPathName, cat.state.total())
	return cat, nil
}

func (cat *catalog) loadState() error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err == nil {
			err = item.Value(func(val []byte) error {
				return cat.state.Unmarshal(val)
			})
		}
		return err
	})
}

func (cat *catalog) flushState() error {
	if !cat.stateDirty {
		return nil
	}
	err := cat.db.Update(func(txn *badger.Txn) error {
		stateBuf, err := cat.state.Marshal()
		if err != nil {
			return err
		}
		return txn.Set(gCatalogStateKey, stateBuf)
	})
	if err == nil {
		cat.stateDirty = false
	}
	return err
}

func (cat *catalog) Close() error {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	var err error
	if cat.db != nil {
		err = cat.flushState()
		cat.db.Close()
		cat.db = nil
		cat.ctx.DetachCatalog(cat)
		cat.ctx = nil
	}
	return err
}

func (cat *catalog) IsReadOnly() bool {
	return cat.readOnly
}

func (cat *catalog) NumTris(forTets int) int64 {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	if forTets <= 0 || forTets >= len(cat.state.NumTris) {
		return 0
	}
	return int64(cat.state.NumTris[forTets])
}

func formTriKey(key []byte, X tri3.TriState) []byte {
	key = append(key, byte(X.NumTets()))
	key = append(key, X.IsoSig()...)
	return key
}

func metaFlags(info tri3.TriInfo) byte {
	flags := byte(0)
	if info.Orientable {
		flags |= flagOrientable
	}
	if info.Finite {
		flags |= flagFinite
	}
	if info.Closed {
		flags |= flagClosed
	}
	return flags
}

// TryAddTri adds X if no isomorphic triangulation is stored yet.
//
// If true is returned, X was not present and was added.
// If false is returned, X is already present, the catalog is read-only, or X is too large.
func (cat *catalog) TryAddTri(X tri3.TriState) bool {
	if cat.readOnly || X.NumTets() <= 0 || X.NumTets() > tri3.MaxTets {
		return false
	}

	cat.mu.Lock()
	defer cat.mu.Unlock()

	if cat.db == nil {
		return false
	}

	var keyBuf [256]byte
	key := formTriKey(keyBuf[:0], X)

	txn := cat.db.NewTransaction(true)
	defer txn.Discard()

	_, err := txn.Get(key)
	if err == nil {
		return false
	}
	if err != badger.ErrKeyNotFound {
		panic(err)
	}

	info := X.Info()
	rec := triRecord{info}
	val, err := rec.Marshal()
	if err != nil {
		panic(err)
	}

	// Alloc a scrap buf since we can't use the stack for commit bufs
	key = append([]byte(nil), key...)
	err = txn.SetEntry(badger.NewEntry(key, val).WithMeta(metaFlags(info)))
	if err == nil {
		err = txn.Commit()
	}
	if err != nil {
		panic(err)
	}

	cat.state.NumTris[X.NumTets()]++
	cat.stateDirty = true
	return true
}

// Select sends every stored triangulation meeting sel to onHit, in tet count then signature order.
//
// A record whose stored properties disagree with its rebuilt triangulation is logged and skipped.
func (cat *catalog) Select(sel tri3.TriSelector, onHit tri3.OnTriHit) {
	minTets, maxTets := sel.MinTets, sel.MaxTets
	if minTets < 1 {
		minTets = 1
	}
	if maxTets <= 0 || maxTets > tri3.MaxTets {
		maxTets = tri3.MaxTets
	}

	if cat.db == nil {
		return
	}

	wantFlags := byte(0)
	if sel.OrientableOnly {
		wantFlags |= flagOrientable
	}

	txn := cat.db.NewTransaction(false)
	defer txn.Discard()

	it := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: true,
		PrefetchSize:   300,
	})
	defer it.Close()

	minKey := [1]byte{byte(minTets)}
	for it.Seek(minKey[:]); it.Valid(); it.Next() {
		item := it.Item()
		key := item.Key()

		// Stop when the tet count is over the max
		if int(key[0]) > maxTets {
			break
		}
		if item.UserMeta()&wantFlags != wantFlags {
			continue
		}

		X, err := loadTri(item)
		if err != nil {
			klog.Warningf("catalog: skipping %q: %v", key[1:], err)
			continue
		}
		onHit <- X
	}
}

func loadTri(item *badger.Item) (*triang.Triangulation, error) {
	key := item.Key()
	X, err := triang.FromIsoSig(string(key[1:]))
	if err != nil {
		return nil, err
	}
	if X.NumTets() != int(key[0]) {
		X.Reclaim()
		return nil, errors.Wrapf(tri3.ErrBadRecord, "key holds %d tetrahedra", key[0])
	}

	var rec triRecord
	err = item.Value(func(val []byte) error {
		return rec.Unmarshal(val)
	})
	if err == nil && rec.info != X.Info() {
		err = errors.Wrap(tri3.ErrBadRecord, "stored properties do not match the signature")
	}
	if err == nil && item.UserMeta() != metaFlags(rec.info) {
		err = errors.Wrap(tri3.ErrBadRecord, "stored flags do not match the record")
	}
	if err != nil {
		X.Reclaim()
		return nil, err
	}
	return X, nil
}

// catalogState is the catalog header, marshalled as varints.
type catalogState struct {
	MajorVers uint64
	MinorVers uint64
	NumTris   []uint64 // indexed by tet count
}

func (st *catalogState) total() uint64 {
	sum := uint64(0)
	for _, n := range st.NumTris {
		sum += n
	}
	return sum
}

func (st *catalogState) Marshal() ([]byte, error) {
	buf := proto.NewBuffer(nil)
	buf.EncodeVarint(st.MajorVers)
	buf.EncodeVarint(st.MinorVers)
	buf.EncodeVarint(uint64(len(st.NumTris)))
	for _, n := range st.NumTris {
		buf.EncodeVarint(n)
	}
	return buf.Bytes(), nil
}

func (st *catalogState) Unmarshal(val []byte) error {
	buf := proto.NewBuffer(val)
	var err error
	read := func() uint64 {
		var x uint64
		if err == nil {
			x, err = buf.DecodeVarint()
		}
		return x
	}
	st.MajorVers = read()
	st.MinorVers = read()
	n := read()
	if err == nil && n != tri3.MaxTets+1 {
		return errors.Wrapf(tri3.ErrBadRecord, "catalog state lists %d tet counts", n)
	}
	st.NumTris = make([]uint64, n)
	for i := range st.NumTris {
		st.NumTris[i] = read()
	}
	if err != nil {
		return errors.Wrap(tri3.ErrBadRecord, err.Error())
	}
	return nil
}

// triRecord is the value stored per triangulation.
type triRecord struct {
	info tri3.TriInfo
}

func (rec *triRecord) Marshal() ([]byte, error) {
	buf := proto.NewBuffer(make([]byte, 0, 16))
	info := &rec.info
	for _, v := range []int{info.NumTets, info.NumVertices, info.NumEdges, info.NumBdryFacets, info.MinEdgeDegree, info.MaxEdgeDegree} {
		buf.EncodeVarint(uint64(v))
	}
	bits := uint64(0)
	for i, b := range []bool{info.Orientable, info.Finite, info.Closed, info.Valid} {
		if b {
			bits |= 1 << i
		}
	}
	buf.EncodeVarint(bits)
	return buf.Bytes(), nil
}

func (rec *triRecord) Unmarshal(val []byte) error {
	buf := proto.NewBuffer(val)
	var vals [7]uint64
	for i := range vals {
		x, err := buf.DecodeVarint()
		if err != nil {
			return errors.Wrap(tri3.ErrBadRecord, err.Error())
		}
		vals[i] = x
	}
	bits := vals[6]
	rec.info = tri3.TriInfo{
		NumTets:       int(vals[0]),
		NumVertices:   int(vals[1]),
		NumEdges:      int(vals[2]),
		NumBdryFacets: int(vals[3]),
		MinEdgeDegree: int(vals[4]),
		MaxEdgeDegree: int(vals[5]),
		Orientable:    bits&1 != 0,
		Finite:        bits&2 != 0,
		Closed:        bits&4 != 0,
		Valid:         bits&8 != 0,
	}
	return nil
}
