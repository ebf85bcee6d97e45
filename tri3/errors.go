package tri3

import "errors"

// Errors
var (
	ErrBadPairing      = errors.New("bad facet pairing")
	ErrBadPairingText  = errors.New("bad facet pairing encoding")
	ErrBadTetCount     = errors.New("bad tetrahedron count")
	ErrBadBoolSet      = errors.New("bad bool set")
	ErrCorruptState    = errors.New("corrupt search state")
	ErrBadGluing       = errors.New("bad gluing permutation")
	ErrBadCatalogParam = errors.New("bad catalog param")
	ErrBadRecord       = errors.New("bad catalog record")
	ErrBadSieve        = errors.New("bad sieve expression")
	ErrBadPurge        = errors.New("bad purge option")
	ErrBadCensusParam  = errors.New("bad census param")
)
