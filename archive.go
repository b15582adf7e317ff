package phar

import (
	"strings"

	"github.com/pkg/errors"
)

// preludeTerminator is the canonical marker ending every prelude.
const preludeTerminator = "__HALT_COMPILER(); ?>\r\n"

// haltCompilerToken is matched case-insensitively to locate where a caller's
// prelude text should be truncated before appending preludeTerminator.
const haltCompilerToken = "__halt_compiler();"

const (
	defaultGlobalFlags uint32 = 0x10000
	defaultManifestAPI uint16 = 17
)

// defaultPrelude is used by NewArchive when Config.Prelude is empty.
var defaultPrelude = "<?php " + preludeTerminator

// Config holds the recognized options for constructing an Archive.
type Config struct {
	Alias          string
	Prelude        string
	SignatureKind  SignatureKind
	GlobalMetadata string
	Entries        []*Entry
	GlobalFlags    uint32
	ManifestAPI    uint16
}

// Archive is the in-memory model of a whole archive: prelude text, alias,
// global flags, manifest API version, global metadata, and an ordered,
// name-unique collection of Entries.
type Archive struct {
	prelude        string
	alias          string
	globalFlags    uint32
	manifestAPI    uint16
	globalMetadata []byte
	signatureKind  SignatureKind

	order   []*Entry
	byName  map[string]int // name -> index into order
}

// NewArchive builds an Archive from cfg, applying the documented defaults
// for any zero-valued field: Alias "", Prelude "<?php __HALT_COMPILER();
// ?>\r\n", SignatureKind SHA1, GlobalMetadata "", Entries none,
// GlobalFlags 0x10000, ManifestAPI 17.
func NewArchive(cfg Config) (*Archive, error) {
	a := &Archive{
		alias:          cfg.Alias,
		globalFlags:    cfg.GlobalFlags,
		manifestAPI:    cfg.ManifestAPI,
		globalMetadata: []byte(cfg.GlobalMetadata),
		signatureKind:  cfg.SignatureKind,
		byName:         make(map[string]int),
	}
	if a.globalFlags == 0 {
		a.globalFlags = defaultGlobalFlags
	}
	if a.manifestAPI == 0 {
		a.manifestAPI = defaultManifestAPI
	}
	if a.signatureKind == 0 {
		a.signatureKind = SignatureSHA1
	}

	prelude := cfg.Prelude
	if prelude == "" {
		prelude = defaultPrelude
	}
	if err := a.SetPrelude(prelude); err != nil {
		return nil, err
	}

	for _, e := range cfg.Entries {
		a.AddFile(e)
	}

	return a, nil
}

func (a *Archive) Prelude() string { return a.prelude }

// SetPrelude locates the case-insensitive __halt_compiler(); token in text,
// truncates everything from that token onward, and appends the canonical
// terminator. It fails with ErrInvalidPrelude if the token is absent.
func (a *Archive) SetPrelude(text string) error {
	idx := strings.Index(strings.ToLower(text), haltCompilerToken)
	if idx < 0 {
		return errors.Wrap(ErrInvalidPrelude, "missing __halt_compiler(); token")
	}
	a.prelude = text[:idx] + preludeTerminator
	return nil
}

func (a *Archive) Alias() string { return a.alias }

func (a *Archive) SetAlias(alias string) { a.alias = alias }

func (a *Archive) GlobalFlags() uint32 { return a.globalFlags }

func (a *Archive) SetGlobalFlags(flags uint32) { a.globalFlags = flags }

func (a *Archive) ManifestAPI() uint16 { return a.manifestAPI }

func (a *Archive) SetManifestAPI(api uint16) { a.manifestAPI = api }

func (a *Archive) GlobalMetadata() []byte { return a.globalMetadata }

func (a *Archive) SetGlobalMetadata(metadata []byte) { a.globalMetadata = metadata }

func (a *Archive) SignatureKind() SignatureKind { return a.signatureKind }

// SetSignatureKind sets the whole-archive signature kind. k must be one of
// the four accepted values, otherwise ErrUnknownSignature is returned.
func (a *Archive) SetSignatureKind(k SignatureKind) error {
	if !isKnownSignatureKind(k) {
		return errors.Wrapf(ErrUnknownSignature, "kind=%#x", uint32(k))
	}
	a.signatureKind = k
	return nil
}

// AddFile removes any existing entry with the same name, then appends e.
// A replacement therefore becomes the last entry, not an in-place update.
func (a *Archive) AddFile(e *Entry) {
	a.removeFile(e.Name())
	a.byName[e.Name()] = len(a.order)
	a.order = append(a.order, e)
}

// GetFile returns the entry with the given name, or nil if none exists.
func (a *Archive) GetFile(name string) *Entry {
	idx, ok := a.byName[name]
	if !ok {
		return nil
	}
	return a.order[idx]
}

// RemoveFile removes the entry with the given name, if any.
func (a *Archive) RemoveFile(name string) {
	a.removeFile(name)
}

func (a *Archive) removeFile(name string) {
	idx, ok := a.byName[name]
	if !ok {
		return
	}
	a.order = append(a.order[:idx], a.order[idx+1:]...)
	delete(a.byName, name)
	for n, i := range a.byName {
		if i > idx {
			a.byName[n] = i - 1
		}
	}
}

// GetFiles returns a snapshot of the current entries in manifest order.
func (a *Archive) GetFiles() []*Entry {
	out := make([]*Entry, len(a.order))
	copy(out, a.order)
	return out
}

// SetFiles clears all entries, then re-adds entries in the given order via
// AddFile (so duplicate names in entries collapse to their last occurrence).
func (a *Archive) SetFiles(entries []*Entry) {
	a.order = nil
	a.byName = make(map[string]int)
	for _, e := range entries {
		a.AddFile(e)
	}
}

func (a *Archive) GetFileCount() int { return len(a.order) }
