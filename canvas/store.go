package canvas

import (
	"sort"
	"sync"
	"time"

	"github.com/vellum-studio/vellum/errors"
)

// Store holds the authoritative ordered element set, the scene app state,
// and the snapshot registry. All access serializes behind one RWMutex; the
// scene is volatile and empties on process restart.
type Store struct {
	mu        sync.RWMutex
	elements  []*Element
	index     map[string]int
	appState  map[string]interface{}
	files     map[string]interface{}
	snapshots map[string]*Snapshot
}

// Snapshot is a named, independent copy of the scene's elements
type Snapshot struct {
	Name      string     `json:"name"`
	Elements  []*Element `json:"elements"`
	CreatedAt string     `json:"createdAt"`
}

// NewStore creates an empty scene store
func NewStore() *Store {
	return &Store{
		elements: make([]*Element, 0),
		index:    make(map[string]int),
		appState: map[string]interface{}{
			"viewBackgroundColor": "#ffffff",
			"gridSize":            20,
		},
		files:     make(map[string]interface{}),
		snapshots: make(map[string]*Snapshot),
	}
}

// List returns the elements in Z-order (first-in is back-most)
func (s *Store) List() []*Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Element(nil), s.elements...)
}

// Count returns the number of stored elements
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elements)
}

// Get returns the element with the given id
func (s *Store) Get(id string) (*Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return nil, errors.NewNotFoundf("element %s", id)
	}
	return s.elements[pos], nil
}

// Put inserts or replaces an element by id. A replaced element keeps its
// ordering position; a new one is appended on top.
func (s *Store) Put(el *Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.index[el.ID]; ok {
		s.elements[pos] = el
		return
	}
	s.index[el.ID] = len(s.elements)
	s.elements = append(s.elements, el)
}

// PutBatch inserts or replaces elements in the order given
func (s *Store) PutBatch(batch []*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, el := range batch {
		if pos, ok := s.index[el.ID]; ok {
			s.elements[pos] = el
			continue
		}
		s.index[el.ID] = len(s.elements)
		s.elements = append(s.elements, el)
	}
}

// Patch merges delta fields onto the stored element, preserving any field
// absent from the delta, then bumps the version fields. The element's type
// tag and id are immutable.
func (s *Store) Patch(id string, delta map[string]interface{}) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return nil, errors.NewNotFoundf("element %s", id)
	}

	el := s.elements[pos]
	for key, value := range delta {
		switch key {
		case "id", "type", "version", "versionNonce", "updated", "createdAt", "updatedAt":
			continue
		}
		if !el.setKnown(key, value) {
			if el.Extra == nil {
				el.Extra = make(map[string]interface{})
			}
			el.Extra[key] = value
		}
	}

	Touch(el)
	return el, nil
}

// Delete removes the element with the given id. Returns false when absent.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return false
	}

	s.elements = append(s.elements[:pos], s.elements[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.elements); i++ {
		s.index[s.elements[i].ID] = i
	}
	return true
}

// Clear removes every element
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.elements)
	s.elements = s.elements[:0]
	s.index = make(map[string]int)
	return removed
}

// Replace swaps the whole element set atomically, preserving the order of
// the provided list
func (s *Store) Replace(els []*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elements = make([]*Element, 0, len(els))
	s.index = make(map[string]int, len(els))
	for _, el := range els {
		if _, dup := s.index[el.ID]; dup {
			continue
		}
		s.index[el.ID] = len(s.elements)
		s.elements = append(s.elements, el)
	}
}

// AppState returns a copy of the scene app state map
func (s *Store) AppState() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]interface{}, len(s.appState))
	for k, v := range s.appState {
		out[k] = v
	}
	return out
}

// SetAppState merges values into the scene app state
func (s *Store) SetAppState(values map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.appState[k] = v
	}
}

// Files returns a copy of the binary-asset reference map
func (s *Store) Files() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]interface{}, len(s.files))
	for k, v := range s.files {
		out[k] = v
	}
	return out
}

// SetFiles merges entries into the binary-asset reference map
func (s *Store) SetFiles(files map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range files {
		s.files[k] = v
	}
}

// SnapshotCreate deep-copies the current elements under the given name.
// Re-creating an existing name overwrites it.
func (s *Store) SnapshotCreate(name string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	copies := make([]*Element, len(s.elements))
	for i, el := range s.elements {
		copies[i] = el.Clone()
	}

	snap := &Snapshot{
		Name:      name,
		Elements:  copies,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.snapshots[name] = snap
	return snap
}

// SnapshotList returns all snapshots sorted by name
func (s *Store) SnapshotList() []*Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SnapshotGet returns the named snapshot
func (s *Store) SnapshotGet(name string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[name]
	if !ok {
		return nil, errors.NewNotFoundf("snapshot %q", name)
	}
	return snap, nil
}

// SnapshotRestore replaces the scene with a deep copy of the named
// snapshot's elements, so later mutations leave the snapshot untouched
func (s *Store) SnapshotRestore(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[name]
	if !ok {
		return 0, errors.NewNotFoundf("snapshot %q", name)
	}

	s.elements = make([]*Element, len(snap.Elements))
	s.index = make(map[string]int, len(snap.Elements))
	for i, el := range snap.Elements {
		s.elements[i] = el.Clone()
		s.index[s.elements[i].ID] = i
	}
	return len(s.elements), nil
}
