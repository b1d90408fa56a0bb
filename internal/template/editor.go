package template

// Editor applies block operations to one template and owns the
// active-selection state of the block editor.
//
// The editor works on the template handed to it; callers that need a
// loss-free cancel keep their own copy.
type Editor struct {
	tpl      *Template
	selected string
	newID    func() string
}

// NewEditor binds an editor to tpl. A nil tpl starts an empty template.
func NewEditor(tpl *Template) *Editor {
	if tpl == nil {
		tpl = &Template{}
	}
	return &Editor{tpl: tpl, newID: NewBlockID}
}

// WithIDGenerator replaces the id generator, mostly for tests.
func (e *Editor) WithIDGenerator(fn func() string) *Editor {
	if fn != nil {
		e.newID = fn
	}
	return e
}

// Template returns the template being edited.
func (e *Editor) Template() *Template { return e.tpl }

// Blocks returns a copy of the ordered block list.
func (e *Editor) Blocks() []Block {
	out := make([]Block, len(e.tpl.Blocks))
	copy(out, e.tpl.Blocks)
	return out
}

// SetSubject replaces the subject line.
func (e *Editor) SetSubject(s string) { e.tpl.Subject = s }

// AddBlock appends a block of kind with its defaults and returns its id.
func (e *Editor) AddBlock(kind BlockKind) (string, error) {
	if !kind.Valid() {
		return "", ErrUnknownKind
	}
	content, style := defaults(kind)
	b := Block{ID: e.newID(), Kind: kind, Content: content, Style: style}
	e.tpl.Blocks = append(e.tpl.Blocks, b)
	return b.ID, nil
}

// UpdateBlock merges patch into the block with id. Unknown ids are ignored;
// the return value reports whether anything was applied.
func (e *Editor) UpdateBlock(id string, patch Patch) bool {
	i := e.tpl.Find(id)
	if i < 0 {
		return false
	}
	patch.apply(&e.tpl.Blocks[i])
	return true
}

// RemoveBlock deletes the block with id and clears the selection if it
// pointed at it.
func (e *Editor) RemoveBlock(id string) bool {
	i := e.tpl.Find(id)
	if i < 0 {
		return false
	}
	e.tpl.Blocks = append(e.tpl.Blocks[:i], e.tpl.Blocks[i+1:]...)
	if e.selected == id {
		e.selected = ""
	}
	return true
}

// MoveBlock swaps the block at index with its neighbor in direction (-1 or +1).
// Boundaries, out-of-range indexes and other directions are no-ops.
func (e *Editor) MoveBlock(index, direction int) bool {
	if direction != -1 && direction != 1 {
		return false
	}
	j := index + direction
	n := len(e.tpl.Blocks)
	if index < 0 || index >= n || j < 0 || j >= n {
		return false
	}
	e.tpl.Blocks[index], e.tpl.Blocks[j] = e.tpl.Blocks[j], e.tpl.Blocks[index]
	return true
}

// Reset replaces the entire block list with a copy of blocks and clears the
// selection. Blocks with an empty or repeated id get a fresh one.
func (e *Editor) Reset(blocks []Block) {
	e.tpl.Blocks = make([]Block, len(blocks))
	copy(e.tpl.Blocks, blocks)
	seen := make(map[string]struct{}, len(blocks))
	for i := range e.tpl.Blocks {
		b := &e.tpl.Blocks[i]
		if _, dup := seen[b.ID]; b.ID == "" || dup {
			b.ID = e.newID()
		}
		seen[b.ID] = struct{}{}
	}
	e.selected = ""
}

// Select marks the block with id as active. An unknown id clears the selection.
func (e *Editor) Select(id string) {
	if e.tpl.Find(id) < 0 {
		e.selected = ""
		return
	}
	e.selected = id
}

// Selected returns the active block, if any.
func (e *Editor) Selected() (Block, bool) {
	i := e.tpl.Find(e.selected)
	if i < 0 {
		return Block{}, false
	}
	return e.tpl.Blocks[i], true
}
