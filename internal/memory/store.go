package memory

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/localmem/memsys/internal/errs"
)

// Store is the file-backed memory store: one markdown file per memory
// under Dir, named <id>.md. It is the source of truth; SQL indices
// elsewhere derive from it and may be rebuilt by a full re-scan.
type Store struct {
	Dir string

	// locks serializes operations on a single memory id, per spec.md §5
	// ("within a single memory id, operations are serialized").
	locks   sync.Map                        // id -> *sync.Mutex
	onWrite func(id string, content string) // invalidation hook, may be nil
}

// New returns a Store rooted at dir, creating dir and its quarantine
// and version subfolders if they don't exist.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("memory: create dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, ".quarantine"), 0o755); err != nil {
		return nil, fmt.Errorf("memory: create quarantine dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, ".versions"), 0o755); err != nil {
		return nil, fmt.Errorf("memory: create versions dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// OnWrite registers a callback invoked after every successful create,
// update, archive, or restore — used by the search cache to invalidate
// entries touching the affected id.
func (s *Store) OnWrite(fn func(id, content string)) {
	s.onWrite = fn
}

func (s *Store) lockFor(id string) *sync.Mutex {
	l, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (s *Store) pathFor(id string) string {
	return filepath.Join(s.Dir, id+".md")
}

// Filters narrows List/SearchBySubstring results.
type Filters struct {
	Project         string
	Tag             string
	MinImportance   float64
	Scope           Scope // empty = any
	IncludeArchived bool
}

func (f Filters) matches(m *Meta) bool {
	if !f.IncludeArchived && m.Archived {
		return false
	}
	if f.Project != "" && m.Project != f.Project {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range m.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Scope != "" && m.Scope != f.Scope {
		return false
	}
	if m.Importance < f.MinImportance {
		return false
	}
	return true
}

// Create writes a new memory file and returns its id.
func (s *Store) Create(content string, scope Scope, project string, tags []string, importance float64, sourceSession string) (string, error) {
	if scope != ScopeProject && scope != ScopeGlobal {
		return "", fmt.Errorf("memory: scope must be project or global: %w", errs.ErrInvalidInput)
	}
	if importance < 0 || importance > 1 {
		return "", fmt.Errorf("memory: importance must be in [0,1]: %w", errs.ErrInvalidInput)
	}
	if sourceSession == "" {
		sourceSession = "unknown"
	}

	now := time.Now().UTC()
	id := NewID(content, now)
	rec := &Record{
		Meta: Meta{
			ID:             id,
			Scope:          scope,
			Project:        project,
			Tags:           tags,
			Importance:     importance,
			Created:        now,
			LastReinforced: now,
			SourceSession:  sourceSession,
		},
		Content: content,
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.writeAtomic(s.pathFor(id), rec); err != nil {
		return "", err
	}
	if s.onWrite != nil {
		s.onWrite(id, content)
	}
	return id, nil
}

// Read loads a memory by id.
func (s *Store) Read(id string) (*Record, error) {
	data, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("memory: %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("memory: read %s: %w", id, err)
	}
	rec, err := Parse(data)
	if err != nil {
		s.quarantine(id, data)
		return nil, err
	}
	return rec, nil
}

// ReadMeta reads only the frontmatter, avoiding a full read of the
// body — this is what keeps List O(N) in file count rather than in
// total body size.
func (s *Store) ReadMeta(id string) (*Meta, error) {
	f, err := os.Open(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("memory: %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("memory: open %s: %w", id, err)
	}
	defer f.Close()

	block, err := readFrontMatterBlock(f)
	if err != nil {
		return nil, fmt.Errorf("memory: %s: %w", id, errs.ErrCorruption)
	}
	rec, err := Parse(block)
	if err != nil {
		return nil, err
	}
	return &rec.Meta, nil
}

// readFrontMatterBlock reads just enough of r to capture the frontmatter
// delimiters, discarding the body after the closing delimiter line.
func readFrontMatterBlock(r io.Reader) ([]byte, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var b strings.Builder
	delimiters := 0
	for sc.Scan() {
		line := sc.Text()
		b.WriteString(line)
		b.WriteString("\n")
		if strings.TrimSpace(line) == frontMatterDelimiter {
			delimiters++
			if delimiters == 2 {
				break
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if delimiters < 2 {
		return nil, fmt.Errorf("incomplete front-matter")
	}
	return []byte(b.String()), nil
}

// Patch describes a mutable update to an existing memory.
type Patch struct {
	Content            *string
	Tags               []string
	Importance         *float64
	LastReinforced     *time.Time
	ReinforcementCount *int
	Scope              *Scope
	Archived           *bool
	ArchiveReason      *string
	PromotedAt         *time.Time
	SupersededBy       *string
}

// Update applies patch to memory id, versioning the previous content
// first. Returns errs.ErrNotFound if id is absent.
func (s *Store) Update(id string, patch Patch) (*Record, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.readLocked(id)
	if err != nil {
		return nil, err
	}

	if err := s.snapshotVersion(rec); err != nil {
		return nil, fmt.Errorf("memory: snapshot version: %w", err)
	}

	if patch.Content != nil {
		rec.Content = *patch.Content
	}
	if patch.Tags != nil {
		rec.Meta.Tags = patch.Tags
	}
	if patch.Importance != nil {
		v := *patch.Importance
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		rec.Meta.Importance = v
	}
	if patch.LastReinforced != nil {
		rec.Meta.LastReinforced = *patch.LastReinforced
	}
	if patch.ReinforcementCount != nil {
		rec.Meta.ReinforcementCount = *patch.ReinforcementCount
	}
	if patch.Scope != nil {
		// scope transitions only project->global, never back, except
		// through an explicit restore path which callers invoke directly.
		if rec.Meta.Scope == ScopeProject && *patch.Scope == ScopeGlobal {
			rec.Meta.Scope = ScopeGlobal
		} else if *patch.Scope == rec.Meta.Scope {
			// no-op
		} else {
			return nil, fmt.Errorf("memory: illegal scope transition %s->%s: %w", rec.Meta.Scope, *patch.Scope, errs.ErrInvalidInput)
		}
	}
	if patch.Archived != nil {
		rec.Meta.Archived = *patch.Archived
	}
	if patch.ArchiveReason != nil {
		rec.Meta.ArchiveReason = *patch.ArchiveReason
	}
	if patch.PromotedAt != nil {
		rec.Meta.PromotedAt = patch.PromotedAt
	}
	if patch.SupersededBy != nil {
		rec.Meta.SupersededBy = *patch.SupersededBy
	}

	if err := s.writeAtomic(s.pathFor(id), rec); err != nil {
		return nil, err
	}
	if s.onWrite != nil {
		s.onWrite(id, rec.Content)
	}
	return rec, nil
}

func (s *Store) readLocked(id string) (*Record, error) {
	data, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("memory: %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return Parse(data)
}

// Archive marks a memory archived with the given reason. Idempotent.
func (s *Store) Archive(id, reason string) error {
	archived := true
	_, err := s.Update(id, Patch{Archived: &archived, ArchiveReason: &reason})
	if err != nil && !errs.Is(err, errs.ErrNotFound) {
		return err
	}
	return err
}

// Restore un-archives a memory — the one explicit path allowed to walk
// back a terminal state.
func (s *Store) Restore(id string) error {
	archived := false
	reason := ""
	_, err := s.Update(id, Patch{Archived: &archived, ArchiveReason: &reason})
	return err
}

// Versions returns prior snapshots of id, oldest first, from the
// .versions directory.
func (s *Store) Versions(id string) ([]*Record, error) {
	pattern := filepath.Join(s.Dir, ".versions", id+".v*.md")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	var out []*Record
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		rec, err := Parse(data)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) snapshotVersion(rec *Record) error {
	existing, _ := s.Versions(rec.Meta.ID)
	next := len(existing) + 1
	path := filepath.Join(s.Dir, ".versions", fmt.Sprintf("%s.v%d.md", rec.Meta.ID, next))
	data, err := Serialize(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// List returns all non-excluded memories matching filters. Enumeration
// parses only frontmatter per entry.
func (s *Store) List(filters Filters) ([]*Meta, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("memory: list dir: %w", err)
	}
	var out []*Meta
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".md")
		meta, err := s.ReadMeta(id)
		if err != nil {
			continue // corrupted files are surfaced via health checks, not listings
		}
		if filters.matches(meta) {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out, nil
}

// SearchBySubstring filters List results to those whose body contains q
// (case-insensitive). Unlike List this does read full bodies, since
// substring matching requires content.
func (s *Store) SearchBySubstring(q string, filters Filters) ([]*Record, error) {
	metas, err := s.List(filters)
	if err != nil {
		return nil, err
	}
	qLower := strings.ToLower(q)
	var out []*Record
	for _, m := range metas {
		rec, err := s.Read(m.ID)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(rec.Content), qLower) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// quarantine moves a corrupted file aside, per spec.md §7: never
// silently dropped.
func (s *Store) quarantine(id string, data []byte) {
	dest := filepath.Join(s.Dir, ".quarantine", fmt.Sprintf("%s.%d.md", id, time.Now().UnixNano()))
	_ = os.WriteFile(dest, data, 0o644)
	_ = os.Remove(s.pathFor(id))
}

// writeAtomic writes rec to path via temp-file-then-rename so readers
// never observe a partial write.
func (s *Store) writeAtomic(path string, rec *Record) error {
	data, err := Serialize(rec)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("memory: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("memory: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("memory: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("memory: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("memory: rename into place: %w", err)
	}
	return nil
}
