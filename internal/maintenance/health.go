package maintenance

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/localmem/memsys/internal/memory"
)

// Health reports the structural integrity of the memory directory,
// ported from health_check in daily_memory_maintenance.py.
type Health struct {
	DirAccessible bool
	TotalFiles    int
	CorruptFiles  []string
	MissingFields []string
}

// requiredFrontmatterKeys mirrors the original's "id:", "created:",
// "project_id:" substring checks, adapted to this store's field names.
var requiredFrontmatterKeys = []string{"id:", "created:", "project:"}

// HealthCheck scans every .md file directly (not through the Store)
// so a memory corrupt enough to fail parsing still shows up here.
func (r *Runner) HealthCheck() (Health, error) {
	h := Health{}

	entries, err := os.ReadDir(r.mem.Dir)
	if err != nil {
		return Health{DirAccessible: false}, nil
	}
	h.DirAccessible = true

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		h.TotalFiles++

		path := filepath.Join(r.mem.Dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			h.CorruptFiles = append(h.CorruptFiles, entry.Name())
			continue
		}
		content := string(data)

		if strings.Count(content, "---") < 2 {
			h.CorruptFiles = append(h.CorruptFiles, entry.Name())
			continue
		}
		parts := strings.SplitN(content, "---", 3)
		if len(parts) < 3 {
			h.CorruptFiles = append(h.CorruptFiles, entry.Name())
			continue
		}
		frontmatter := parts[1]
		missingAny := false
		for _, key := range requiredFrontmatterKeys {
			if !strings.Contains(frontmatter, key) {
				h.MissingFields = append(h.MissingFields, entry.Name()+": "+key)
				missingAny = true
			}
		}
		if missingAny {
			continue
		}

		rec, err := memory.Parse(data)
		if err != nil || rec.Meta.ID == "" || rec.Meta.Project == "" || strings.TrimSpace(rec.Content) == "" {
			h.CorruptFiles = append(h.CorruptFiles, entry.Name())
		}
	}

	return h, nil
}
