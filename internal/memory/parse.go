package memory

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/localmem/memsys/internal/errs"
)

const frontMatterDelimiter = "---"

// Parse deserializes a raw memory file byte slice into a Record.
// An unparsable or malformed frontmatter block is reported as
// errs.ErrCorruption so callers can quarantine the file rather than
// silently drop it.
func Parse(raw []byte) (*Record, error) {
	s := string(raw)
	if !strings.HasPrefix(s, frontMatterDelimiter) {
		return nil, fmt.Errorf("memory: missing front-matter delimiter: %w", errs.ErrCorruption)
	}
	rest := s[len(frontMatterDelimiter):]
	idx := strings.Index(rest, "\n"+frontMatterDelimiter)
	if idx == -1 {
		return nil, fmt.Errorf("memory: unclosed front-matter block: %w", errs.ErrCorruption)
	}
	yamlBlock := rest[:idx]
	bodyRaw := rest[idx+len("\n"+frontMatterDelimiter):]
	body := bodyRaw
	switch {
	case strings.HasPrefix(bodyRaw, "\n\n"):
		body = bodyRaw[2:]
	case strings.HasPrefix(bodyRaw, "\n"):
		body = bodyRaw[1:]
	}

	var meta Meta
	if err := yaml.Unmarshal([]byte(yamlBlock), &meta); err != nil {
		return nil, fmt.Errorf("memory: front-matter parse error: %w", errs.ErrCorruption)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("memory: %v: %w", err, errs.ErrCorruption)
	}
	return &Record{Meta: meta, Content: body}, nil
}

// Serialize renders a Record back to its on-disk byte representation.
func Serialize(r *Record) ([]byte, error) {
	yamlBytes, err := yaml.Marshal(&r.Meta)
	if err != nil {
		return nil, fmt.Errorf("memory: serialize error: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(frontMatterDelimiter + "\n")
	sb.Write(yamlBytes)
	sb.WriteString(frontMatterDelimiter + "\n\n")
	sb.WriteString(r.Content)
	return []byte(sb.String()), nil
}
