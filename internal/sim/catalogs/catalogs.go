package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

// Catalogs is the vocabulary available to task content.
type Catalogs struct {
	Verbs       VerbCatalog
	Objects     ObjectCatalog
	Association AssociationDef

	// Digest covers the raw source document.
	Digest string
}

type VerbCatalog struct {
	Defs      []VerbDef
	ByPresent map[string]VerbDef
	Digest    string
}

type VerbDef struct {
	Present string `yaml:"present" json:"present"`
	Past    string `yaml:"past" json:"past"`
}

type ObjectCatalog struct {
	Palette []string
	Index   map[string]int
	Digest  string
}

// AssociationDef sizes the random name/property facts of association tasks.
type AssociationDef struct {
	Names      int `yaml:"names" json:"names"`
	WordLength int `yaml:"word_length" json:"word_length"`
}

type document struct {
	Verbs       []VerbDef      `yaml:"verbs"`
	Objects     []string       `yaml:"objects"`
	Association AssociationDef `yaml:"association"`
}

// Default returns the catalogs compiled into the binary.
func Default() (*Catalogs, error) {
	c, err := Parse(defaultContent)
	if err != nil {
		return nil, fmt.Errorf("embedded content.yaml: %w", err)
	}
	return c, nil
}

func Load(path string) (*Catalogs, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return c, nil
}

func Parse(raw []byte) (*Catalogs, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	c := &Catalogs{Association: doc.Association, Digest: sha256Hex(raw)}
	if err := loadVerbs(doc.Verbs, &c.Verbs); err != nil {
		return nil, err
	}
	if err := loadObjects(doc.Objects, &c.Objects); err != nil {
		return nil, err
	}
	if c.Association.Names < 2 {
		return nil, fmt.Errorf("association: names must be >= 2 (got %d)", c.Association.Names)
	}
	if c.Association.WordLength < 1 {
		return nil, fmt.Errorf("association: word_length must be >= 1 (got %d)", c.Association.WordLength)
	}
	distinct := 1
	for i := 0; i < c.Association.WordLength && distinct < c.Association.Names; i++ {
		distinct *= 26
	}
	if distinct < c.Association.Names {
		return nil, fmt.Errorf("association: %d names do not fit in words of length %d", c.Association.Names, c.Association.WordLength)
	}
	return c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadVerbs(defs []VerbDef, out *VerbCatalog) error {
	if len(defs) == 0 {
		return fmt.Errorf("verbs: empty")
	}
	out.ByPresent = make(map[string]VerbDef, len(defs))
	for _, d := range defs {
		if !isWord(d.Present) || !isWord(d.Past) {
			return fmt.Errorf("verbs: bad entry %q/%q", d.Present, d.Past)
		}
		if _, dup := out.ByPresent[d.Present]; dup {
			return fmt.Errorf("verbs: duplicate %q", d.Present)
		}
		out.ByPresent[d.Present] = d
	}
	out.Defs = defs
	b, _ := json.Marshal(defs)
	out.Digest = sha256Hex(b)
	return nil
}

func loadObjects(ids []string, out *ObjectCatalog) error {
	if len(ids) == 0 {
		return fmt.Errorf("objects: empty")
	}
	out.Index = make(map[string]int, len(ids))
	for i, id := range ids {
		if !isWord(id) {
			return fmt.Errorf("objects: %q is not a single lowercase word", id)
		}
		if _, dup := out.Index[id]; dup {
			return fmt.Errorf("objects: duplicate %q", id)
		}
		out.Index[id] = i
	}
	out.Palette = ids
	b, _ := json.Marshal(ids)
	out.Digest = sha256Hex(b)
	return nil
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func (c *Catalogs) PickVerb(r *rand.Rand) VerbDef {
	return c.Verbs.Defs[r.Intn(len(c.Verbs.Defs))]
}

func (c *Catalogs) PickObject(r *rand.Rand) string {
	return c.Objects.Palette[r.Intn(len(c.Objects.Palette))]
}

// Past returns the past form of a known verb.
func (c *Catalogs) Past(present string) (string, bool) {
	d, ok := c.Verbs.ByPresent[present]
	return d.Past, ok
}
