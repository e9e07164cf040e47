package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Schemas validates wire messages against the embedded JSON schemas.
type Schemas struct {
	byType map[string]*jsonschema.Schema
}

var schemaFiles = map[string]string{
	TypeHello:   "hello",
	TypeSay:     "say",
	TypeWelcome: "welcome",
	TypeEpisode: "episode",
	TypeTeacher: "teacher",
	TypeReward:  "reward",
	TypeError:   "error",
}

func LoadSchemas() (*Schemas, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	for _, name := range schemaFiles {
		p := "schemas/" + name + ".schema.json"
		raw, err := schemaFS.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaURL(name), bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	s := &Schemas{byType: map[string]*jsonschema.Schema{}}
	for typ, name := range schemaFiles {
		sch, err := c.Compile(schemaURL(name))
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		s.byType[typ] = sch
	}
	return s, nil
}

func schemaURL(name string) string {
	return "mem://protocol/" + name + ".schema.json"
}

// Validate checks raw JSON against the schema of its declared type.
func (s *Schemas) Validate(raw []byte) error {
	base, err := DecodeBase(raw)
	if err != nil {
		return err
	}
	sch, ok := s.byType[base.Type]
	if !ok {
		return fmt.Errorf("unknown message type %q", base.Type)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("%s: %s", base.Type, strings.TrimSpace(err.Error()))
	}
	return nil
}

// ValidateValue marshals v and validates it.
func (s *Schemas) ValidateValue(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Validate(raw)
}
