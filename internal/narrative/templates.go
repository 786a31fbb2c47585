package narrative

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed slots.yaml
var slotsYAML []byte

type promptSpec struct {
	MaxTokens int    `yaml:"max_tokens"`
	Prompt    string `yaml:"prompt"`
}

type templateFile struct {
	System   string                `yaml:"system"`
	Slots    map[string]promptSpec `yaml:"slots"`
	Insights promptSpec            `yaml:"insights"`
}

// Templates holds the parsed prompt set.
type Templates struct {
	System   string
	slots    map[string]*compiled
	insights *compiled
}

type compiled struct {
	maxTokens int
	tmpl      *template.Template
}

// LoadTemplates parses the embedded slot templates.
func LoadTemplates() (*Templates, error) {
	return ParseTemplates(slotsYAML)
}

// ParseTemplates parses a slots YAML document.
func ParseTemplates(data []byte) (*Templates, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse slot templates: %w", err)
	}
	t := &Templates{System: f.System, slots: make(map[string]*compiled, len(f.Slots))}
	for name, spec := range f.Slots {
		c, err := compile(name, spec)
		if err != nil {
			return nil, err
		}
		t.slots[name] = c
	}
	if f.Insights.Prompt != "" {
		c, err := compile("insights", f.Insights)
		if err != nil {
			return nil, err
		}
		t.insights = c
	}
	return t, nil
}

func compile(name string, spec promptSpec) (*compiled, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(spec.Prompt)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	mt := spec.MaxTokens
	if mt <= 0 {
		mt = 100
	}
	return &compiled{maxTokens: mt, tmpl: tmpl}, nil
}

// Has reports whether slot has a template.
func (t *Templates) Has(slot string) bool {
	_, ok := t.slots[slot]
	return ok
}

// Render fills in the prompt for slot.
func (t *Templates) Render(slot string, vars Vars) (Request, error) {
	c, ok := t.slots[slot]
	if !ok {
		return Request{}, fmt.Errorf("no template for slot %s", slot)
	}
	return c.render(t.System, vars)
}

// RenderInsights fills in the coaching insights prompt.
func (t *Templates) RenderInsights(vars Vars) (Request, error) {
	if t.insights == nil {
		return Request{}, fmt.Errorf("no insights template")
	}
	return t.insights.render("", vars)
}

func (c *compiled) render(system string, vars Vars) (Request, error) {
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, vars); err != nil {
		return Request{}, fmt.Errorf("render %s: %w", c.tmpl.Name(), err)
	}
	return Request{System: system, Prompt: buf.String(), MaxTokens: c.maxTokens}, nil
}
