// Package templates renders the embedded workflow documents.
//
// Workflows are text/template files under workflows/. They receive a
// WorkflowData value and can pull project files in with {{ .ReadDoc "rules" }}
// or {{ .Read "path/relative/to/root" }}.
package templates

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/HendryAvila/context-engine/internal/config"
)

//go:embed workflows/*.md.tmpl
var workflowFS embed.FS

// Workflow template names.
const (
	Start              = "start"
	Plan               = "plan"
	ExecuteTask        = "execute-task"
	Review             = "review"
	Finish             = "finish"
	Summarize          = "summarize"
	Refine             = "refine"
	ImplementationPlan = "implementation-plan"
	ToolGuide          = "tool-guide"
)

// Renderer renders a named workflow.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// TemplateRenderer renders the embedded workflows.
type TemplateRenderer struct {
	tmpl *template.Template
}

// NewRenderer parses every embedded workflow.
func NewRenderer() (*TemplateRenderer, error) {
	tmpl, err := template.New("").
		Option("missingkey=zero").
		ParseFS(workflowFS, "workflows/*.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing workflows: %w", err)
	}
	return &TemplateRenderer{tmpl: tmpl}, nil
}

// Render executes workflow name with data.
func (r *TemplateRenderer) Render(name string, data any) (string, error) {
	file := name + ".md.tmpl"
	if r.tmpl.Lookup(file) == nil {
		return "", fmt.Errorf("unknown workflow %q", name)
	}
	var sb strings.Builder
	if err := r.tmpl.ExecuteTemplate(&sb, file, data); err != nil {
		return "", fmt.Errorf("rendering workflow %s: %w", name, err)
	}
	return sb.String(), nil
}

// Names lists the available workflows.
func (r *TemplateRenderer) Names() []string {
	var names []string
	for _, t := range r.tmpl.Templates() {
		if n, ok := strings.CutSuffix(t.Name(), ".md.tmpl"); ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// WorkflowData is the template context for every workflow.
type WorkflowData struct {
	ProjectPath string
	Commands    map[string]string
	Docs        map[string]string

	// Extra holds per-call values such as the requirement being planned.
	Extra map[string]string

	cfg *config.ProjectConfig
}

// NewWorkflowData builds the template context for cfg.
func NewWorkflowData(cfg *config.ProjectConfig) WorkflowData {
	return WorkflowData{
		ProjectPath: cfg.Root,
		Commands:    cfg.Commands,
		Docs:        cfg.Docs,
		Extra:       map[string]string{},
		cfg:         cfg,
	}
}

// With returns a copy of d with key set in Extra.
func (d WorkflowData) With(key, value string) WorkflowData {
	extra := make(map[string]string, len(d.Extra)+1)
	for k, v := range d.Extra {
		extra[k] = v
	}
	extra[key] = value
	d.Extra = extra
	return d
}

// Doc returns the configured path for a doc role.
func (d WorkflowData) Doc(role string) string {
	return d.cfg.GetDocPath(role)
}

// Command returns the configured shell command for name.
func (d WorkflowData) Command(name string) string {
	return d.cfg.GetCommand(name)
}

// ReadDoc returns the contents of the document for role.
func (d WorkflowData) ReadDoc(role string) string {
	return d.Read(d.cfg.GetDocPath(role))
}

// Read returns the contents of rel, relative to the project root. Problems
// are rendered inline so a missing file never aborts a workflow.
func (d WorkflowData) Read(rel string) string {
	data, err := os.ReadFile(filepath.Join(d.cfg.Root, rel))
	if os.IsNotExist(err) {
		return fmt.Sprintf("Error: File not found: %s", rel)
	}
	if err != nil {
		return fmt.Sprintf("Error reading %s: %v", rel, err)
	}
	return string(data)
}
