// Package render resolves templates and substitutes ###key### style
// placeholders from a data payload.
package render

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/example/notification-pipeline/internal/model"
)

// TemplateSource resolves the active, non-deleted template for a
// (name, channel) pair. Implementations return model.ErrNotFound when no
// such template exists.
type TemplateSource interface {
	ActiveTemplate(ctx context.Context, name string, channel model.ChannelType) (model.Template, error)
}

type Rendered struct {
	Subject string
	Body    string
}

// MissingVariablesError reports required template variables absent from
// the payload. It is a permanent failure: the same message will never
// render successfully, so consumers must not retry it.
type MissingVariablesError struct {
	Template string
	Missing  []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("template %q missing required variables: %s", e.Template, strings.Join(e.Missing, ", "))
}

type Renderer struct {
	Source TemplateSource
}

func NewRenderer(source TemplateSource) *Renderer {
	return &Renderer{Source: source}
}

// Render resolves the template and fills its placeholders. Every name in
// the template's declared variable list must be a key in data; keys in
// data that the template never references are ignored, and placeholders
// with no matching key are left verbatim.
func (r *Renderer) Render(ctx context.Context, name string, channel model.ChannelType, data map[string]any) (Rendered, error) {
	tpl, err := r.Source.ActiveTemplate(ctx, name, channel)
	if err != nil {
		return Rendered{}, err
	}

	if missing := missingVariables(tpl.Variables, data); len(missing) > 0 {
		return Rendered{}, &MissingVariablesError{Template: name, Missing: missing}
	}

	return Rendered{
		Subject: Substitute(tpl.Subject, data),
		Body:    Substitute(tpl.Body, data),
	}, nil
}

// Substitute replaces every ###key### occurrence with the string form of
// data[key]. Keys absent from data leave their placeholder untouched.
func Substitute(text string, data map[string]any) string {
	if text == "" {
		return ""
	}
	result := text
	for key, value := range data {
		placeholder := "###" + key + "###"
		if !strings.Contains(result, placeholder) {
			continue
		}
		result = strings.ReplaceAll(result, placeholder, stringify(value))
	}
	return result
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func missingVariables(required []string, data map[string]any) []string {
	var missing []string
	for _, name := range required {
		if _, ok := data[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
