package answer

import (
	"fmt"
	"strings"

	"github.com/bnema/dcloud-assistant/internal/application"
	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	// ShowSource adds a footer naming the live API behind a fallback answer.
	ShowSource bool
}

func renderAnswer(answer application.Answer, opts RenderOptions, s styles) string {
	text := strings.TrimSpace(answer.Text)
	if text == "" {
		return s.empty.Render("(empty answer)")
	}

	lines := []string{s.body.Render(text)}
	if opts.ShowSource && answer.Dispatch != nil {
		lines = append(lines, footer(answer.Dispatch, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func footer(result *domain.APICallResult, s styles) string {
	if !result.OK() {
		return s.warning.Render(fmt.Sprintf("live lookup failed: %s", result.Status))
	}

	source := result.Source
	if result.Endpoint != "" && !strings.Contains(source, result.Endpoint) {
		source = fmt.Sprintf("%s %s", source, result.Endpoint)
	}
	return s.source.Render(fmt.Sprintf("via %s on %s", source, result.Instance))
}

func renderInstances(instances []domain.Instance, s styles) string {
	lines := []string{
		s.title.Render("Distributed Cloud Instances"),
		s.header.Render(fmt.Sprintf("instances: %d", len(instances))),
	}

	if len(instances) == 0 {
		lines = append(lines, s.empty.Render("No instances configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, instance := range instances {
		name := instance.Name
		if instance.IsDefault() {
			name += " (default)"
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			s.instance.Render(name),
			s.detail.Render(fmt.Sprintf("  %s  %s", instance.Kind, instance.URL)),
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
