package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/launchforge/forgekit/pkg/catalog"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// providerPickerModel is the bubbletea model for choosing one provider of
// a service type.
type providerPickerModel struct {
	typ      catalog.ServiceType
	services []*catalog.Service
	cursor   int
	selected *catalog.Service
	quit     bool
}

func newProviderPicker(typ catalog.ServiceType, services []*catalog.Service) providerPickerModel {
	return providerPickerModel{typ: typ, services: services}
}

func (m providerPickerModel) Init() tea.Cmd {
	return nil
}

func (m providerPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.services)-1 {
				m.cursor++
			}
		case "enter":
			m.selected = m.services[m.cursor]
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m providerPickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Select %s provider", m.typ)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	for i, svc := range m.services {
		cursor := "  "
		style := listNormalStyle
		if i == m.cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		line := fmt.Sprintf("%s%s", cursor, style.Render(svc.Provider))
		line += listDimStyle.Render(fmt.Sprintf("  v%s", svc.Version))
		if svc.Description != "" {
			line += listDimStyle.Render("  " + svc.Description)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// pickProviders interactively chooses a provider for every requested type,
// returning refs suitable for a manual-strategy resolution. Returns an
// error when the user aborts.
func pickProviders(ctx context.Context, cat *catalog.Memory, types []catalog.ServiceType) ([]catalog.Ref, error) {
	var refs []catalog.Ref
	for _, typ := range types {
		services, err := cat.ListByType(ctx, typ)
		if err != nil {
			return nil, err
		}
		switch len(services) {
		case 0:
			return nil, fmt.Errorf("no providers in catalog for type %s", typ)
		case 1:
			refs = append(refs, services[0].Ref())
			continue
		}

		model, err := tea.NewProgram(newProviderPicker(typ, services), tea.WithContext(ctx)).Run()
		if err != nil {
			return nil, err
		}
		picked := model.(providerPickerModel)
		if picked.quit || picked.selected == nil {
			return nil, fmt.Errorf("selection aborted")
		}
		refs = append(refs, picked.selected.Ref())
	}
	return refs, nil
}
