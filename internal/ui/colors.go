package ui

import "github.com/charmbracelet/lipgloss"

var styles = NewPalette("#1DB954", "#FFFFFF", "#B3B3B3", "#FF5555", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	accent lipgloss.Style
	title  lipgloss.Style
	dim    lipgloss.Style
	err    lipgloss.Style
	help   lipgloss.Style
	frame  lipgloss.Style
}

func NewPalette(accent, title, dim, err, help string) *Palette {
	return &Palette{
		accent: NewBold(accent),
		title:  NewBold(title),
		dim:    NewStyle(dim),
		err:    NewBold(err),
		help:   NewEm(help),
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(accent)).
			Padding(1, 2),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
