package render

import (
	"html/template"

	"github.com/aselya-coder/PraktisiMengajar/internal/editor"
	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

// AdminPage is the view model shared by the admin pages.
type AdminPage struct {
	SiteTitle string
	PageTitle string
	User      string
	Notice    *Notice
	Sections  []model.SectionKey
	// Active marks the section being edited in the navigation.
	Active model.SectionKey

	Login     *LoginView
	Dashboard *DashboardView
	Editor    *EditorView
}

// Notice is the banner shown after an action.
type Notice struct {
	OK      bool
	Message string
}

type LoginView struct {
	Username string
	Error    string
}

type Count struct {
	Label string
	Value int
	Link  model.SectionKey
}

type DashboardView struct {
	Source string
	Loaded bool
	Counts []Count
}

type EditorView struct {
	Section model.SectionKey
	Fields  []editor.Field
	Dirty   bool
	// Preview holds the unsaved record rendered through the public partial.
	Preview template.HTML
}

// Counts summarizes the repeatable content shown on the dashboard.
func Counts(c *model.Content) []Count {
	if c == nil {
		return nil
	}
	return []Count{
		{Label: "Services", Value: len(c.Services.Items), Link: model.SectionServices},
		{Label: "Testimonials", Value: len(c.Testimonials.Items), Link: model.SectionTestimonials},
		{Label: "Process Steps", Value: len(c.Process.Steps), Link: model.SectionProcess},
		{Label: "About Values", Value: len(c.About.Values), Link: model.SectionAbout},
	}
}
