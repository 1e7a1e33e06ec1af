package model

// PageData is the view model handed to page layouts.
type PageData struct {
	SiteTitle string
	PageTitle string
	BaseURL   string
	Content   *Content
	// Preview marks pages rendered from unsaved editor state.
	Preview bool
}
