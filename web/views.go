package web

import (
	"fmt"
	"net/http"

	"github.com/rohanthewiz/element"

	"github.com/openprofiles/profiled/profiles"
)

// pageLayout is the shared page chrome around every rendered view.
type pageLayout struct {
	Title string
	Body  element.Component
}

func (p pageLayout) Render(b *element.Builder) any {
	b.Html().R(
		b.Head().R(
			b.Title().T(p.Title),
			b.Style().T(`
				body { font-family: sans-serif; max-width: 720px; margin: 0 auto; padding: 20px; }
				.profile { border-bottom: 1px solid #ddd; padding: 8px 0; }
				.muted { color: #666; }
				.error { background: #f8d7da; color: #721c24; padding: 10px; border-radius: 4px; }
				form label { display: block; margin: 10px 0 2px; }
				form input { width: 100%; padding: 5px; }
				.pager { margin: 16px 0; }
			`),
		),
		b.Body().R(
			element.RenderComponents(b, p.Body),
		),
	)
	return nil
}

// profileListPage lists profiles with pagination links.
type profileListPage struct {
	Profiles   []profiles.Profile
	DetailPath func(username string) string
	Page       int
	TotalPages int
	PagePath   func(page int) string
}

func (p profileListPage) Render(b *element.Builder) any {
	b.H1().T("Profiles")

	if len(p.Profiles) == 0 {
		b.P("class", "muted").T("No profiles yet.")
	}

	for _, profile := range p.Profiles {
		b.DivClass("profile").R(
			b.A("href", p.DetailPath(profile.Username)).T(profile.DisplayName()),
			b.Span("class", "muted").T(" @"+profile.Username),
		)
	}

	if p.TotalPages > 1 {
		pager := b.DivClass("pager")
		if p.Page > 1 {
			b.A("href", p.PagePath(p.Page-1)).T("Previous")
			b.T(" ")
		}
		b.T(fmt.Sprintf("Page %d of %d", p.Page, p.TotalPages))
		if p.Page < p.TotalPages {
			b.T(" ")
			b.A("href", p.PagePath(p.Page+1)).T("Next")
		}
		pager.R()
	}

	return nil
}

// profileDetailPage shows a single profile.
type profileDetailPage struct {
	Profile  profiles.Profile
	ListPath string
	EditPath string
	IsOwner  bool
}

func (p profileDetailPage) Render(b *element.Builder) any {
	b.H1().T(p.Profile.DisplayName())
	b.P("class", "muted").T("@" + p.Profile.Username)

	if p.Profile.About != "" {
		b.P().T(p.Profile.About)
	}
	if p.Profile.Location != "" {
		b.P().R(
			b.Strong().T("Location: "),
			b.T(p.Profile.Location),
		)
	}
	if p.Profile.Website != "" {
		b.P().R(
			b.A("href", p.Profile.Website, "rel", "nofollow").T(p.Profile.Website),
		)
	}

	if p.IsOwner {
		b.P().R(
			b.A("href", p.EditPath).T("Edit your profile"),
		)
	}

	b.P().R(
		b.A("href", p.ListPath).T("All profiles"),
	)

	return nil
}

// profileEditPage renders the edit form, optionally with a submit error.
type profileEditPage struct {
	Profile profiles.Profile
	Action  string
	Error   string
}

func (p profileEditPage) Render(b *element.Builder) any {
	b.H1().T("Edit profile")
	b.P("class", "muted").T("@" + p.Profile.Username)

	if p.Error != "" {
		b.DivClass("error").T(p.Error)
	}

	b.Form("method", "POST", "action", p.Action).R(
		b.Label("for", "name").T("Name"),
		b.Input("type", "text", "id", "name", "name", "name", "value", p.Profile.Name),

		b.Label("for", "about").T("About"),
		b.Input("type", "text", "id", "about", "name", "about", "value", p.Profile.About),

		b.Label("for", "location").T("Location"),
		b.Input("type", "text", "id", "location", "name", "location", "value", p.Profile.Location),

		b.Label("for", "website").T("Website"),
		b.Input("type", "url", "id", "website", "name", "website", "value", p.Profile.Website),

		b.P().R(
			b.Button("type", "submit").T("Save"),
		),
	)

	return nil
}

// writePage renders a component inside the shared layout.
func writePage(w http.ResponseWriter, status int, title string, body element.Component) {
	b := element.NewBuilder()
	element.RenderComponents(b, pageLayout{Title: title, Body: body})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(b.String()))
}
