// Package enrich builds the contextual properties attached to every event.
package enrich

import (
	"time"

	"golang.org/x/net/html"

	"github.com/PratikDhanave/airtake-go/internal/dom"
	"github.com/PratikDhanave/airtake-go/internal/models"
)

// Environment exposes what the host knows about the current page or screen.
// Empty strings and zero sizes mean "unavailable".
type Environment interface {
	CurrentURL() string
	Referrer() string
	ScreenSize() (width, height int)
}

// Static is an Environment with fixed values, for hosts without a live page
// such as servers, command line tools and tests. Page, when set, is handed to
// autotrack as the current document.
type Static struct {
	URL    string
	Ref    string
	Width  int
	Height int
	Page   *html.Node
}

func (s Static) CurrentURL() string     { return s.URL }
func (s Static) Referrer() string       { return s.Ref }
func (s Static) ScreenSize() (int, int) { return s.Width, s.Height }

// Document returns Page, or an error when the environment has no page.
func (s Static) Document() (*html.Node, error) {
	if s.Page == nil {
		return nil, dom.ErrNoDocument
	}
	return s.Page, nil
}

// Populate snapshots env into a flat property map. It never fails; values
// the environment cannot provide are left out.
func Populate(env Environment, library string, now time.Time) models.Props {
	props := models.Props{
		models.PropLibrary:    library,
		models.PropOccurredAt: now.UnixMilli(),
	}
	if env == nil {
		return props
	}
	if v := env.CurrentURL(); v != "" {
		props[models.PropCurrentURL] = v
	}
	if v := env.Referrer(); v != "" {
		props[models.PropReferrer] = v
	}
	if w, h := env.ScreenSize(); w > 0 && h > 0 {
		props[models.PropScreenWidth] = w
		props[models.PropScreenHeight] = h
	}
	return props
}
