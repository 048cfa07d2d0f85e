package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/session"
	"github.com/minimall/storefront/pkg/telemetry"
)

const maxFormBytes = 1 << 20

type (
	// pageFunc loads and renders a page. A returned error replaces the
	// page content with the error state.
	pageFunc func(p *page) error
	// actionFunc performs one mutation and returns where to redirect. A
	// returned error becomes an error toast on that page.
	actionFunc func(p *page) (string, error)
)

// page is the controller of one request.
type page struct {
	app  *App
	name string
	w    http.ResponseWriter
	r    *http.Request
	ctx  context.Context
	sess *session.Session

	written bool
}

func (a *App) controller(name string, fn func(p *page)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := telemetry.WithPage(r.Context(), name)
		sess := session.FromContext(ctx)
		if sess == nil {
			sess = a.sessions.New()
			ctx = session.WithSession(ctx, sess)
		}
		fn(&page{app: a, name: name, w: w, r: r.WithContext(ctx), ctx: ctx, sess: sess})
	})
}

func (a *App) page(name string, fn pageFunc) http.Handler {
	return a.controller(name, func(p *page) {
		if err := fn(p); err != nil {
			p.fail(err)
		}
	})
}

func (a *App) action(name string, fn actionFunc) http.Handler {
	return a.controller(name, func(p *page) {
		p.r.Body = http.MaxBytesReader(p.w, p.r.Body, maxFormBytes)
		if err := p.r.ParseForm(); err != nil {
			p.flash(session.FlashError, "The form could not be read. Please try again.")
			p.redirect(p.back("/"))
			return
		}

		to, err := fn(p)
		if p.written {
			return
		}
		if to == "" {
			to = p.back("/")
		}
		if err != nil {
			if p.unauthenticated(err) {
				p.toSignIn()
				return
			}
			p.log(err)
			p.flashError(err)
		}
		p.redirect(to)
	})
}

// unauthenticated reports whether the backend rejected this request's token,
// either through err or through an earlier call of the same request.
func (p *page) unauthenticated(err error) bool {
	return errors.Is(err, api.ErrUnauthenticated) || p.sess.Guard().Triggered()
}

// toSignIn sends the visitor to the sign-in page. Credentials are already
// gone (the api client cleared them). It writes at most one response.
func (p *page) toSignIn() {
	if p.written {
		return
	}
	p.flash(session.FlashWarning, "Your session has expired. Please sign in again.")
	p.redirect(signInURL(p.r))
}

func signInURL(r *http.Request) string {
	if r.Method != http.MethodGet {
		return "/signin"
	}
	return "/signin?next=" + url.QueryEscape(r.URL.RequestURI())
}

// fail renders the error state for a page whose main data did not load.
func (p *page) fail(err error) {
	if p.unauthenticated(err) {
		p.toSignIn()
		return
	}
	p.log(err)
	p.renderStatus(statusFor(err), "error", "Something went wrong", errorView{
		Message: userMessage(err),
		Retry:   p.r.URL.RequestURI(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, api.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrNetworkUnreachable), errors.Is(err, api.ErrRequestFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (p *page) log(err error) {
	fields := map[string]interface{}{
		"method": p.r.Method,
		"path":   p.r.URL.Path,
		"error":  err.Error(),
	}
	if status := api.StatusOf(err); status != 0 {
		fields["status"] = status
	}
	var (
		fe *FormError
		n  notice
	)
	switch {
	case errors.As(err, &fe), errors.As(err, &n), errors.Is(err, api.ErrValidation), errors.Is(err, api.ErrNotFound):
		p.app.logger.InfoWithContext(p.ctx, "Request rejected", fields)
	default:
		p.app.logger.ErrorWithContext(p.ctx, "Request failed", fields)
		p.app.logger.DebugWithContext(p.ctx, "Request failure trace", map[string]interface{}{
			"trace": fmt.Sprintf("%+v", err),
		})
	}
}

// section is data for one part of a page. A part that failed to load
// carries the message and a retry link instead; the rest of the page still
// renders.
type section[T any] struct {
	Data  T
	Error string
	Retry string
}

// OK reports whether the data loaded.
func (s section[T]) OK() bool { return s.Error == "" }

func load[T any](p *page, what string, fn func(ctx context.Context) (T, error)) section[T] {
	v, err := fn(p.ctx)
	if err != nil {
		if !p.unauthenticated(err) {
			p.log(errors.Wrap(err, what))
		}
		return section[T]{Error: userMessage(err), Retry: p.r.URL.RequestURI()}
	}
	return section[T]{Data: v}
}

func (p *page) flash(kind, msg string) {
	if err := p.sess.AddFlash(p.ctx, kind, msg); err != nil {
		p.app.logger.WarnWithContext(p.ctx, "Failed to store flash message", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// notice is an error whose text is shown to the visitor as is.
type notice string

func (n notice) Error() string { return string(n) }

// userMessage is the text shown to the visitor for err.
func userMessage(err error) string {
	var n notice
	if errors.As(err, &n) {
		return n.Error()
	}
	return api.Message(err)
}

func (p *page) flashError(err error) {
	var n notice
	if errors.As(err, &n) {
		p.flash(session.FlashError, n.Error())
		return
	}
	var fe *FormError
	if errors.As(err, &fe) {
		for _, f := range fe.Fields {
			p.flash(session.FlashError, f.Message)
		}
		return
	}
	if fields := api.FieldMessages(err); len(fields) > 0 {
		for _, name := range sortedKeys(fields) {
			p.flash(session.FlashError, label(name)+": "+fields[name])
		}
		return
	}
	kind := session.FlashError
	if errors.Is(err, api.ErrForbidden) {
		kind = session.FlashWarning
	}
	p.flash(kind, api.Message(err))
}

func (p *page) redirect(to string) {
	if p.written {
		return
	}
	p.written = true
	http.Redirect(p.w, p.r, to, http.StatusSeeOther)
}

// back is the same-site page the form was posted from, or def.
func (p *page) back(def string) string {
	ref := p.r.Referer()
	if ref == "" {
		return def
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != p.r.Host) {
		return def
	}
	return safeNext(u.RequestURI(), def)
}

// safeNext accepts only local absolute paths as redirect targets.
func safeNext(next, def string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return def
	}
	return next
}

func (p *page) param(name string) string { return mux.Vars(p.r)[name] }

func (p *page) query(name string) string { return strings.TrimSpace(p.r.URL.Query().Get(name)) }

func (p *page) form(name string) string { return strings.TrimSpace(p.r.PostForm.Get(name)) }

func (p *page) user() *api.User {
	var u api.User
	ok, err := p.sess.GetJSON(p.ctx, session.KeyUserData, &u)
	if err != nil || !ok {
		return nil
	}
	return &u
}

// requireAuth sends visitors without a usable token to the sign-in page.
func (a *App) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := session.FromContext(ctx)
		if sess != nil {
			ok, err := sess.Authenticated(ctx, a.now())
			if err != nil {
				a.logger.WarnWithContext(ctx, "Failed to read session", map[string]interface{}{
					"error": err.Error(),
				})
			}
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			_ = sess.AddFlash(ctx, session.FlashInfo, "Please sign in to continue.")
		}
		http.Redirect(w, r, signInURL(r), http.StatusSeeOther)
	})
}

// render writes a page with status 200.
func (p *page) render(tmpl, title string, content interface{}) error {
	p.renderStatus(http.StatusOK, tmpl, title, content)
	return nil
}

func (p *page) renderStatus(status int, tmpl, title string, content interface{}) {
	if p.written {
		return
	}
	data := p.layout(title, content)
	// The layout may itself have called the backend (cart badge).
	if p.sess.Guard().Triggered() {
		p.toSignIn()
		return
	}

	var buf bytes.Buffer
	if err := p.app.views.execute(&buf, tmpl, data); err != nil {
		p.app.logger.ErrorWithContext(p.ctx, "Template failed", map[string]interface{}{
			"template": tmpl,
			"error":    err.Error(),
		})
		p.written = true
		http.Error(p.w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	p.written = true
	h := p.w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	p.w.WriteHeader(status)
	if p.r.Method != http.MethodHead {
		_, _ = buf.WriteTo(p.w)
	}
}

func (p *page) layout(title string, content interface{}) layoutData {
	d := layoutData{
		Title:   title,
		Page:    p.name,
		Path:    p.r.URL.Path,
		Content: content,
	}

	ok, err := p.sess.Authenticated(p.ctx, p.app.now())
	if err == nil && ok {
		d.SignedIn = true
		d.User = p.user()
		if n, err := p.app.api.CartCount(p.ctx); err == nil {
			d.CartCount = n
		}
	}

	flashes, err := p.sess.Flashes(p.ctx)
	if err != nil {
		p.app.logger.WarnWithContext(p.ctx, "Failed to read flash messages", map[string]interface{}{
			"error": err.Error(),
		})
	}
	d.Flashes = flashes
	return d
}

type layoutData struct {
	Title     string
	Page      string
	Path      string
	SignedIn  bool
	User      *api.User
	CartCount int
	Flashes   []session.Flash
	Content   interface{}
}

type errorView struct {
	Message string
	Retry   string
}
