package web

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/session"
)

type signInView struct {
	Next  string
	Email string
}

func (a *App) signInPage(p *page) error {
	next := safeNext(p.query("next"), "/")
	if ok, _ := p.sess.Authenticated(p.ctx, a.now()); ok {
		p.redirect(next)
		return nil
	}
	return p.render("signin", "Sign in", signInView{Next: next, Email: p.query("email")})
}

func (a *App) signIn(p *page) (string, error) {
	next := safeNext(p.form("next"), "/")
	form := signInForm{Email: p.form("email"), Password: p.r.PostForm.Get("password")}
	retry := "/signin?next=" + url.QueryEscape(next) + "&email=" + url.QueryEscape(form.Email)
	if err := a.check(form); err != nil {
		return retry, err
	}

	res, err := a.api.SignIn(p.ctx, form.Email, form.Password)
	if err != nil {
		// Public call: a 401 here is a wrong password, not an expired session.
		if errors.Is(err, api.ErrUnauthenticated) {
			return retry, notice(api.Message(err))
		}
		return retry, errors.Wrap(err, "sign in")
	}

	if err := a.startSession(p, res); err != nil {
		return retry, err
	}
	p.flash(session.FlashSuccess, "Welcome back, "+displayUser(res.User)+"!")
	return next, nil
}

// startSession stores the token and profile and rotates the session ID.
func (a *App) startSession(p *page, res *api.AuthResult) error {
	if err := p.sess.SignIn(p.ctx, res.Token, res.User); err != nil {
		return errors.Wrap(err, "store token")
	}
	if res.User == nil {
		if u, err := a.api.Me(p.ctx); err == nil {
			res.User = u
			if err := p.sess.SetJSON(p.ctx, session.KeyUserData, u); err != nil {
				return errors.Wrap(err, "store profile")
			}
		}
	}
	if err := p.sess.Renew(p.ctx, p.w); err != nil {
		return errors.Wrap(err, "renew session")
	}
	a.logger.InfoWithContext(p.ctx, "User signed in", map[string]interface{}{
		"user_id": userID(res.User),
	})
	return nil
}

func displayUser(u *api.User) string {
	if u == nil || u.FullName == "" {
		return "shopper"
	}
	return u.FullName
}

func userID(u *api.User) string {
	if u == nil {
		return ""
	}
	return u.ID.String()
}

type signUpView struct {
	Pending *session.PendingSignup
}

func (a *App) signUpPage(p *page) error {
	if ok, _ := p.sess.Authenticated(p.ctx, a.now()); ok {
		p.redirect("/")
		return nil
	}
	pending, err := p.sess.PendingSignup(p.ctx)
	if err != nil {
		return errors.Wrap(err, "read pending sign-up")
	}
	title := "Create account"
	if pending != nil {
		title = "Verify your email"
	}
	return p.render("signup", title, signUpView{Pending: pending})
}

// signUp validates the form, emails a code and keeps the form in the
// session until the code is verified.
func (a *App) signUp(p *page) (string, error) {
	form := signUpForm{
		FullName: p.form("full_name"),
		Email:    p.form("email"),
		Phone:    p.form("phone"),
		Password: p.r.PostForm.Get("password"),
		Confirm:  p.r.PostForm.Get("confirm_password"),
	}
	if err := a.check(form); err != nil {
		return "/signup", err
	}

	if err := a.api.SendOTP(p.ctx, form.Email, api.PurposeSignup); err != nil {
		return "/signup", errors.Wrap(err, "send sign-up code")
	}
	err := p.sess.SetPendingSignup(p.ctx, session.PendingSignup{
		FullName: form.FullName,
		Email:    form.Email,
		Password: form.Password,
		Phone:    form.Phone,
	})
	if err != nil {
		return "/signup", errors.Wrap(err, "store pending sign-up")
	}
	p.flash(session.FlashInfo, "We sent a 6-digit code to "+form.Email+".")
	return "/signup", nil
}

func (a *App) verifySignUp(p *page) (string, error) {
	pending, err := p.sess.PendingSignup(p.ctx)
	if err != nil {
		return "/signup", errors.Wrap(err, "read pending sign-up")
	}
	if pending == nil {
		return "/signup", notice("Your sign-up has expired. Please start again.")
	}

	form := otpForm{Code: p.form("code")}
	if err := a.check(form); err != nil {
		return "/signup", err
	}

	signup := api.SignUpRequest{
		FullName: pending.FullName,
		Email:    pending.Email,
		Password: pending.Password,
		Phone:    pending.Phone,
	}
	res, err := a.api.VerifyOTP(p.ctx, api.VerifyOTPRequest{
		Email:      pending.Email,
		OTP:        form.Code,
		Purpose:    api.PurposeSignup,
		SignupData: &signup,
	})
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			return "/signup", notice(api.Message(err))
		}
		return "/signup", errors.Wrap(err, "verify sign-up code")
	}

	if res.Token == "" {
		// The backend verified the code but left account creation to us.
		created, err := a.api.SignUp(p.ctx, signup)
		if err != nil {
			return "/signup", errors.Wrap(err, "create account")
		}
		res = created
	}

	if err := p.sess.ClearPendingSignup(p.ctx); err != nil {
		a.logger.WarnWithContext(p.ctx, "Failed to clear pending sign-up", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if res.Token == "" {
		p.flash(session.FlashSuccess, "Your account is ready. Please sign in.")
		return "/signin?email=" + url.QueryEscape(pending.Email), nil
	}
	if err := a.startSession(p, res); err != nil {
		return "/signin", err
	}
	p.flash(session.FlashSuccess, "Welcome to MiniMall, "+displayUser(res.User)+"!")
	return "/", nil
}

func (a *App) resendCode(p *page) (string, error) {
	pending, err := p.sess.PendingSignup(p.ctx)
	if err != nil {
		return "/signup", errors.Wrap(err, "read pending sign-up")
	}
	if pending == nil {
		return "/signup", notice("Your sign-up has expired. Please start again.")
	}
	if err := a.api.SendOTP(p.ctx, pending.Email, api.PurposeSignup); err != nil {
		return "/signup", errors.Wrap(err, "resend sign-up code")
	}
	// Re-storing restarts the expiry window along with the new code.
	if err := p.sess.SetPendingSignup(p.ctx, *pending); err != nil {
		return "/signup", errors.Wrap(err, "store pending sign-up")
	}
	p.flash(session.FlashInfo, "A new code is on its way to "+pending.Email+".")
	return "/signup", nil
}

func (a *App) cancelSignUp(p *page) (string, error) {
	return "/signup", errors.Wrap(p.sess.ClearPendingSignup(p.ctx), "clear pending sign-up")
}

func (a *App) signOutPage(p *page) error {
	if ok, _ := p.sess.Authenticated(p.ctx, a.now()); !ok {
		p.redirect("/signin")
		return nil
	}
	return p.render("signout", "Sign out", nil)
}

func (a *App) signOut(p *page) (string, error) {
	if err := p.sess.Destroy(context.WithoutCancel(p.ctx)); err != nil {
		return "/", errors.Wrap(err, "sign out")
	}
	p.flash(session.FlashSuccess, "You have been signed out.")
	return "/signin", nil
}
