package web

import (
	"github.com/pkg/errors"

	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/session"
)

// Seller states of the profile page.
const (
	sellerActive   = "seller"
	sellerPending  = "pending"
	sellerRejected = "rejected"
	sellerNone     = "none"
)

type profileView struct {
	Dashboard     *api.Dashboard
	SellerState   string
	Rejection     string
	BusinessTypes []string
}

// CanApply reports whether the application form is offered.
func (v profileView) CanApply() bool {
	return v.SellerState == sellerNone || v.SellerState == sellerRejected
}

func (a *App) profilePage(p *page) error {
	dash, err := a.api.Dashboard(p.ctx)
	if err != nil {
		return errors.Wrap(err, "load profile")
	}

	v := profileView{Dashboard: dash, SellerState: sellerNone, BusinessTypes: businessTypes}
	prof := dash.Profile
	switch {
	case prof.IsSeller || prof.SellerApplicationStatus == api.ApplicationApproved:
		v.SellerState = sellerActive
	case prof.HasPendingApplication || prof.SellerApplicationStatus == api.ApplicationPending:
		v.SellerState = sellerPending
	case prof.SellerApplicationStatus == api.ApplicationRejected:
		v.SellerState = sellerRejected
	}

	// The dashboard's copy of the application status can lag behind.
	if v.SellerState != sellerActive {
		app, err := a.api.ApplicationStatus(p.ctx)
		switch {
		case err == nil:
			switch app.Status {
			case api.ApplicationApproved:
				v.SellerState = sellerActive
			case api.ApplicationPending:
				v.SellerState = sellerPending
			case api.ApplicationRejected:
				v.SellerState = sellerRejected
				v.Rejection = app.RejectionReason
			}
		case errors.Is(err, api.ErrNotFound):
		case p.unauthenticated(err):
			return err
		default:
			p.log(errors.Wrap(err, "load seller application"))
		}
	}

	return p.render("profile", "My profile", v)
}

func (a *App) applySeller(p *page) (string, error) {
	form := sellerApplicationForm{
		StoreName:    p.form("store_name"),
		BusinessType: p.form("business_type"),
		Description:  p.form("business_description"),
	}
	if err := a.check(form); err != nil {
		return "/profile", err
	}

	err := a.api.ApplySeller(p.ctx, api.SellerApplicationRequest{
		StoreName:           form.StoreName,
		BusinessType:        form.BusinessType,
		BusinessDescription: form.Description,
	})
	if errors.Is(err, api.ErrApplicationExists) {
		p.flash(session.FlashWarning, api.Message(err))
		return "/profile", nil
	}
	if err != nil {
		return "/profile", errors.Wrap(err, "submit seller application")
	}
	p.flash(session.FlashSuccess, "Your seller application has been submitted. We'll review it shortly.")
	return "/profile", nil
}
