package api

import (
	"context"
	"net/http"
)

// OTP purposes.
const (
	PurposeSignup = "signup"
	PurposeLogin  = "login"
)

// SignUpRequest is the sign-up payload. Role is always "customer"; sellers
// are promoted through the seller application.
type SignUpRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
}

// VerifyOTPRequest confirms an emailed code. SignupData is sent with the
// signup purpose so the backend can create the account on success.
type VerifyOTPRequest struct {
	Email      string         `json:"email"`
	OTP        string         `json:"otp"`
	Purpose    string         `json:"purpose"`
	SignupData *SignUpRequest `json:"signup_data,omitempty"`
}

// SignIn exchanges credentials for a token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/auth/signin",
		path:   "/api/auth/signin",
		body:   map[string]string{"email": email, "password": password},
		public: true,
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, &Error{Method: http.MethodPost, Path: "/api/auth/signin", Message: orDefault(res.Message, "Sign in failed"), Err: ErrRequestFailed}
	}
	return &res, nil
}

// SignUp creates a customer account. The result carries a token only when
// the backend signs the new user in directly.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error) {
	req.Role = "customer"
	var res AuthResult
	if err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/auth/signup",
		path:   "/api/auth/signup",
		body:   req,
		public: true,
	}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SendOTP emails a one-time code.
func (c *Client) SendOTP(ctx context.Context, email, purpose string) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/auth/send-otp",
		path:   "/api/auth/send-otp",
		body:   map[string]string{"email": email, "purpose": purpose},
		public: true,
	}, nil)
}

// VerifyOTP checks a one-time code.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthResult, error) {
	if req.SignupData != nil {
		req.SignupData.Role = "customer"
	}
	var res AuthResult
	if err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/api/auth/verify-otp",
		path:   "/api/auth/verify-otp",
		body:   req,
		public: true,
	}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var res struct {
		User *User `json:"user"`
	}
	if err := c.get(ctx, "/api/auth/me", "/api/auth/me", nil, &res); err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, &Error{Method: http.MethodGet, Path: "/api/auth/me", Message: msgUnexpected, Err: ErrRequestFailed}
	}
	return res.User, nil
}

// VerifyToken asks the backend whether the stored token is still valid.
func (c *Client) VerifyToken(ctx context.Context) error {
	return c.get(ctx, "/api/auth/verify-token", "/api/auth/verify-token", nil, nil)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
