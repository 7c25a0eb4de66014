package mailer

import "fmt"

const (
	VerificationSubject = "Verify Your Email Address"
	WelcomeSubject      = "Welcome!"
)

// VerificationBodies renders the plain-text and HTML bodies of the
// verification email around the signed link.
func VerificationBodies(name, email, link string) (text, html string) {
	text = fmt.Sprintf(`Verify Your Email Address

Hi %s,

Thank you for creating an account. To complete your registration and
verify your email address, please follow the link below:

%s

Email: %s

Security note: this verification link will expire in 24 hours.

If you didn't create this account, you can safely ignore this email.
`, name, link, email)

	html = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #333;">Verify Your Email Address</h1>
  <p>Hi %s,</p>
  <p>Thank you for creating an account. To complete your registration and verify your email address, please click the button below:</p>
  <p><strong>Email:</strong> %s</p>
  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="display: inline-block; padding: 12px 30px; background-color: #007bff; color: white; text-decoration: none; border-radius: 5px; font-weight: bold;">Verify Email Address</a>
  </p>
  <p style="color: #856404; font-size: 14px;"><strong>Security note:</strong> this verification link will expire in 24 hours.</p>
  <p style="color: #666; font-size: 12px;">If you didn't create this account, you can safely ignore this email.</p>
</div>`, name, email, link)

	return text, html
}

func WelcomeBodies(name, email string) (text, html string) {
	text = fmt.Sprintf(`Welcome!

Hi %s,

Welcome to our application! Your account has been successfully created.
Email: %s

You can now log in to your account and start using our services.
`, name, email)

	html = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Welcome!</h2>
  <p>Hi %s,</p>
  <p>Welcome to our application! Your account has been successfully created.</p>
  <p><strong>Email:</strong> %s</p>
  <p>You can now log in to your account and start using our services.</p>
</div>`, name, email)

	return text, html
}
