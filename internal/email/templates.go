package email

import (
	emailtypes "github.com/driftline/backend/pkg/email"
)

// Built-in templates. Variables are substituted by the provider at send
// time: AppName, Username, Link, ExpiresIn, Event.
var builtinTemplates = map[emailtypes.TemplateType]*emailtypes.Template{
	emailtypes.TemplateEmailVerification: {
		TemplateType: emailtypes.TemplateEmailVerification,
		Subject:      "Verify your email address",
		HTMLContent: `<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Welcome to {{.AppName}}, {{.Username}}!</h2>
	<p>Please confirm your email address by clicking the link below:</p>
	<p><a href="{{.Link}}">Verify my email</a></p>
	<p>This link expires in {{.ExpiresIn}}. If you did not create an account, you can ignore this email.</p>
</body>
</html>`,
		TextContent: `Welcome to {{.AppName}}, {{.Username}}!

Please confirm your email address by opening the link below:

{{.Link}}

This link expires in {{.ExpiresIn}}. If you did not create an account, you can ignore this email.`,
	},
	emailtypes.TemplatePasswordReset: {
		TemplateType: emailtypes.TemplatePasswordReset,
		Subject:      "Reset your password",
		HTMLContent: `<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Password reset requested</h2>
	<p>Hi {{.Username}},</p>
	<p>We received a request to reset the password for your {{.AppName}} account. Click the link below to choose a new password:</p>
	<p><a href="{{.Link}}">Reset my password</a></p>
	<p>This link expires in {{.ExpiresIn}} and can only be used once. If you did not request a reset, no action is needed.</p>
</body>
</html>`,
		TextContent: `Password reset requested

Hi {{.Username}},

We received a request to reset the password for your {{.AppName}} account. Open the link below to choose a new password:

{{.Link}}

This link expires in {{.ExpiresIn}} and can only be used once. If you did not request a reset, no action is needed.`,
	},
	emailtypes.TemplateSecurityEvent: {
		TemplateType: emailtypes.TemplateSecurityEvent,
		Subject:      "Security alert for your account",
		HTMLContent: `<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Security alert</h2>
	<p>Hi {{.Username}},</p>
	<p>{{.Event}} on your {{.AppName}} account.</p>
	<p>If this was you, no action is needed. If not, reset your password immediately.</p>
</body>
</html>`,
		TextContent: `Security alert

Hi {{.Username}},

{{.Event}} on your {{.AppName}} account.

If this was you, no action is needed. If not, reset your password immediately.`,
	},
}

// GetTemplate returns the built-in template for the given type, or nil if
// none exists.
func GetTemplate(templateType emailtypes.TemplateType) *emailtypes.Template {
	return builtinTemplates[templateType]
}
