package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

const TagPasswordReset = "password-reset"

var resetPasswordTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Someone asked to reset the password of your comic collection account.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>The link works once and expires in {{.ValidFor}}. If it was not you, ignore this email.</p>
</body>
</html>
`))

// Build password reset message with the link to the reset page
func PasswordResetMessage(to string, link string, validFor string) (Message, error) {
	var buf bytes.Buffer

	err := resetPasswordTmpl.Execute(&buf, struct {
		Link     string
		ValidFor string
	}{link, validFor})
	if err != nil {
		return Message{}, fmt.Errorf("can't render reset email. Err: %w", err)
	}

	return Message{
		To:       to,
		Subject:  "Password reset",
		HTMLBody: buf.String(),
		Tag:      TagPasswordReset,
	}, nil
}
