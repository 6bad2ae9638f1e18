package mail

import (
	"bytes"
	"html/template"
)

type templateData struct {
	Code string
	Link string
}

var (
	verificationTmpl = template.Must(template.New("verification").Parse(`<div>
<p>Your verification code: <b>{{.Code}}</b></p>
<p>Verify your account: <a href="{{.Link}}">click here</a></p>
</div>`))

	welcomeTmpl = template.Must(template.New("welcome").Parse(`<div>
<p>Your account is verified. Welcome aboard!</p>
</div>`))

	forgotPasswordTmpl = template.Must(template.New("forgot").Parse(`<div>
<p>Your password reset code: <b>{{.Code}}</b></p>
<p>Reset your password: <a href="{{.Link}}">click here</a></p>
<p>If you did not request this, ignore this email.</p>
</div>`))

	resetSuccessTmpl = template.Must(template.New("reset-success").Parse(`<div>
<p>Your password was changed.</p>
<p>If this was not you, contact support immediately.</p>
</div>`))
)

func render(t *template.Template, d templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
