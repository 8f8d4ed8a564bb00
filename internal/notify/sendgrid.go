package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltmpl "html/template"
	"log/slog"
	"net/http"
	"strings"
	texttmpl "text/template"

	"github.com/sahajkedia/student-profile-challenge/internal/config"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

const expiryLayout = "2006-01-02 15:04 MST"

var (
	resetText = texttmpl.Must(texttmpl.New("reset.txt").Parse(
		"Hello {{.FirstName}},\n\nUse the link below to choose a new password. It expires at {{.Expires}}.\n\n" +
			"{{.Link}}\n\nIf you did not request a reset you can ignore this email.\n"))
	resetHTML = htmltmpl.Must(htmltmpl.New("reset.gohtml").Parse(
		`<p>Hello {{.FirstName}},</p><p>Use the link below to choose a new password. It expires at {{.Expires}}.</p>` +
			`<p><a href="{{.Link}}">Reset password</a></p>`))
)

type resetData struct {
	FirstName string
	Expires   string
	Link      string
}

// SendGridNotifier emails the reset link through the SendGrid v3 API.
type SendGridNotifier struct {
	key    string
	from   *sgmail.Email
	send   func(rest.Request) (*rest.Response, error)
	logger *slog.Logger
}

func NewSendGridNotifier(cfg config.SendGridConfig, logger *slog.Logger) (*SendGridNotifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid api key is not configured")
	}

	return &SendGridNotifier{
		key:    cfg.APIKey,
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		send:   sendgrid.API,
		logger: logger,
	}, nil
}

func (n *SendGridNotifier) NotifyPasswordReset(ctx context.Context, reset PasswordReset) error {
	msg, err := n.resetMessage(reset)
	if err != nil {
		return err
	}

	req := sendgrid.GetRequest(n.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(msg)

	res, err := n.send(req)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to send password reset email", "error", err)
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		n.logger.ErrorContext(ctx, "sendgrid rejected password reset email", "status", res.StatusCode)
		return fmt.Errorf("sendgrid responded with status %d", res.StatusCode)
	}

	n.logger.InfoContext(ctx, "password reset email sent", "user_id", reset.UserID)
	return nil
}

// resetMessage renders the reset email. The HTML part is escaped by
// html/template since the name is user supplied.
func (n *SendGridNotifier) resetMessage(reset PasswordReset) (*sgmail.SGMailV3, error) {
	name := strings.TrimSpace(reset.FirstName + " " + reset.LastName)
	data := resetData{
		FirstName: reset.FirstName,
		Expires:   reset.ExpiresAt.UTC().Format(expiryLayout),
		Link:      reset.ResetLink,
	}

	var text, html bytes.Buffer
	if err := resetText.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render reset email text: %w", err)
	}
	if err := resetHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render reset email html: %w", err)
	}

	p := sgmail.NewPersonalization()
	p.Subject = "Reset your password"
	p.AddTos(sgmail.NewEmail(name, reset.Email))

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", text.String()),
		sgmail.NewContent("text/html", html.String()),
	)
	return m, nil
}

func (n *SendGridNotifier) Close() error {
	return nil
}
