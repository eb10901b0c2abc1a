package emailService

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/config"
)

const (
	subjectResetPassword  = "Reset your password"
	templateResetPassword = "reset_password.html"
	defaultQueueSize      = 100
)

//go:embed templates/*.html
var templatesFS embed.FS

var ErrQueueClosed = errors.New("email queue is closed")

type EmailData interface {
	TemplateFileName() string
	Subject() string
}

type EmailSender interface {
	QueueEmail(to string, data EmailData) error
}

type ResetPasswordData struct {
	UserName  string
	ResetURL  string
	ExpiresIn string
}

func (r ResetPasswordData) TemplateFileName() string {
	return templateResetPassword
}

func (r ResetPasswordData) Subject() string {
	return subjectResetPassword
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailService struct {
	cfg       config.SMTPConfig
	templates *template.Template
	sendMail  sendMailFunc
	taskQueue chan EmailTask
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

type EmailTask struct {
	to   string
	data EmailData
}

// NewEmailService starts the delivery worker. Without an SMTP host the
// worker only logs what it would have sent.
func NewEmailService(cfg config.SMTPConfig) (*EmailService, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("could not parse email templates: %w", err)
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	s := &EmailService{
		cfg:       cfg,
		templates: templates,
		sendMail:  smtp.SendMail,
		taskQueue: make(chan EmailTask, defaultQueueSize),
		done:      make(chan struct{}),
	}
	go s.worker()

	if cfg.Host == "" {
		log.Info("SMTP is not configured, emails will be logged instead of sent")
	}
	return s, nil
}

func (s *EmailService) worker() {
	defer close(s.done)
	for task := range s.taskQueue {
		if err := s.deliver(task); err != nil {
			log.WithError(err).WithField("to", task.to).Error("Error sending email")
		}
	}
}

func (s *EmailService) QueueEmail(to string, data EmailData) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrQueueClosed
	}
	s.taskQueue <- EmailTask{to: to, data: data}
	return nil
}

// Close stops accepting mail and waits until the queue is drained.
func (s *EmailService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.taskQueue)
	s.mu.Unlock()

	<-s.done
}

func (s *EmailService) render(data EmailData) (string, error) {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, data.TemplateFileName(), data); err != nil {
		return "", fmt.Errorf("error executing template: %w", err)
	}
	return body.String(), nil
}

func (s *EmailService) deliver(task EmailTask) error {
	body, err := s.render(task.data)
	if err != nil {
		return err
	}

	if s.cfg.Host == "" {
		log.WithFields(log.Fields{
			"to":      task.to,
			"subject": task.data.Subject(),
		}).Info("Email not sent, SMTP is not configured")
		log.Debug(body)
		return nil
	}

	message := []byte("From: " + s.cfg.From + "\r\n" +
		"To: " + task.to + "\r\n" +
		"Subject: " + task.data.Subject() + "\r\n" +
		"MIME-version: 1.0;\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n" +
		body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.sendMail(s.cfg.Host+":"+s.cfg.Port, auth, s.cfg.From, []string{task.to}, message); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
