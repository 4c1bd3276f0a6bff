// moderation_backlog_notifier.go implements the ModerationBacklogNotifier
// background job, which periodically counts pending forum posts and emails
// every admin when the backlog crosses the configured threshold. The job is a
// no-op when notifications.enabled is false or when the SMTP host is not
// configured, so it is always safe to start regardless of deployment
// environment.
package jobs

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db/models"
	"github.com/edustack/edustack/internal/db/repositories"
)

// ModerationBacklogNotifier periodically emails admins when the forum
// moderation queue grows beyond the configured threshold.
type ModerationBacklogNotifier struct {
	forumRepo *repositories.ForumRepository
	userRepo  *repositories.UserRepository
	cfg       *config.NotificationsConfig
	interval  time.Duration
	stopChan  chan struct{}

	// lastNotified suppresses repeat alerts while the backlog stays above the
	// threshold; cleared once the queue drops back under it.
	lastNotified bool
}

// NewModerationBacklogNotifier creates a new ModerationBacklogNotifier.
// The check interval comes from notifications.moderation_check_interval_hours
// (default 6h).
func NewModerationBacklogNotifier(
	forumRepo *repositories.ForumRepository,
	userRepo *repositories.UserRepository,
	cfg *config.NotificationsConfig,
) *ModerationBacklogNotifier {
	hours := cfg.ModerationCheckIntervalHours
	if hours <= 0 {
		hours = 6
	}
	return &ModerationBacklogNotifier{
		forumRepo: forumRepo,
		userRepo:  userRepo,
		cfg:       cfg,
		interval:  time.Duration(hours) * time.Hour,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the background backlog-check loop.
// It runs an initial check immediately, then repeats on the configured interval.
// The loop exits when ctx is cancelled or Stop() is called.
func (n *ModerationBacklogNotifier) Start(ctx context.Context) {
	if !n.cfg.Enabled {
		log.Println("Moderation backlog notifier: disabled (notifications.enabled=false)")
		return
	}
	if n.cfg.SMTP.Host == "" {
		log.Println("Moderation backlog notifier: disabled (notifications.smtp.host not set)")
		return
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	log.Printf("Moderation backlog notifier started (check interval: %v, threshold: %d)",
		n.interval, n.threshold())

	// Run once immediately on startup
	n.runCheck(ctx)

	for {
		select {
		case <-ticker.C:
			n.runCheck(ctx)
		case <-n.stopChan:
			log.Println("Moderation backlog notifier stopped")
			return
		case <-ctx.Done():
			log.Println("Moderation backlog notifier context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (n *ModerationBacklogNotifier) Stop() {
	close(n.stopChan)
}

func (n *ModerationBacklogNotifier) threshold() int {
	if n.cfg.ModerationBacklogThreshold > 0 {
		return n.cfg.ModerationBacklogThreshold
	}
	return 25
}

// runCheck counts the pending queue and alerts admins when it crosses the
// threshold. Alerts are sent once per crossing, not on every check.
func (n *ModerationBacklogNotifier) runCheck(ctx context.Context) {
	pending, err := n.forumRepo.CountPostsByStatus(ctx, models.ForumStatusPending)
	if err != nil {
		log.Printf("Moderation backlog notifier: failed to count pending posts: %v", err)
		return
	}

	if pending < n.threshold() {
		n.lastNotified = false
		return
	}
	if n.lastNotified {
		return
	}

	admins, err := n.userRepo.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		log.Printf("Moderation backlog notifier: failed to list admins: %v", err)
		return
	}

	log.Printf("Moderation backlog notifier: %d posts pending, alerting %d admin(s)", pending, len(admins))

	sent := false
	for _, admin := range admins {
		if admin.Email == "" {
			continue
		}
		if err := n.sendBacklogEmail(admin.Email, admin.Name, pending); err != nil {
			log.Printf("Moderation backlog notifier: failed to send email to %s: %v", admin.Email, err)
			continue
		}
		sent = true
	}

	if sent {
		n.lastNotified = true
	}
}

// sendBacklogEmail composes and delivers a plain-text alert email via SMTP.
func (n *ModerationBacklogNotifier) sendBacklogEmail(toEmail, userName string, pending int) error {
	subject := fmt.Sprintf("Action Required: %d forum posts awaiting moderation", pending)
	body := strings.Join([]string{
		fmt.Sprintf("Hello %s,", userName),
		"",
		fmt.Sprintf("The forum moderation queue currently holds %d pending post(s), which is above the configured alert threshold of %d.",
			pending, n.threshold()),
		"",
		"To review the queue:",
		"  1. Log in to the EduStack admin UI.",
		"  2. Navigate to CMS → Forum Moderation.",
		"  3. Approve or reject the flagged posts.",
		"",
		"You will not be alerted again until the queue drops below the threshold and crosses it anew.",
		"",
		"— EduStack",
	}, "\r\n")

	smtpCfg := &n.cfg.SMTP
	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		smtpCfg.From, toEmail, subject,
	)
	msg := []byte(headers + body + "\r\n")

	addr := fmt.Sprintf("%s:%d", smtpCfg.Host, smtpCfg.Port)
	auth := smtp.PlainAuth("", smtpCfg.Username, smtpCfg.Password, smtpCfg.Host)

	if smtpCfg.UseTLS {
		return sendMailTLS(addr, smtpCfg.Host, auth, smtpCfg.From, []string{toEmail}, msg)
	}
	return smtp.SendMail(addr, auth, smtpCfg.From, []string{toEmail}, msg)
}

// sendMailTLS connects via implicit TLS (port 465 / SMTPS) and sends a message.
// Use this when UseTLS=true and the port is 465; for port 587 STARTTLS,
// smtp.SendMail handles the upgrade automatically — but we call this path for
// both so the config is unambiguous: UseTLS=true always means an encrypted connection.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		// Fall back to STARTTLS via the standard smtp.SendMail path (port 587 pattern)
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, addr := range to {
		if err := c.Rcpt(addr); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", addr, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
